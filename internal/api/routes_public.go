package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/energizer-project/bnetchat/internal/util"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "bnetchat",
		"version": util.Version,
	})
}

// handleGetVersion returns the client version.
func (s *Server) handleGetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": util.Version,
		"name":    "bnetchat",
	})
}

// handleGetSystem returns host and process information.
func (s *Server) handleGetSystem(c *gin.Context) {
	proc, err := util.GetProcessStats()
	if err != nil {
		s.logger.Debug().Err(err).Msg("process stats unavailable")
	}
	c.JSON(http.StatusOK, gin.H{
		"system":  util.GetSystemInfo(),
		"process": proc,
	})
}
