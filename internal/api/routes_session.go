package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/energizer-project/bnetchat/internal/roster"
)

type userView struct {
	Name         string `json:"name"`
	Flags        uint32 `json:"flags"`
	Ping         int32  `json:"ping"`
	Product      string `json:"product"`
	Capabilities string `json:"capabilities,omitempty"`
}

type friendView struct {
	Account       string `json:"account"`
	Online        bool   `json:"online"`
	Location      string `json:"location"`
	Product       string `json:"product,omitempty"`
	Mutual        bool   `json:"mutual"`
	Away          bool   `json:"away"`
	DND           bool   `json:"dnd"`
	StatusMessage string `json:"status_message,omitempty"`
}

func newUserView(u roster.ChannelUser) userView {
	v := userView{
		Name:         u.Name,
		Flags:        u.Flags,
		Ping:         u.Ping,
		Capabilities: u.Capabilities(),
	}
	if p := u.Product(); p != 0 {
		v.Product = p.Name()
	}
	return v
}

func newFriendView(f roster.Friend) friendView {
	v := friendView{
		Account:       f.Account,
		Online:        f.Online(),
		Location:      f.LocationText(),
		Mutual:        f.Mutual(),
		Away:          f.Away(),
		DND:           f.DND(),
		StatusMessage: f.StatusMessage,
	}
	if f.Product != 0 {
		v.Product = f.Product.Name()
	}
	return v
}

// handleGetStatus returns the session status.
func (s *Server) handleGetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Status())
}

// handleGetChannelUsers returns the members of the current channel.
func (s *Server) handleGetChannelUsers(c *gin.Context) {
	users := s.session.ChannelUsers()
	out := make([]userView, len(users))
	for i, u := range users {
		out[i] = newUserView(u)
	}
	c.JSON(http.StatusOK, gin.H{
		"channel": s.session.Status().Channel.Name,
		"total":   len(out),
		"users":   out,
	})
}

func (s *Server) handleGetChannels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"channels": s.session.Channels()})
}

// handleGetFriends returns the friends list in server order.
func (s *Server) handleGetFriends(c *gin.Context) {
	friends := s.session.Friends()
	out := make([]friendView, len(friends))
	for i, f := range friends {
		out[i] = newFriendView(f)
	}
	c.JSON(http.StatusOK, gin.H{
		"total":   len(out),
		"friends": out,
	})
}

// handleGetMessages returns stored chat history, optionally for one channel.
func (s *Server) handleGetMessages(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history storage is disabled"})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	msgs, err := s.history.RecentMessages(c.Query("channel"), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// handleGetLookup returns the last stored lookup answer for a user.
func (s *Server) handleGetLookup(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history storage is disabled"})
		return
	}

	rec, err := s.history.LastLookup(c.Param("name"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no lookup stored for user"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}
