package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/energizer-project/bnetchat/internal/commands"
)

type textRequest struct {
	Text string `json:"text" binding:"required"`
}

type whisperRequest struct {
	To   string `json:"to" binding:"required"`
	Text string `json:"text" binding:"required"`
}

type channelRequest struct {
	Channel string `json:"channel" binding:"required"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

type profileRequest struct {
	Sex         string `json:"sex"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type commandRequest struct {
	Line string `json:"line" binding:"required"`
}

// actionStatus maps a session action error to an HTTP status.
func actionStatus(err error) int {
	var verr *commands.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, commands.ErrBadCharacters),
		errors.Is(err, commands.ErrMessageTooLong),
		errors.Is(err, commands.ErrWhitespaceInName),
		errors.Is(err, commands.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, commands.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respond writes the outcome of one session action.
func (s *Server) respond(c *gin.Context, action string, err error) {
	if err != nil {
		status := actionStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error().Err(err).Str("action", action).Msg("API: action failed")
		}
		c.JSON(status, gin.H{"error": err.Error(), "action": action})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent", "action": action})
}

// bind decodes the JSON body into req, answering 400 on failure.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) handleSay(c *gin.Context) {
	var req textRequest
	if !bind(c, &req) {
		return
	}
	s.respond(c, "say", s.session.SendChannelMessage(c.Request.Context(), req.Text))
}

func (s *Server) handleEmote(c *gin.Context) {
	var req textRequest
	if !bind(c, &req) {
		return
	}
	s.respond(c, "emote", s.session.SendEmote(c.Request.Context(), req.Text))
}

func (s *Server) handleWhisper(c *gin.Context) {
	var req whisperRequest
	if !bind(c, &req) {
		return
	}
	s.respond(c, "whisper", s.session.SendWhisper(c.Request.Context(), req.To, req.Text))
}

func (s *Server) handleJoin(c *gin.Context) {
	var req channelRequest
	if !bind(c, &req) {
		return
	}
	s.respond(c, "join", s.session.JoinChannel(c.Request.Context(), req.Channel))
}

func (s *Server) handleRejoin(c *gin.Context) {
	s.respond(c, "rejoin", s.session.Rejoin(c.Request.Context()))
}

// handleAway marks the account away. The body is optional; an empty
// message uses the configured default.
func (s *Server) handleAway(c *gin.Context) {
	var req messageRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	s.respond(c, "away", s.session.SetAway(c.Request.Context(), req.Message))
}

func (s *Server) handleDND(c *gin.Context) {
	var req messageRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	s.respond(c, "dnd", s.session.SetDND(c.Request.Context(), req.Message))
}

func (s *Server) handleAvailable(c *gin.Context) {
	s.respond(c, "available", s.session.SetAvailable(c.Request.Context()))
}

// handleInfo starts a user lookup. Results arrive as lookup events and in
// the stored history.
func (s *Server) handleInfo(c *gin.Context) {
	var req nameRequest
	if !bind(c, &req) {
		return
	}
	s.respond(c, "info", s.session.GetInfo(c.Request.Context(), req.Name))
}

func (s *Server) handleAddFriend(c *gin.Context) {
	var req nameRequest
	if !bind(c, &req) {
		return
	}
	s.respond(c, "friend_add", s.session.AddFriend(c.Request.Context(), req.Name))
}

func (s *Server) handleRemoveFriend(c *gin.Context) {
	s.respond(c, "friend_remove", s.session.RemoveFriend(c.Request.Context(), c.Param("account")))
}

func (s *Server) handleEditProfile(c *gin.Context) {
	s.respond(c, "profile_edit", s.session.EditProfile(c.Request.Context()))
}

func (s *Server) handleWriteProfile(c *gin.Context) {
	var req profileRequest
	if !bind(c, &req) {
		return
	}
	s.respond(c, "profile_write", s.session.WriteProfile(c.Request.Context(), req.Sex, req.Location, req.Description))
}

// handleCommand sends a raw slash command line.
func (s *Server) handleCommand(c *gin.Context) {
	var req commandRequest
	if !bind(c, &req) {
		return
	}
	s.respond(c, "command", s.session.Command(c.Request.Context(), req.Line))
}
