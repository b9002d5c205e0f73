package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/energizer-project/bnetchat/internal/config"
	"github.com/energizer-project/bnetchat/internal/connector"
	"github.com/energizer-project/bnetchat/internal/db"
	"github.com/energizer-project/bnetchat/internal/roster"
	"github.com/energizer-project/bnetchat/internal/util"
)

// Controller is the part of a chat session the API drives.
type Controller interface {
	Status() connector.Status
	ChannelUsers() []roster.ChannelUser
	Friends() []roster.Friend
	Channels() []string

	SendChannelMessage(ctx context.Context, text string) error
	SendWhisper(ctx context.Context, who, text string) error
	SendEmote(ctx context.Context, text string) error
	JoinChannel(ctx context.Context, channel string) error
	Rejoin(ctx context.Context) error
	SetAway(ctx context.Context, message string) error
	SetDND(ctx context.Context, message string) error
	SetAvailable(ctx context.Context) error
	GetInfo(ctx context.Context, name string) error
	AddFriend(ctx context.Context, account string) error
	RemoveFriend(ctx context.Context, account string) error
	EditProfile(ctx context.Context) error
	WriteProfile(ctx context.Context, sex, location, description string) error
	Command(ctx context.Context, line string) error
}

// Server is the REST API over one chat session.
type Server struct {
	cfg     config.APIConfig
	session Controller
	history *db.HistoryStore

	httpServer *http.Server
	router     *gin.Engine
	logger     zerolog.Logger
}

// NewServer creates a new API server. history may be nil when storage is
// disabled.
func NewServer(cfg config.APIConfig, session Controller, history *db.HistoryStore, debug bool) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		session: session,
		history: history,
		logger:  util.ComponentLogger("api"),
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("API server error: %w", err)
	}

	s.logger.Info().Str("addr", addr).Msg("REST API server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}

// buildRouter creates the Gin router with all routes and middleware.
func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger(s.logger))
	router.Use(SecurityHeaders())

	allowedOrigins := s.cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Must be false when AllowOrigins is "*"
		MaxAge:           12 * time.Hour,
	}))

	public := router.Group("/api/public")
	{
		public.GET("/ping", s.handlePing)
		public.GET("/version", s.handleGetVersion)
		public.GET("/system", s.handleGetSystem)
	}

	api := router.Group("/api")
	api.Use(RequireToken(s.cfg.Token))

	session := api.Group("/session")
	{
		session.GET("/status", s.handleGetStatus)
		session.GET("/channel/users", s.handleGetChannelUsers)
		session.GET("/channels", s.handleGetChannels)
		session.GET("/friends", s.handleGetFriends)
		session.GET("/history/messages", s.handleGetMessages)
		session.GET("/history/lookups/:name", s.handleGetLookup)
	}

	// per-client limit on top of the session's flood pacing
	actions := api.Group("/actions")
	actions.Use(NewRateLimiter(5, 10).Middleware())
	{
		actions.POST("/say", s.handleSay)
		actions.POST("/emote", s.handleEmote)
		actions.POST("/whisper", s.handleWhisper)
		actions.POST("/join", s.handleJoin)
		actions.POST("/rejoin", s.handleRejoin)
		actions.POST("/away", s.handleAway)
		actions.POST("/dnd", s.handleDND)
		actions.POST("/available", s.handleAvailable)
		actions.POST("/info", s.handleInfo)
		actions.POST("/friends", s.handleAddFriend)
		actions.DELETE("/friends/:account", s.handleRemoveFriend)
		actions.POST("/profile/edit", s.handleEditProfile)
		actions.PUT("/profile", s.handleWriteProfile)
		actions.POST("/command", s.handleCommand)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
