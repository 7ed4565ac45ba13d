// Package admin serves the operator HTTP surface: a live page, a JSON API and
// a websocket snapshot stream.
package admin

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"guidelight-panel/internal/engine"
)

// Engine is the part of the live-state engine the server exposes.
type Engine interface {
	Snapshot() engine.Snapshot
	Subscribe(buffer int) (<-chan engine.Snapshot, func())
	Dispatch(command string) (engine.PendingCommand, error)
	ToggleStream() engine.StreamState
	TriggerTestAlert() string
	Reshuffle() string
}

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 5 * time.Second
)

//go:embed templates/index.html
var content embed.FS

// Server wires HTTP handlers to the engine.
type Server struct {
	eng Engine
	tpl *template.Template
	log *slog.Logger
}

// NewServer creates a server for eng. A nil logger means slog.Default.
func NewServer(eng Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{eng: eng, tpl: tpl, log: log}
}

// Router builds the gin router with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger)
	router.SetHTMLTemplate(s.tpl)

	router.GET("/", s.index)
	router.GET("/health", s.health)
	router.GET("/ws", s.wsConnect)

	api := router.Group("/api")
	{
		api.GET("/state", s.state)
		api.GET("/pending", s.pending)
		api.POST("/commands", s.dispatch)
		api.POST("/stream/toggle", s.toggleStream)
		api.POST("/alerts/test", s.testAlert)
		api.POST("/mood/reshuffle", s.reshuffle)
	}
	return router
}

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("admin server listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("admin server stopped", "addr", addr)
	return nil
}

func (s *Server) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("http request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"took", time.Since(start))
}
