// Package server serves the landing page, its resolved choreography and
// rendered frames over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	g "maragu.dev/gomponents"

	"github.com/teranos/flyover"
	"github.com/teranos/flyover/internal/config"
	"github.com/teranos/flyover/internal/observability"
	"github.com/teranos/flyover/landing"
	"github.com/teranos/flyover/stage"
	"github.com/teranos/flyover/timeline"
)

const version = "0.1.0"

// maxGanttWidth bounds the cells per gantt row a request may ask for.
const maxGanttWidth = 400

// Server owns one resolved choreography and a stage playing it. Frames are
// sampled from the stage so running loops show up on top of the timeline.
type Server struct {
	cfg      config.Config
	logger   zerolog.Logger
	router   *gin.Engine
	choreo   *landing.Choreography
	appeared time.Time

	playMu sync.Mutex
	player *stage.Stage

	renderMu  sync.Mutex
	rendering *flyover.RenderingStage
}

// New resolves the landing choreography for the configured viewport and
// registers every route.
func New(cfg config.Config, logger zerolog.Logger) (*Server, error) {
	engine, err := landing.NewEngine(logger)
	if err != nil {
		return nil, err
	}
	c := landing.Choreograph(engine, landing.Compose(cfg.Viewport))
	for _, t := range c.Trips.All() {
		ev := logger.Warn()
		if !c.Trips.CanRecover(t.Type) {
			ev = logger.Error()
		}
		ev.Str("type", t.Type).Msg(t.Message)
	}

	player, err := stage.New(c.Plan(), stage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("stage landing: %w", err)
	}

	render := flyover.DefaultConfig()
	render.Width, render.Height = cfg.Film.Width, cfg.Film.Height
	render.OutputDir = cfg.Film.OutputDir

	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(corsConfig(cfg.Server.CorsOrigins)))

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    r,
		choreo:    c,
		appeared:  time.Now(),
		player:    player,
		rendering: flyover.NewRenderingStage(render),
	}
	s.RegisterRoutes()
	return s, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET"}
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) Choreography() *landing.Choreography { return s.choreo }

func (s *Server) RegisterRoutes() {
	s.router.GET("/", s.handleLanding)
	s.router.GET(stage.JourneyPath, s.handleJourney)

	api := s.router.Group("/api")
	api.GET("/script", func(c *gin.Context) { c.JSON(http.StatusOK, s.choreo) })
	api.GET("/frame", s.handleFrameJSON)
	api.GET("/gantt", s.handleGantt)

	s.router.GET("/frames/:t", s.handleFramePNG)

	s.router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if !s.choreo.Trips.ShouldContinue() {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"uptime":  time.Since(s.appeared).String(),
			"service": "flyover",
			"version": version,
			"trips":   len(s.choreo.Trips.All()),
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// playhead reads a time from raw. Empty means zero; anything that is not a
// finite non-negative number is rejected.
func playhead(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil || t < 0 || t != t || t > 1e6 {
		return 0, fmt.Errorf("invalid playhead %q", raw)
	}
	return t, nil
}

// frameAt seeks the server's stage to t and samples it. Seeking backwards
// replays from mount, so any t yields the same frame a fresh mount would.
func (s *Server) frameAt(t float64) timeline.Frame {
	s.playMu.Lock()
	defer s.playMu.Unlock()
	s.player.SeekTo(t)
	return s.player.Frame()
}

func html(c *gin.Context, status int, node g.Node) {
	var buf bytes.Buffer
	if err := node.Render(&buf); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) handleLanding(c *gin.Context) {
	t, err := playhead(c.Query("t"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := landingPage(s.choreo, s.frameAt(t))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	html(c, http.StatusOK, page)
}

func (s *Server) handleJourney(c *gin.Context) {
	observability.RecordNavigation(stage.JourneyPath)
	html(c, http.StatusOK, journeyPage())
}

func (s *Server) handleFrameJSON(c *gin.Context) {
	t, err := playhead(c.Query("t"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.frameAt(t))
}

func (s *Server) handleGantt(c *gin.Context) {
	t, err := playhead(c.Query("t"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	width, err := strconv.Atoi(c.DefaultQuery("width", "72"))
	if err != nil || width < 1 || width > maxGanttWidth {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("width must be in 1..%d", maxGanttWidth)})
		return
	}
	r := lipgloss.NewRenderer(io.Discard)
	if c.Query("ansi") != "" {
		r = flyover.ANSIRenderer(io.Discard)
	}
	c.String(http.StatusOK, flyover.Gantt(r, s.choreo.Script, t, width))
}

func (s *Server) handleFramePNG(c *gin.Context) {
	t, err := playhead(strings.TrimSuffix(c.Param("t"), ".png"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	png, err := s.renderPNG(t)
	if err != nil {
		s.logger.Error().Err(err).Float64("t", t).Msg("frame render failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) renderPNG(t float64) ([]byte, error) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	frame := s.frameAt(t)
	start := time.Now()
	var buf bytes.Buffer
	_, err := s.rendering.Render(s.choreo.Scene, frame)
	if err == nil {
		err = s.rendering.Encode(&buf)
	}
	observability.RecordFrame(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("render frame at %.3fs: %w", t, err)
	}
	return buf.Bytes(), nil
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("flyover listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
