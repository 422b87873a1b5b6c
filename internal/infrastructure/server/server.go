package server

import (
	"context"
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/webpadhq/webpad/internal/api/http"
	"github.com/webpadhq/webpad/internal/api/middleware"
	"github.com/webpadhq/webpad/internal/api/ws"
	"github.com/webpadhq/webpad/internal/console"
	"github.com/webpadhq/webpad/internal/history"
	"github.com/webpadhq/webpad/internal/infrastructure/config"
	"github.com/webpadhq/webpad/internal/infrastructure/logging"
	"github.com/webpadhq/webpad/internal/infrastructure/monitoring"
	"github.com/webpadhq/webpad/internal/preview"
	"github.com/webpadhq/webpad/internal/preview/sandbox"
	"github.com/webpadhq/webpad/internal/session"
	"github.com/webpadhq/webpad/internal/store"
)

// Server wraps the HTTP server and all editor components.
type Server struct {
	router  *gin.Engine
	http    *nethttp.Server
	store   store.Store
	session *session.Manager
	logger  *logging.Logger
}

// New assembles the server. A storage failure degrades to the in-memory
// store so the editor still comes up; the session raises a notice for it.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}

	metrics := monitoring.NewMetrics()

	var st store.Store
	st, err := store.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		logger.Warn("sqlite unavailable, using in-memory store",
			zap.String("path", cfg.Storage.Path),
			zap.Error(err))
		st = store.NewMemory()
	} else {
		logger.Info("sqlite store opened", zap.String("path", cfg.Storage.Path))
	}

	bridge := console.NewBridge(logger, metrics)
	engine := preview.NewEngine(sandbox.Config{
		Timeout:       cfg.Sandbox.Timeout,
		MaxMemoryMB:   int(cfg.Sandbox.MaxMemoryMB),
		EnableConsole: true,
		EnableDOM:     true,
	}, logger, metrics)
	engine.SetEmit(func(payload map[string]interface{}) {
		bridge.Deliver(payload)
	})

	sess := session.NewManager(st, history.NewManager(st), engine, bridge, logger, metrics)
	sess.Init(context.Background())

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(monitoring.Middleware(metrics))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := http.NewHandlers(sess, st, bridge)
	wsHandler := ws.NewHandler(sess, bridge, logger, metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Project management
	router.GET("/projects", handlers.ListProjects)
	router.POST("/projects", handlers.CreateProject)
	router.GET("/projects/:id", handlers.GetProject)
	router.POST("/projects/:id/open", handlers.OpenProject)
	router.PUT("/projects/:id", handlers.RenameProject)
	router.DELETE("/projects/:id", handlers.DeleteProject)

	// Open project operations
	router.PUT("/project/files", handlers.UpdateFile)
	router.POST("/project/save", handlers.SaveProject)
	router.POST("/project/run", handlers.RunPreview)
	router.GET("/preview", handlers.Preview)

	// Version history
	router.GET("/project/versions", handlers.ListVersions)
	router.POST("/project/versions", handlers.CreateVersion)
	router.POST("/versions/:id/restore", handlers.RestoreVersion)
	router.DELETE("/versions/:id", handlers.DeleteVersion)

	// Console
	router.GET("/console", handlers.GetConsole)
	router.DELETE("/console", handlers.ClearConsole)
	router.PUT("/console/open", handlers.SetConsoleOpen)

	// Settings
	router.GET("/settings", handlers.GetSettings)
	router.PUT("/settings", handlers.UpdateSettings)

	// Share codes
	router.POST("/share", handlers.CreateShare)
	router.POST("/share/import", handlers.ImportShare)

	// WebSocket
	router.GET("/stream", wsHandler.HandleConnection)

	return &Server{
		router: router,
		http: &nethttp.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
			Handler: router,
		},
		store:   st,
		session: sess,
		logger:  logger,
	}, nil
}

// Run starts the server and blocks until it stops.
func (s *Server) Run() error {
	s.logger.Info("server listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err == nethttp.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server, cancels session automation, and closes the
// store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.session.Close()

	if err := s.http.Shutdown(ctx); err != nil {
		s.store.Close()
		return err
	}
	return s.store.Close()
}
