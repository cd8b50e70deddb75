package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mycelicmemory/docstore/internal/logging"
	"github.com/mycelicmemory/docstore/pkg/config"
	"github.com/mycelicmemory/docstore/pkg/docstore"
)

// Server is the optional REST surface over a Store (SPEC_FULL.md §2
// domain stack: gin + cors, the same combination the teacher used for
// its own REST API).
type Server struct {
	router     *gin.Engine
	store      *docstore.Store
	config     *config.Config
	httpServer *http.Server
	log        *logging.Logger
}

// NewServer builds a Server wrapping store, with routes registered and
// ready to Start.
func NewServer(store *docstore.Store, cfg *config.Config) *Server {
	log := logging.GetLogger("api")
	log.Info("initializing REST API server")

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.RestAPI.CORS {
		log.Debug("enabling CORS")
		corsConfig := cors.Config{
			AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}
		if cfg.RestAPI.APIKey != "" {
			corsConfig.AllowOrigins = []string{
				"http://localhost:*",
				"http://127.0.0.1:*",
				"https://localhost:*",
				"https://127.0.0.1:*",
			}
			corsConfig.AllowWildcard = true
		} else {
			corsConfig.AllowAllOrigins = true
		}
		router.Use(cors.New(corsConfig))
	}

	if cfg.RestAPI.APIKey != "" {
		log.Info("API key authentication enabled")
		router.Use(APIKeyAuthMiddleware(cfg.RestAPI.APIKey))
	}

	defaultBodyLimit := MaxBodySizeMiddleware(DefaultBodyLimit)
	router.Use(func(c *gin.Context) {
		// Image uploads carry their own, larger limit on their route.
		if c.Request.Method == http.MethodPost && c.Request.URL.Path == "/api/v1/images" {
			c.Next()
			return
		}
		defaultBodyLimit(c)
	})

	server := &Server{
		router: router,
		store:  store,
		config: cfg,
		log:    log,
	}
	server.setupRoutes()
	return server
}

// setupRoutes registers every operation the Store Facade exposes.
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", s.healthHandler)

		v1.POST("/nodes", s.createNode)
		v1.POST("/nodes/vector", s.createNodeWithVector)
		v1.GET("/nodes/:id", s.getNode)
		v1.DELETE("/nodes/:id", s.deleteNode)
		v1.PUT("/nodes/:id/vector", s.updateVector)

		v1.GET("/nodes/:id/children", s.getChildren)
		v1.GET("/nodes/:id/root", s.getByRoot)
		v1.GET("/nodes/:id/mentions", s.getMentioning)
		v1.POST("/nodes/:id/parent", s.setRelationship)

		v1.GET("/nodes/scan", s.scanText)
		v1.POST("/search/ann", s.annSearch)
		v1.POST("/search/multimodal", s.multimodalSearch)
		v1.POST("/search/hybrid", s.hybridSearch)

		v1.POST("/images", MaxBodySizeMiddleware(ImageBodyLimit), s.storeImage)
		v1.GET("/images/:id", s.getImage)

		v1.POST("/relationships", s.createRelationship)
		v1.GET("/relationships/:id", s.findRelated)
		v1.GET("/relationships/:id/graph", s.mapGraph)
	}
}

// Start runs the server, choosing an available port if AutoPort is set.
func (s *Server) Start() error {
	addr, err := s.resolveAddr()
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	s.log.Info("starting REST API server", "address", addr)
	return s.httpServer.ListenAndServe()
}

// StartWithContext runs the server until ctx is cancelled, then shuts
// down gracefully within shutdownTimeout.
func (s *Server) StartWithContext(ctx context.Context, shutdownTimeout time.Duration) error {
	addr, err := s.resolveAddr()
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("starting REST API server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("stopping REST API server")
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.Error("server shutdown error", "error", err)
			return err
		}
		s.log.Info("REST API server stopped")
	}
	return nil
}

// Router returns the underlying engine, for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) resolveAddr() (string, error) {
	port := s.config.RestAPI.Port
	if s.config.RestAPI.AutoPort {
		available, err := findAvailablePort(port)
		if err != nil {
			s.log.Error("failed to find available port", "error", err, "start_port", port)
			return "", fmt.Errorf("failed to find available port: %w", err)
		}
		port = available
	}
	return fmt.Sprintf("%s:%d", s.config.RestAPI.Host, port), nil
}

func findAvailablePort(startPort int) (int, error) {
	for port := startPort; port < startPort+100; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			ln.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found in range %d-%d", startPort, startPort+100)
}
