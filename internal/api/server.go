package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/romkit/rom/internal/logging"
	"github.com/romkit/rom/internal/ratelimit"
	"github.com/romkit/rom/pkg/config"
	"github.com/romkit/rom/pkg/rom"
)

// Server is the REST API server exposing save/get/query/delete over
// HTTP for a set of registered namespaces, grounded on the teacher's
// Gin-based internal/api.Server (CORS, API-key auth, rate limiting,
// graceful shutdown) re-themed from a fixed set of memory/chat/search
// endpoints to a generic per-namespace record surface.
type Server struct {
	router     *gin.Engine
	config     *config.Config
	stores     map[string]*rom.Store
	httpServer *http.Server
	log        *logging.Logger
}

// NewServer builds a Server over the given namespace -> Store registry.
func NewServer(cfg *config.Config, stores map[string]*rom.Store) *Server {
	log := logging.GetLogger("api")
	log.Info("initializing REST API server", "namespaces", len(stores))

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.RestAPI.CORS {
		corsConfig := cors.Config{
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
			ExposeHeaders: []string{"Content-Length", "Retry-After"},
			MaxAge:        12 * time.Hour,
		}
		if len(cfg.RestAPI.AllowOrigins) > 0 {
			corsConfig.AllowOrigins = cfg.RestAPI.AllowOrigins
		} else {
			corsConfig.AllowAllOrigins = true
		}
		router.Use(cors.New(corsConfig))
	}

	if cfg.RestAPI.APIKey != "" {
		log.Info("API key authentication enabled")
		router.Use(APIKeyAuthMiddleware(cfg.RestAPI.APIKey))
	}

	if cfg.RateLimit.Enabled {
		log.Info("rate limiting enabled")
		rlCfg := &ratelimit.Config{
			Enabled: true,
			Global: ratelimit.LimitConfig{
				RequestsPerSecond: cfg.RateLimit.Global.RequestsPerSecond,
				BurstSize:         cfg.RateLimit.Global.BurstSize,
			},
		}
		for _, route := range cfg.RateLimit.Routes {
			rlCfg.Routes = append(rlCfg.Routes, ratelimit.RouteLimit{
				Name:              route.Name,
				RequestsPerSecond: route.RequestsPerSecond,
				BurstSize:         route.BurstSize,
			})
		}
		router.Use(RateLimitMiddleware(ratelimit.NewLimiter(rlCfg)))
	}

	router.Use(MaxBodySizeMiddleware(DefaultBodyLimit))

	s := &Server{router: router, config: cfg, stores: stores, log: log}
	s.setupRoutes()
	return s
}

// setupRoutes configures every route this server answers.
func (s *Server) setupRoutes() {
	s.router.GET("/v1/healthz", s.health)

	v1 := s.router.Group("/v1/:ns")
	v1.Use(s.resolveStore)
	{
		v1.POST("", s.saveRecord)
		v1.GET("/:id", s.getRecord)
		v1.DELETE("/:id", s.deleteRecord)
		v1.GET("/by/:field", s.getByUnique)
		v1.POST("/query", s.runQuery)
		v1.POST("/:id/reindex", s.reindexRecord)
	}
}

// Start runs the HTTP server, blocking until ctx is cancelled or the
// server fails, then shuts it down within shutdownTimeout.
func (s *Server) Start(ctx context.Context, shutdownTimeout time.Duration) error {
	addr := fmt.Sprintf("%s:%d", s.config.RestAPI.Host, s.config.RestAPI.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting REST API server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("api: server error: %w", err)
	}
}

// Router exposes the underlying Gin engine for testing.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) health(c *gin.Context) {
	SuccessResponse(c, "ok", gin.H{"namespaces": len(s.stores)})
}
