package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetpilot/fleetpilot/api/handlers"
	"github.com/fleetpilot/fleetpilot/api/middleware"
	"github.com/fleetpilot/fleetpilot/pkg/config"
	"github.com/fleetpilot/fleetpilot/pkg/database"
	"github.com/fleetpilot/fleetpilot/pkg/database/queries"
)

// Server is the read-only observation surface: health probes, the latest
// cycle, persisted cycle history and Prometheus metrics. It never mutates
// agent state.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.APIConfig
}

func NewServer(cfg config.Config, agent handlers.CycleSource, db *database.DB) *Server {
	if cfg.App.Mode == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	s := &Server{
		router: router,
		config: cfg.API,
	}

	router.Use(gin.Recovery())
	router.Use(middleware.TraceID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.API.AllowedOrigins))

	var cycleRepo *queries.CycleRepository
	if db != nil {
		cycleRepo = queries.NewCycleRepository(db)
	}

	healthHandler := handlers.NewHealthHandler(db)
	statusHandler := handlers.NewStatusHandler(agent, cycleRepo)

	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/health/live", healthHandler.Live)

	router.GET("/status", statusHandler.Status)
	router.GET("/cycles/:resource", statusHandler.Cycles)
	router.GET("/cycles/id/:id/errors", statusHandler.CycleErrors)

	if cfg.Prometheus.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
