package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stayops/revaudit/internal/auditrecord"
	recorddomain "github.com/stayops/revaudit/internal/auditrecord/domain"
	"github.com/stayops/revaudit/internal/config"
	"github.com/stayops/revaudit/internal/dashboard"
	dashboarddomain "github.com/stayops/revaudit/internal/dashboard/domain"
	"github.com/stayops/revaudit/internal/entity"
	obslogger "github.com/stayops/revaudit/internal/observability/logger"
	obsmetrics "github.com/stayops/revaudit/internal/observability/metrics"
	"github.com/stayops/revaudit/internal/sheetsync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	obsmetrics.Module,
	fx.Provide(registerGin),
	entity.Module,
	auditrecord.Module,
	dashboard.Module,
	sheetsync.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	recordSvc    recorddomain.Service
	dashboardSvc dashboarddomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	RecordSvc    recorddomain.Service
	DashboardSvc dashboarddomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		recordSvc:    p.RecordSvc,
		dashboardSvc: p.DashboardSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(s.AuthRequired())

	// -------- Records --------
	v1.GET("/records", s.ListRecords)
	v1.GET("/records/export", s.ExportRecords)
	v1.POST("/records/files", s.UpdateRecordFiles)
	v1.GET("/records/:id", s.GetRecord)
	v1.PATCH("/records/:id", s.UpdateRecord)
	v1.DELETE("/records/:id", s.DeleteRecord)

	// -------- Dashboard --------
	v1.GET("/dashboard/metrics", s.DashboardMetrics)
}
