package server

import (
	"context"
	"net/http"
	"time"

	auditdomain "github.com/ferrolab/certline/internal/audit/domain"
	"github.com/ferrolab/certline/internal/authorization"
	"github.com/ferrolab/certline/internal/config"
	"github.com/ferrolab/certline/internal/document"
	lotdomain "github.com/ferrolab/certline/internal/lot/domain"
	"github.com/ferrolab/certline/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(AccessLog(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
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
	engine            *gin.Engine
	cfg               config.Config
	db                *gorm.DB
	lotSvc            lotdomain.Service
	auditSvc          auditdomain.Service
	authzSvc          authorization.Service
	docs              *document.Manager
	transitionLimiter *ratelimit.TransitionLimiter
}

type ServerParams struct {
	fx.In

	Gin               *gin.Engine
	Cfg               config.Config
	DB                *gorm.DB
	LotSvc            lotdomain.Service
	AuditSvc          auditdomain.Service
	AuthzSvc          authorization.Service
	Docs              *document.Manager
	TransitionLimiter *ratelimit.TransitionLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:            p.Gin,
		cfg:               p.Cfg,
		db:                p.DB,
		lotSvc:            p.LotSvc,
		auditSvc:          p.AuditSvc,
		authzSvc:          p.AuthzSvc,
		docs:              p.Docs,
		transitionLimiter: p.TransitionLimiter,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api", s.ActorRequired())

	// -------- Lots --------
	api.GET("/lots", s.authorizeAction(authorization.ObjectLot, authorization.ActionLotView), s.ListLots)
	api.POST("/lots", s.authorizeAction(authorization.ObjectLot, authorization.ActionLotCreate), s.CreateLot)
	api.GET("/lots/:id", s.authorizeAction(authorization.ObjectLot, authorization.ActionLotView), s.GetLotByID)
	api.POST("/lots/:id/transition", s.authorizeAction(authorization.ObjectLot, authorization.ActionLotTransition), s.TransitionRateLimit(), s.TransitionLot)
	api.POST("/lots/:id/edit-request", s.authorizeAction(authorization.ObjectLot, authorization.ActionLotEditRequest), s.RequestLotEdit)
	api.DELETE("/lots/:id", s.authorizeAction(authorization.ObjectLot, authorization.ActionLotDelete), s.DeleteLot)

	// -------- QC checks --------
	api.POST("/lots/:id/qc-check", s.authorizeAction(authorization.ObjectQCCheck, authorization.ActionQCCheckSubmit), s.SubmitQCCheck)
	api.GET("/lots/:id/qc-check", s.authorizeAction(authorization.ObjectQCCheck, authorization.ActionQCCheckView), s.GetQCCheck)

	// -------- Audit trail --------
	api.GET("/audit-logs", s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)

	// -------- Certificate archive --------
	api.GET("/documents/search", s.authorizeAction(authorization.ObjectDocument, authorization.ActionDocumentSearch), s.SearchDocuments)
}
