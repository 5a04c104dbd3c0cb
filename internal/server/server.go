package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/fastbillsync/internal/config"
	"github.com/smallbiznis/fastbillsync/internal/debuglog"
	"github.com/smallbiznis/fastbillsync/internal/events"
	invoicedomain "github.com/smallbiznis/fastbillsync/internal/invoice/domain"
	"github.com/smallbiznis/fastbillsync/internal/integration"
	"github.com/smallbiznis/fastbillsync/internal/observability"
	obsmiddleware "github.com/smallbiznis/fastbillsync/internal/observability/logger"
	obstracing "github.com/smallbiznis/fastbillsync/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(debug bool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           debug,
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg.Debug())
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// Backend is the part of the integration the HTTP API drives.
type Backend interface {
	Manager() (invoicedomain.Manager, error)
	DebugLog() *debuglog.Logger
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	backend    Backend
	dispatcher *events.Dispatcher
	orders     orderdomain.Store
	log        *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Integration *integration.Integration
	Dispatcher  *events.Dispatcher
	Orders      orderdomain.Store
	Log         *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		backend:    p.Integration,
		dispatcher: p.Dispatcher,
		orders:     p.Orders,
		log:        p.Log.Named("server"),
	}
	if strings.TrimSpace(p.Cfg.APIToken) == "" {
		svc.log.Warn("API_TOKEN is not set, hook and admin routes will reject every request")
	}

	svc.registerHookRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHookRoutes() {
	api := s.engine.Group("/api", s.APIKeyRequired())

	// -------- Host events --------
	hooks := api.Group("/hooks")
	hooks.POST("/order-inserted", s.OrderInsertedHook)
	hooks.POST("/order-status", s.OrderStatusHook)
	hooks.POST("/recurring-payment", s.RecurringPaymentHook)

	api.GET("/orders/:id/email-tag", s.RequireManager(), s.EmailTag)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.APIKeyRequired())

	// The debug log stays readable while the integration is unconfigured.
	admin.GET("/log", s.GetDebugLog)
	admin.DELETE("/log", s.ClearDebugLog)

	managed := admin.Group("", s.RequireManager())
	{
		managed.GET("/templates", s.ListTemplates)
		managed.POST("/orders/invoice-link", s.BulkSetInvoiceLink)
		managed.POST("/orders/:id/invoice-link", s.SetInvoiceLink)
		managed.POST("/orders/:id/resend-invoice", s.ResendInvoice)
		managed.POST("/orders/:id/invoice", s.CreateInvoice)
		managed.GET("/orders/:id/invoice", s.GetInvoice)
	}
}
