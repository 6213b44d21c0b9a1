package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/config"
	"github.com/EquidnaMX/stag-herd/internal/observability/logger"
	"github.com/EquidnaMX/stag-herd/internal/observability/metrics"
	"github.com/EquidnaMX/stag-herd/internal/observability/tracing"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/webhook"
)

const healthPath = "/healthz"

// webhookProviders are the path segments accepted directly under the route prefix.
var webhookProviders = []string{
	"mercadopago",
	"paypal",
	"googlepay",
	"openpay",
	"conekta",
	"kueskipay",
	"kueski",
	"clip",
	"stripe",
}

type Params struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Engine   *gin.Engine
	Pipeline *webhook.Pipeline
	Registry domain.Registry
	Manager  domain.Manager
	Clock    clock.Clock `optional:"true"`
}

type Server struct {
	cfg      config.Config
	log      *zap.Logger
	db       *gorm.DB
	engine   *gin.Engine
	pipeline *webhook.Pipeline
	registry domain.Registry
	manager  domain.Manager
	limiter  *rateLimiter
	apiKeys  []string
}

type EngineParams struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	HTTPMetrics *metrics.HTTPMetrics `optional:"true"`
}

// NewEngine builds the gin engine with the request-scoped middleware chain.
func NewEngine(p EngineParams) *gin.Engine {
	if p.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Logger:    p.Log.Named("http"),
		SkipPaths: []string{healthPath, "/metrics"},
	}))
	engine.Use(tracing.GinMiddleware(p.Cfg.AppName))
	engine.Use(metrics.GinMiddleware(p.HTTPMetrics))
	return engine
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:      p.Cfg,
		log:      p.Log.Named("server"),
		db:       p.DB,
		engine:   p.Engine,
		pipeline: p.Pipeline,
		registry: p.Registry,
		manager:  p.Manager,
		limiter:  newRateLimiter(p.Cfg.WebhookRateLimit, p.Cfg.RateDecay(), p.Clock),
		apiKeys:  normalizeAPIKeys(p.Cfg.HTTP.APIKeys),
	}
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) prefix() string {
	prefix := strings.Trim(strings.TrimSpace(s.cfg.RoutePrefix), "/")
	if prefix == "" {
		return "/"
	}
	return "/" + prefix
}

// RegisterRoutes mounts the webhook endpoints, the method listing, the
// payments API (when API keys are configured) and the operational routes.
func (s *Server) RegisterRoutes() {
	s.engine.GET(healthPath, s.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	group := s.engine.Group(s.prefix())
	group.GET("/methods", s.ListMethods)

	hooks := group.Group("", s.WebhookRateLimit())
	for _, provider := range webhookProviders {
		hooks.Match([]string{http.MethodGet, http.MethodPost}, "/"+provider, s.HandleWebhook(provider))
	}

	if len(s.apiKeys) == 0 {
		s.log.Info("payments api disabled: no api keys configured")
		return
	}
	api := group.Group("/payments", s.APIRateLimit(), s.APIKeyRequired())
	api.POST("", s.CreatePayment)
	api.GET("/:id", s.GetPayment)
	api.POST("/:id/cancel", s.CancelPayment)
	api.GET("/:id/fee", s.GetPaymentFee)
}

func (s *Server) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type methodResponse struct {
	Method      string `json:"method"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

func (s *Server) ListMethods(c *gin.Context) {
	descriptors := s.registry.Descriptors()
	resp := make([]methodResponse, 0, len(descriptors))
	for _, desc := range descriptors {
		resp = append(resp, methodResponse{
			Method:      string(desc.Method),
			Description: desc.Description,
			Enabled:     desc.Enabled,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RunHTTP serves the engine for the lifetime of the fx application.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTP.Addr)
	if addr == "" {
		addr = ":8080"
	}
	shutdownTimeout := time.Duration(cfg.HTTP.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log = log.Named("http")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	})
}
