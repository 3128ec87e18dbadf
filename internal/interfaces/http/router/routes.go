package router

import (
	"github.com/erp/reconciliation/internal/infrastructure/auth"
	"github.com/erp/reconciliation/internal/infrastructure/logger"
	"github.com/erp/reconciliation/internal/interfaces/http/handler"
	"github.com/erp/reconciliation/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Config controls the middleware stack of the API engine
type Config struct {
	Logger *zap.Logger
	// JWTService enables bearer-token authentication; nil leaves the API open
	JWTService     *auth.JWTService
	Tracing        middleware.TracingConfig
	Meter          metric.Meter
	MaxBodyBytes   int64
	TrustedProxies []string
}

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	Payments *handler.PaymentHandler
	Reports  *handler.ReportHandler
	Health   *handler.HealthHandler
}

// NewEngine builds the gin engine with middleware and every reconciliation route
func NewEngine(cfg Config, h Handlers) (*gin.Engine, error) {
	zl := cfg.Logger
	if zl == nil {
		zl = zap.NewNop()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = middleware.DefaultMaxBodyBytes
	}

	handler.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(zl),
		middleware.TracingWithConfig(cfg.Tracing),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(cfg.Meter),
		logger.GinMiddleware(zl),
		middleware.BodyLimit(maxBody),
	)
	if cfg.JWTService != nil {
		jwtCfg := middleware.DefaultJWTConfig(cfg.JWTService)
		jwtCfg.Logger = zl
		engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg))
	}
	engine.Use(middleware.TracingAttributeInjector())

	engine.GET("/health", h.Health.Health)

	read := middleware.RequirePermission(auth.PermissionReportRead)

	payments := NewDomainGroup("payments", "/payments").
		POST("", middleware.RequirePermission(auth.PermissionPaymentRecord), h.Payments.RecordPayment).
		GET("/:id", read, h.Payments.GetPayment).
		POST("/:id/reverse", middleware.RequirePermission(auth.PermissionPaymentReverse), h.Payments.ReversePayment)

	parties := NewDomainGroup("parties", "/parties").
		GET("/:id/payments", read, h.Payments.ListPartyPayments).
		GET("/:id/balance", read, h.Reports.GetBalance).
		POST("/:id/apply-credit", middleware.RequirePermission(auth.PermissionCreditApply), h.Payments.ApplyCredit)

	reports := NewDomainGroup("reports", "").
		GET("/balances/top", read, h.Reports.ListTopOutstanding).
		GET("/aging", read, h.Reports.ComputeAging)

	NewRouter(engine).
		Register(payments).
		Register(parties).
		Register(reports).
		Setup()

	return engine, nil
}
