package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/coursemart/internal/authorization"
	"github.com/smallbiznis/coursemart/internal/catalog"
	catalogdomain "github.com/smallbiznis/coursemart/internal/catalog/domain"
	"github.com/smallbiznis/coursemart/internal/config"
	"github.com/smallbiznis/coursemart/internal/entitlement"
	entitlementdomain "github.com/smallbiznis/coursemart/internal/entitlement/domain"
	"github.com/smallbiznis/coursemart/internal/observability"
	obsmiddleware "github.com/smallbiznis/coursemart/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/coursemart/internal/observability/metrics"
	obstracing "github.com/smallbiznis/coursemart/internal/observability/tracing"
	"github.com/smallbiznis/coursemart/internal/payment"
	paymentdomain "github.com/smallbiznis/coursemart/internal/payment/domain"
	"github.com/smallbiznis/coursemart/internal/playback"
	playbackdomain "github.com/smallbiznis/coursemart/internal/playback/domain"
	"github.com/smallbiznis/coursemart/internal/progress"
	progressdomain "github.com/smallbiznis/coursemart/internal/progress/domain"
	"github.com/smallbiznis/coursemart/internal/providers"
	"github.com/smallbiznis/coursemart/internal/purchase"
	purchasedomain "github.com/smallbiznis/coursemart/internal/purchase/domain"
	"github.com/smallbiznis/coursemart/internal/ratelimit"
	"github.com/smallbiznis/coursemart/internal/revenue"
	revenuedomain "github.com/smallbiznis/coursemart/internal/revenue/domain"
	"github.com/smallbiznis/coursemart/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	session.Module,
	authorization.Module,
	ratelimit.Module,
	providers.Module,
	catalog.Module,
	entitlement.Module,
	playback.Module,
	payment.Module,
	purchase.Module,
	progress.Module,
	revenue.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	verifier *session.Verifier

	catalogSvc     catalogdomain.Service
	entitlementSvc entitlementdomain.Service
	playbackSvc    playbackdomain.Service
	purchaseSvc    purchasedomain.Service
	progressSvc    progressdomain.Service
	revenueSvc     revenuedomain.Service
	webhookSvc     paymentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	Log      *zap.Logger
	Verifier *session.Verifier

	CatalogSvc     catalogdomain.Service
	EntitlementSvc entitlementdomain.Service
	PlaybackSvc    playbackdomain.Service
	PurchaseSvc    purchasedomain.Service
	ProgressSvc    progressdomain.Service
	RevenueSvc     revenuedomain.Service
	WebhookSvc     paymentdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http.server"),
		verifier:       p.Verifier,
		catalogSvc:     p.CatalogSvc,
		entitlementSvc: p.EntitlementSvc,
		playbackSvc:    p.PlaybackSvc,
		purchaseSvc:    p.PurchaseSvc,
		progressSvc:    p.ProgressSvc,
		revenueSvc:     p.RevenueSvc,
		webhookSvc:     p.WebhookSvc,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	webhooks := s.engine.Group("/webhooks")
	webhooks.POST("/payments/:provider", s.HandlePaymentWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.ViewerContext())

	// -------- Playback --------
	api.GET("/lessons/:id/access", s.GetLessonAccess)
	api.POST("/lessons/:id/playback-token", s.RequestPlaybackToken)
	api.GET("/courses/:id/access", s.GetCourseAccess)

	authed := api.Group("", s.ViewerRequired())

	// -------- Progress --------
	authed.POST("/lessons/:id/complete", s.CompleteLesson)
	authed.GET("/courses/:id/progress", s.GetCourseProgress)

	// -------- Cart & Purchases --------
	authed.GET("/cart", s.ListCart)
	authed.POST("/cart/:courseId/toggle", s.ToggleCart)
	authed.POST("/courses/:id/enroll", s.FreeEnroll)
	authed.POST("/courses/:id/checkout", s.InitiateCheckout)
	authed.POST("/checkout/:orderReference/outcome", s.ReportCheckoutOutcome)
	authed.POST("/checkout/:orderReference/verify", s.VerifyCheckout)
	authed.GET("/purchases", s.ListPurchases)

	// -------- Studio --------
	studio := authed.Group("/studio")
	studio.GET("/tags", s.ListTags)
	studio.GET("/courses", s.ListStudioCourses)
	studio.POST("/courses", s.CreateCourse)
	studio.GET("/courses/:id", s.GetStudioCourse)
	studio.PATCH("/courses/:id", s.SaveDraft)
	studio.DELETE("/courses/:id", s.DeleteCourse)
	studio.GET("/courses/:id/readiness", s.CheckReadiness)
	studio.POST("/courses/:id/publish", s.PublishCourse)
	studio.POST("/courses/:id/unpublish", s.UnpublishCourse)
	studio.POST("/courses/:id/chapters", s.AddChapter)
	studio.POST("/courses/:id/lessons", s.AddLesson)
	studio.PUT("/lessons/:id/media", s.AttachMedia)
	studio.POST("/lessons/:id/upload", s.CreateUploadSession)
	studio.DELETE("/lessons/:id", s.DeleteLesson)

	studio.GET("/revenue/purchases", s.RevenueByPurchase)
	studio.GET("/revenue/courses", s.RevenueByCourse)
	studio.GET("/revenue/creators", s.RevenueByCreator)
	studio.GET("/revenue/periods", s.RevenueByPeriod)
	studio.GET("/revenue/statements/:month", s.RevenueStatement)

	// -------- Admin --------
	admin := authed.Group("/admin")
	admin.POST("/tags", s.CreateTag)
	admin.GET("/revenue/platform", s.PlatformRevenue)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
