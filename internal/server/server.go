// Package server assembles the HTTP surface.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sudo-init-do/brandwacht/internal/config"
	"github.com/sudo-init-do/brandwacht/internal/geo"
	"github.com/sudo-init-do/brandwacht/internal/marketplace"
	"github.com/sudo-init-do/brandwacht/internal/messaging"
	"github.com/sudo-init-do/brandwacht/internal/metrics"
	mware "github.com/sudo-init-do/brandwacht/internal/middleware"
	"github.com/sudo-init-do/brandwacht/internal/store"
	"github.com/sudo-init-do/brandwacht/internal/utils"
)

// Options are the collaborators built by the process bootstrap.
type Options struct {
	Config   config.Config
	Store    store.Store
	Notifier marketplace.Notifier
	Resolver marketplace.ActorResolver
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger

	// Now overrides the clock used for signature freshness.
	Now func() time.Time
}

// New builds the echo instance with every route registered.
func New(opts Options) (*echo.Echo, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := opts.Config

	locator, err := geo.NewLocator()
	if err != nil {
		return nil, err
	}

	hub := messaging.NewHub(logger.Named("live"))
	intake := marketplace.NewIntakeService(opts.Store, opts.Notifier,
		marketplace.Rates{HourlyRate: cfg.HourlyRate, PlatformFeeRate: cfg.PlatformFeeRate},
		opts.Metrics, logger.Named("intake"))
	claims := marketplace.NewClaimService(opts.Store, opts.Notifier, opts.Resolver, logger.Named("claims"),
		marketplace.WithBroadcaster(hub),
		marketplace.WithRecorder(opts.Metrics),
	)
	sessions := utils.NewSessionSigner(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)
	h := marketplace.NewHandler(intake, claims, sessions, hub, cfg.AppURL, logger.Named("http"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger.Named("http")))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := opts.Store.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "store unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	if opts.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// Public form endpoints with per-IP rate limiting.
	public := e.Group("")
	public.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	public.Use(middleware.BodyLimit("64K"))
	public.POST("/intake", h.SubmitIntake)
	public.GET("/intake/current", h.CurrentIntake)
	public.GET("/calculator", h.Calculator)
	public.GET("/cities/nearest", locator.HandleNearest)

	e.POST("/claim-callback", h.ClaimCallback, mware.SlackSignature(cfg.SlackSigningSecret, opts.Now, logger.Named("callback")))

	dash := e.Group("/dashboard")
	dash.Use(mware.DashboardGuard(cfg.DashboardUser, cfg.DashboardPasswordHash))
	dash.Use(mware.RequireRoleHint(utils.RoleAgent, utils.RoleCustomer))
	dash.GET("/requests/:id", h.Dashboard)
	dash.GET("/requests/:id/live", h.DashboardLive)

	return e, nil
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}
