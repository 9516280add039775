package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/campus/internal/auth"
	"github.com/odyssey-erp/campus/internal/dashboard"
	"github.com/odyssey-erp/campus/internal/enrollment"
	"github.com/odyssey-erp/campus/internal/observability"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
	"github.com/odyssey-erp/campus/internal/view"
)

// SessionCookieName names the browser session cookie.
const SessionCookieName = "campus_session"

// Services bundles the domain services behind the HTTP layer.
type Services struct {
	Auth       *auth.Service
	Enrollment *enrollment.Service
	Dashboard  *dashboard.Service
}

// NewServices builds the domain services over one store.
func NewServices(cfg *Config, st store.Store) Services {
	return Services{
		Auth:       auth.NewService(st, auth.ServiceConfig{HashCost: cfg.BcryptCost}),
		Enrollment: enrollment.NewService(st),
		Dashboard:  dashboard.NewService(st),
	}
}

// NewHandler assembles services, handlers and middleware into the root
// http.Handler.
func NewHandler(cfg *Config, logger *slog.Logger, st store.Store, redisClient *redis.Client, metrics *observability.Metrics) (http.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	templates, err := view.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	sessionManager := shared.NewSessionManager(redisClient, SessionCookieName, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	authMiddleware := auth.Middleware{Logger: logger}

	services := NewServices(cfg, st)
	return NewRouter(RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		AuthHandler:       auth.NewHandler(logger, services.Auth, templates, sessionManager, csrfManager, metrics),
		EnrollmentHandler: enrollment.NewHandler(logger, services.Enrollment, templates, csrfManager, authMiddleware, metrics),
		DashboardHandler:  dashboard.NewHandler(logger, services.Dashboard, templates, csrfManager, authMiddleware),
		Store:             st,
		Metrics:           metrics,
		AccessLog:         !InTestMode(),
	}), nil
}
