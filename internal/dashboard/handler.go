package dashboard

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/campus/internal/auth"
	"github.com/odyssey-erp/campus/internal/platform/httpx"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/view"
)

// Handler serves the dashboard as HTML and JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	auth      auth.Middleware
}

// NewHandler constructs the dashboard handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, authMW auth.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, auth: authMW}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.auth.RequireAuthenticated).Get("/dashboard", h.showDashboard)
	r.Get("/api/dashboard", h.apiDashboard)
}

func (h *Handler) showDashboard(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	v, err := h.service.Project(r.Context(), p)
	if err != nil {
		if errors.Is(err, shared.ErrUnauthenticated) {
			shared.RedirectWithFlash(w, r, "/auth/login", "warning", shared.UserSafeMessage(err))
			return
		}
		h.logger.Error("project dashboard", slog.Any("error", err), slog.Int64("user_id", p.ID))
		h.renderError(w, r, httpx.StatusFor(err), shared.UserSafeMessage(err))
		return
	}

	sess := shared.SessionFromContext(r.Context())
	csrfToken, err := h.csrf.EnsureToken(sess)
	if err != nil {
		h.logger.Error("ensure csrf token", slog.Any("error", err))
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	data := view.TemplateData{
		Title:       "Dashboard",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Viewer:      auth.Viewer(p),
		Data:        v,
	}
	if err := h.templates.Render(w, "pages/dashboard.html", data); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) apiDashboard(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	v, err := h.service.Project(r.Context(), p)
	if err != nil {
		if !errors.Is(err, shared.ErrUnauthenticated) {
			h.logger.Error("project dashboard", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	csrfToken, _ := h.csrf.EnsureToken(shared.SessionFromContext(r.Context()))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	data := view.TemplateData{
		Title:       http.StatusText(status),
		CSRFToken:   csrfToken,
		CurrentPath: r.URL.Path,
		Viewer:      auth.Viewer(auth.PrincipalFromContext(r.Context())),
		Data:        map[string]string{"Message": message},
	}
	if err := h.templates.Render(w, "pages/error.html", data); err != nil {
		h.logger.Error("render error page", slog.Any("error", err))
	}
}
