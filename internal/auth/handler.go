package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/campus/internal/observability"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	metrics        *observability.Metrics
}

// NewHandler constructs a Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		metrics:        metrics,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/signup", h.showSignup)
	r.Post("/signup", h.handleSignup)
	r.Post("/logout", h.handleLogout)
}

type credentialsForm struct {
	Username string
}

type formPageData struct {
	Form   credentialsForm
	Errors shared.FieldErrors
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if PrincipalFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "pages/login.html", "Log in", formPageData{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	principal, err := h.service.Authenticate(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		h.metrics.ObserveAction("login", err)
		status := http.StatusUnauthorized
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			status = http.StatusServiceUnavailable
			h.logger.Error("authenticate", slog.Any("error", err))
		}
		data := formPageData{
			Form:   credentialsForm{Username: username},
			Errors: shared.FieldErrors{"general": shared.UserSafeMessage(err)},
		}
		h.render(w, r, status, "pages/login.html", "Log in", data)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.sessionManager.Renew(sess)
	StorePrincipal(sess, principal)
	h.metrics.ObserveAction("login", nil)
	h.logger.Info("user logged in", slog.Int64("user_id", principal.ID), slog.String("role", string(principal.Role)))
	shared.RedirectWithFlash(w, r, "/dashboard", "success", "Welcome back, "+principal.Username)
}

func (h *Handler) showSignup(w http.ResponseWriter, r *http.Request) {
	if PrincipalFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "pages/signup.html", "Sign up", formPageData{})
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	user, err := h.service.Register(r.Context(), username, r.PostFormValue("password"))
	h.metrics.ObserveAction("signup", err)
	if err != nil {
		data := formPageData{Form: credentialsForm{Username: username}}
		status := http.StatusBadRequest
		var fieldErrs shared.FieldErrors
		switch {
		case errors.As(err, &fieldErrs):
			data.Errors = fieldErrs
		case errors.Is(err, shared.ErrDuplicateUsername):
			status = http.StatusConflict
			data.Errors = shared.FieldErrors{"Username": shared.UserSafeMessage(err)}
		default:
			status = http.StatusServiceUnavailable
			h.logger.Error("register", slog.Any("error", err))
			data.Errors = shared.FieldErrors{"general": shared.UserSafeMessage(err)}
		}
		h.render(w, r, status, "pages/signup.html", "Sign up", data)
		return
	}
	h.logger.Info("student registered", slog.Int64("user_id", user.ID))
	shared.RedirectWithFlash(w, r, "/auth/login", "success", "Account created, please log in")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data formPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, err := h.csrfManager.EnsureToken(sess)
	if err != nil {
		h.logger.Error("ensure csrf token", slog.Any("error", err))
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, name, viewData); err != nil {
		h.logger.Error("render "+name, slog.Any("error", err))
	}
}
