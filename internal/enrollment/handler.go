package enrollment

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/campus/internal/auth"
	"github.com/odyssey-erp/campus/internal/observability"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
	"github.com/odyssey-erp/campus/internal/view"
)

// Handler wires HTTP endpoints for course and enrollment mutations.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	auth      auth.Middleware
	metrics   *observability.Metrics
}

// NewHandler constructs the enrollment handler. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, authMW auth.Middleware, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, auth: authMW, metrics: metrics}
}

// MountRoutes registers course and enrollment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAuthenticated)
		r.With(h.auth.RequireRole(store.RoleAdmin)).Get("/courses/new", h.showCourseForm)
		r.Post("/courses", h.handleAddCourse)
		r.Post("/courses/{courseID}/delete", h.handleRemoveCourse)
		r.Post("/courses/{courseID}/enroll", h.handleEnroll)
		r.Post("/courses/{courseID}/unenroll", h.handleUnenroll)
		r.Post("/enrollments/{userID}/{courseID}/delete", h.handleRemoveEnrollment)
	})
}

type courseFormPageData struct {
	Form   AddCourseInput
	Errors shared.FieldErrors
}

func (h *Handler) showCourseForm(w http.ResponseWriter, r *http.Request) {
	h.renderCourseForm(w, r, http.StatusOK, courseFormPageData{})
}

func (h *Handler) handleAddCourse(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	p := auth.PrincipalFromContext(r.Context())
	input := AddCourseInput{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
	}
	course, err := h.service.AddCourse(r.Context(), p, input)
	var fieldErrs shared.FieldErrors
	if errors.As(err, &fieldErrs) {
		h.metrics.ObserveAction("add_course", err)
		h.renderCourseForm(w, r, http.StatusBadRequest, courseFormPageData{Form: input, Errors: fieldErrs})
		return
	}
	if err == nil {
		h.logger.Info("course added", slog.Int64("course_id", course.ID), slog.Int64("user_id", p.ID))
	}
	h.finish(w, r, "add_course", err, "Course added: "+course.Name)
}

func (h *Handler) handleRemoveCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(r, "courseID")
	if !ok {
		h.finish(w, r, "remove_course", shared.ErrNotFound, "")
		return
	}
	err := h.service.RemoveCourse(r.Context(), auth.PrincipalFromContext(r.Context()), courseID)
	h.finish(w, r, "remove_course", err, "Course removed")
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(r, "courseID")
	if !ok {
		h.finish(w, r, "enroll", shared.ErrNotFound, "")
		return
	}
	res, err := h.service.Enroll(r.Context(), auth.PrincipalFromContext(r.Context()), courseID)
	message := "Enrolled successfully"
	if err == nil && !res.Created {
		message = "You are already enrolled in this course"
	}
	h.finish(w, r, "enroll", err, message)
}

func (h *Handler) handleUnenroll(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(r, "courseID")
	if !ok {
		h.finish(w, r, "unenroll", shared.ErrNotFound, "")
		return
	}
	err := h.service.Unenroll(r.Context(), auth.PrincipalFromContext(r.Context()), courseID)
	h.finish(w, r, "unenroll", err, "Unenrolled from course")
}

func (h *Handler) handleRemoveEnrollment(w http.ResponseWriter, r *http.Request) {
	userID, okUser := pathID(r, "userID")
	courseID, okCourse := pathID(r, "courseID")
	if !okUser || !okCourse {
		h.finish(w, r, "remove_enrollment", shared.ErrNotFound, "")
		return
	}
	err := h.service.RemoveEnrollment(r.Context(), auth.PrincipalFromContext(r.Context()), userID, courseID)
	h.finish(w, r, "remove_enrollment", err, "Enrollment removed")
}

// finish records the outcome and redirects back with a flash message.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, action string, err error, success string) {
	h.metrics.ObserveAction(action, err)
	if err == nil {
		shared.RedirectWithFlash(w, r, "/dashboard", "success", success)
		return
	}

	attrs := []any{slog.String("action", action), slog.String("path", r.URL.Path)}
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		attrs = append(attrs, slog.Int64("user_id", p.ID))
	}
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		shared.RedirectWithFlash(w, r, "/auth/login", "warning", shared.UserSafeMessage(err))
		return
	case errors.Is(err, shared.ErrForbidden):
		h.logger.Warn("action forbidden", attrs...)
	case errors.Is(err, shared.ErrNotFound):
	default:
		h.logger.Error("action failed", append(attrs, slog.Any("error", err))...)
	}
	shared.RedirectWithFlash(w, r, "/dashboard", "danger", shared.UserSafeMessage(err))
}

func (h *Handler) renderCourseForm(w http.ResponseWriter, r *http.Request, status int, data courseFormPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, err := h.csrf.EnsureToken(sess)
	if err != nil {
		h.logger.Error("ensure csrf token", slog.Any("error", err))
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Add Course",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Viewer:      auth.Viewer(auth.PrincipalFromContext(r.Context())),
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/course_form.html", viewData); err != nil {
		h.logger.Error("render course form", slog.Any("error", err))
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
