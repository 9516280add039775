package enrollment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus/internal/auth"
	"github.com/odyssey-erp/campus/internal/enrollment"
	"github.com/odyssey-erp/campus/internal/observability"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
	"github.com/odyssey-erp/campus/internal/store/sqlite"
	"github.com/odyssey-erp/campus/internal/view"
	_ "github.com/odyssey-erp/campus/testing"
)

type harness struct {
	store    *sqlite.Store
	sessions *shared.SessionManager
	router   http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "campus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	templates, err := view.NewEngine()
	require.NoError(t, err)
	metrics := observability.NewMetrics()

	h := enrollment.NewHandler(nil, enrollment.NewService(st), templates, shared.NewCSRFManager("secret"), auth.Middleware{}, metrics)
	r := chi.NewRouter()
	h.MountRoutes(r)

	return &harness{
		store:    st,
		sessions: shared.NewSessionManager(client, "test_session", "secret", time.Hour, false),
		router:   r,
	}
}

// do sends one request as p and returns the response together with the
// flash the handler queued, if any.
func (h *harness) do(t *testing.T, method, path string, form url.Values, p *auth.Principal) (*httptest.ResponseRecorder, *shared.FlashMessage) {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	sess, err := h.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	ctx = auth.ContextWithPrincipal(ctx, p)

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req.WithContext(ctx))
	return rec, sess.PopFlash()
}

func student(id int64) *auth.Principal {
	return &auth.Principal{ID: id, Username: "alice", Role: store.RoleStudent}
}

var admin = &auth.Principal{ID: 1, Username: "root", Role: store.RoleAdmin}

func TestEnrollFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, err := h.store.CreateUser(ctx, "alice", "hash", store.RoleStudent)
	require.NoError(t, err)
	course, err := h.store.CreateCourse(ctx, "Algorithms", "intro")
	require.NoError(t, err)

	rec, flash := h.do(t, http.MethodPost, "/courses/1/enroll", nil, student(alice.ID))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	require.NotNil(t, flash)
	assert.Equal(t, "success", flash.Kind)
	assert.Equal(t, "Enrolled successfully", flash.Message)

	_, flash = h.do(t, http.MethodPost, "/courses/1/enroll", nil, student(alice.ID))
	require.NotNil(t, flash)
	assert.Equal(t, "You are already enrolled in this course", flash.Message)

	rows, err := h.store.ListEnrollmentsByCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, flash = h.do(t, http.MethodPost, "/courses/1/unenroll", nil, student(alice.ID))
	require.NotNil(t, flash)
	assert.Equal(t, "Unenrolled from course", flash.Message)

	rows, err = h.store.ListEnrollmentsByCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEnrollUnknownCourse(t *testing.T) {
	h := newHarness(t)
	alice, err := h.store.CreateUser(context.Background(), "alice", "hash", store.RoleStudent)
	require.NoError(t, err)

	rec, flash := h.do(t, http.MethodPost, "/courses/42/enroll", nil, student(alice.ID))
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	require.NotNil(t, flash)
	assert.Equal(t, "danger", flash.Kind)
	assert.Equal(t, shared.UserSafeMessage(shared.ErrNotFound), flash.Message)
}

func TestEnrollMalformedCourseID(t *testing.T) {
	h := newHarness(t)
	_, flash := h.do(t, http.MethodPost, "/courses/abc/enroll", nil, student(7))
	require.NotNil(t, flash)
	assert.Equal(t, "danger", flash.Kind)
}

func TestAdminCannotEnroll(t *testing.T) {
	h := newHarness(t)
	course, err := h.store.CreateCourse(context.Background(), "Algorithms", "")
	require.NoError(t, err)

	_, flash := h.do(t, http.MethodPost, "/courses/1/enroll", nil, admin)
	require.NotNil(t, flash)
	assert.Equal(t, shared.UserSafeMessage(shared.ErrForbidden), flash.Message)

	rows, err := h.store.ListEnrollmentsByCourse(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAddCourse(t *testing.T) {
	h := newHarness(t)
	form := url.Values{"name": {"  Algorithms "}, "description": {"intro"}}

	rec, flash := h.do(t, http.MethodPost, "/courses", form, admin)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.NotNil(t, flash)
	assert.Equal(t, "Course added: Algorithms", flash.Message)

	courses, err := h.store.ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Algorithms", courses[0].Name)
}

func TestAddCourseValidation(t *testing.T) {
	h := newHarness(t)

	rec, _ := h.do(t, http.MethodPost, "/courses", url.Values{"name": {"   "}}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Name is required")

	courses, err := h.store.ListCourses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestStudentCannotAddCourse(t *testing.T) {
	h := newHarness(t)

	_, flash := h.do(t, http.MethodPost, "/courses", url.Values{"name": {"Algorithms"}}, student(2))
	require.NotNil(t, flash)
	assert.Equal(t, shared.UserSafeMessage(shared.ErrForbidden), flash.Message)

	courses, err := h.store.ListCourses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestCourseFormRequiresAdmin(t *testing.T) {
	h := newHarness(t)

	rec, _ := h.do(t, http.MethodGet, "/courses/new", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/courses"`)

	rec, _ = h.do(t, http.MethodGet, "/courses/new", nil, student(2))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestRemoveCourseCascades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, err := h.store.CreateUser(ctx, "alice", "hash", store.RoleStudent)
	require.NoError(t, err)
	course, err := h.store.CreateCourse(ctx, "Algorithms", "")
	require.NoError(t, err)
	_, err = h.store.InsertEnrollment(ctx, alice.ID, course.ID)
	require.NoError(t, err)

	_, flash := h.do(t, http.MethodPost, "/courses/1/delete", nil, admin)
	require.NotNil(t, flash)
	assert.Equal(t, "Course removed", flash.Message)

	ids, err := h.store.ListEnrolledCourseIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRemoveEnrollment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, err := h.store.CreateUser(ctx, "alice", "hash", store.RoleStudent)
	require.NoError(t, err)
	course, err := h.store.CreateCourse(ctx, "Algorithms", "")
	require.NoError(t, err)
	_, err = h.store.InsertEnrollment(ctx, alice.ID, course.ID)
	require.NoError(t, err)

	_, flash := h.do(t, http.MethodPost, "/enrollments/1/1/delete", nil, student(alice.ID))
	require.NotNil(t, flash)
	assert.Equal(t, shared.UserSafeMessage(shared.ErrForbidden), flash.Message)

	_, flash = h.do(t, http.MethodPost, "/enrollments/1/1/delete", nil, admin)
	require.NotNil(t, flash)
	assert.Equal(t, "Enrollment removed", flash.Message)

	ids, err := h.store.ListEnrolledCourseIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAnonymousRedirectsToLogin(t *testing.T) {
	h := newHarness(t)
	rec, _ := h.do(t, http.MethodPost, "/courses/1/enroll", nil, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
}
