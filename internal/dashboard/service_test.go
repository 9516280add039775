package dashboard

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus/internal/auth"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
)

type stubRepo struct {
	courses  []store.Course
	students []store.User
	enrolled map[int64][]int64
	details  []store.EnrollmentDetail
	err      error
	reads    atomic.Int32
}

func (s *stubRepo) ListCourses(ctx context.Context) ([]store.Course, error) {
	s.reads.Add(1)
	return s.courses, s.err
}

func (s *stubRepo) ListUsersByRole(ctx context.Context, role store.Role) ([]store.User, error) {
	s.reads.Add(1)
	if role != store.RoleStudent {
		return nil, fmt.Errorf("unexpected role %q", role)
	}
	return s.students, s.err
}

func (s *stubRepo) ListEnrolledCourseIDs(ctx context.Context, userID int64) ([]int64, error) {
	s.reads.Add(1)
	return s.enrolled[userID], s.err
}

func (s *stubRepo) ListEnrollmentDetails(ctx context.Context) ([]store.EnrollmentDetail, error) {
	s.reads.Add(1)
	return s.details, s.err
}

func fixture() *stubRepo {
	return &stubRepo{
		courses: []store.Course{{ID: 1, Name: "Algorithms"}, {ID: 2, Name: "Databases"}},
		students: []store.User{
			{ID: 2, Username: "alice", Role: store.RoleStudent},
			{ID: 3, Username: "bob", Role: store.RoleStudent},
		},
		enrolled: map[int64][]int64{2: {1}},
		details: []store.EnrollmentDetail{
			{Enrollment: store.Enrollment{UserID: 2, CourseID: 1}, Username: "alice", CourseName: "Algorithms"},
			{Enrollment: store.Enrollment{UserID: 3, CourseID: 1}, Username: "bob", CourseName: "Algorithms"},
		},
	}
}

func TestProjectAnonymous(t *testing.T) {
	repo := fixture()
	_, err := NewService(repo).Project(context.Background(), nil)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	assert.Zero(t, repo.reads.Load())
}

func TestProjectStudent(t *testing.T) {
	svc := NewService(fixture())
	v, err := svc.Project(context.Background(), &auth.Principal{ID: 2, Username: "alice", Role: store.RoleStudent})
	require.NoError(t, err)

	assert.Equal(t, store.RoleStudent, v.Role)
	assert.Len(t, v.Courses, 2)
	assert.True(t, v.IsEnrolled(1))
	assert.False(t, v.IsEnrolled(2))
	assert.Empty(t, v.Students)
	assert.Empty(t, v.Enrollments)
}

func TestProjectAdmin(t *testing.T) {
	repo := fixture()
	v, err := NewService(repo).Project(context.Background(), &auth.Principal{ID: 1, Username: "root", Role: store.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, store.RoleAdmin, v.Role)
	assert.Len(t, v.Courses, 2)
	assert.Len(t, v.Students, 2)
	assert.Len(t, v.Enrollments, 2)
	assert.Equal(t, 2, v.EnrollmentCount(1))
	assert.Equal(t, 0, v.EnrollmentCount(2))
	assert.Equal(t, int32(3), repo.reads.Load())
}

func TestProjectReadsFreshState(t *testing.T) {
	repo := fixture()
	svc := NewService(repo)
	p := &auth.Principal{ID: 3, Username: "bob", Role: store.RoleStudent}

	v, err := svc.Project(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, v.IsEnrolled(2))

	repo.enrolled[3] = []int64{2}
	v, err = svc.Project(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, v.IsEnrolled(2))
}

func TestProjectStoreUnavailable(t *testing.T) {
	repo := fixture()
	repo.err = fmt.Errorf("list courses: %w", shared.ErrStoreUnavailable)

	_, err := NewService(repo).Project(context.Background(), &auth.Principal{ID: 1, Role: store.RoleAdmin})
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)

	_, err = NewService(repo).Project(context.Background(), &auth.Principal{ID: 2, Role: store.RoleStudent})
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}
