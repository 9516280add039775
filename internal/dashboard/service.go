// Package dashboard projects the store into the role-specific view shown
// after login.
package dashboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/campus/internal/auth"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
)

// Repository is the read side of the data store the projection needs.
type Repository interface {
	ListCourses(ctx context.Context) ([]store.Course, error)
	ListUsersByRole(ctx context.Context, role store.Role) ([]store.User, error)
	ListEnrolledCourseIDs(ctx context.Context, userID int64) ([]int64, error)
	ListEnrollmentDetails(ctx context.Context) ([]store.EnrollmentDetail, error)
}

// View is the dashboard state for one principal. Admin-only fields stay
// empty for students.
type View struct {
	Role              store.Role               `json:"role"`
	Courses           []store.Course           `json:"courses"`
	EnrolledCourseIDs map[int64]bool           `json:"enrolled_course_ids,omitempty"`
	Students          []store.User             `json:"students,omitempty"`
	Enrollments       []store.EnrollmentDetail `json:"enrollments,omitempty"`
}

// IsEnrolled reports whether the student view includes courseID.
func (v View) IsEnrolled(courseID int64) bool {
	return v.EnrolledCourseIDs[courseID]
}

// EnrollmentCount returns how many enrollments reference courseID.
func (v View) EnrollmentCount(courseID int64) int {
	n := 0
	for _, e := range v.Enrollments {
		if e.CourseID == courseID {
			n++
		}
	}
	return n
}

// Service builds dashboard views.
type Service struct {
	repo Repository
}

// NewService constructs the dashboard service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Project reads fresh state for p. Nothing is cached between calls.
func (s *Service) Project(ctx context.Context, p *auth.Principal) (View, error) {
	if p == nil {
		return View{}, shared.ErrUnauthenticated
	}
	if p.IsAdmin() {
		return s.projectAdmin(ctx)
	}
	return s.projectStudent(ctx, p)
}

func (s *Service) projectStudent(ctx context.Context, p *auth.Principal) (View, error) {
	courses, err := s.repo.ListCourses(ctx)
	if err != nil {
		return View{}, fmt.Errorf("dashboard courses: %w", err)
	}
	ids, err := s.repo.ListEnrolledCourseIDs(ctx, p.ID)
	if err != nil {
		return View{}, fmt.Errorf("dashboard enrolled courses: %w", err)
	}
	enrolled := make(map[int64]bool, len(ids))
	for _, id := range ids {
		enrolled[id] = true
	}
	return View{Role: p.Role, Courses: courses, EnrolledCourseIDs: enrolled}, nil
}

func (s *Service) projectAdmin(ctx context.Context) (View, error) {
	view := View{Role: store.RoleAdmin}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		courses, err := s.repo.ListCourses(gctx)
		if err != nil {
			return fmt.Errorf("dashboard courses: %w", err)
		}
		view.Courses = courses
		return nil
	})
	g.Go(func() error {
		students, err := s.repo.ListUsersByRole(gctx, store.RoleStudent)
		if err != nil {
			return fmt.Errorf("dashboard students: %w", err)
		}
		view.Students = students
		return nil
	})
	g.Go(func() error {
		details, err := s.repo.ListEnrollmentDetails(gctx)
		if err != nil {
			return fmt.Errorf("dashboard enrollments: %w", err)
		}
		view.Enrollments = details
		return nil
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}
	return view, nil
}
