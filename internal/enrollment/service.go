package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/campus/internal/auth"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
)

// Service executes enrollment mutations. Every method authorizes the
// principal before touching the store.
type Service struct {
	repo      Repository
	validator *validator.Validate
}

// NewService constructs the enrollment service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: validator.New()}
}

// Enroll adds the student to a course. Enrolling twice is a no-op reported
// through Result.Created.
func (s *Service) Enroll(ctx context.Context, p *auth.Principal, courseID int64) (Result, error) {
	if err := auth.Require(p, store.RoleStudent); err != nil {
		return Result{}, err
	}
	created, err := s.repo.InsertEnrollment(ctx, p.ID, courseID)
	if err != nil {
		if errors.Is(err, store.ErrMissingReference) {
			return Result{}, shared.ErrNotFound
		}
		return Result{}, fmt.Errorf("enroll: %w", err)
	}
	return Result{Created: created}, nil
}

// Unenroll removes the student's own enrollment if present.
func (s *Service) Unenroll(ctx context.Context, p *auth.Principal, courseID int64) error {
	if err := auth.Require(p, store.RoleStudent); err != nil {
		return err
	}
	if _, err := s.repo.DeleteEnrollment(ctx, p.ID, courseID); err != nil {
		return fmt.Errorf("unenroll: %w", err)
	}
	return nil
}

// RemoveEnrollment deletes any student's enrollment.
func (s *Service) RemoveEnrollment(ctx context.Context, p *auth.Principal, userID, courseID int64) error {
	if err := auth.Require(p, store.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.repo.DeleteEnrollment(ctx, userID, courseID); err != nil {
		return fmt.Errorf("remove enrollment: %w", err)
	}
	return nil
}

// AddCourse creates a course.
func (s *Service) AddCourse(ctx context.Context, p *auth.Principal, input AddCourseInput) (store.Course, error) {
	if err := auth.Require(p, store.RoleAdmin); err != nil {
		return store.Course{}, err
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if err := s.validator.Struct(input); err != nil {
		return store.Course{}, shared.FieldErrorsFrom(err)
	}
	course, err := s.repo.CreateCourse(ctx, input.Name, input.Description)
	if err != nil {
		return store.Course{}, fmt.Errorf("add course: %w", err)
	}
	return course, nil
}

// RemoveCourse deletes a course and every enrollment referencing it.
// Removing an absent course is a no-op.
func (s *Service) RemoveCourse(ctx context.Context, p *auth.Principal, courseID int64) error {
	if err := auth.Require(p, store.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.repo.DeleteCourse(ctx, courseID); err != nil {
		return fmt.Errorf("remove course: %w", err)
	}
	return nil
}
