// Package store defines the relational state of the enrollment system and
// the port its backends implement.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate indicates a uniqueness constraint rejected the write.
	ErrDuplicate = errors.New("store: duplicate record")
	// ErrMissingReference indicates a foreign key rejected the write.
	ErrMissingReference = errors.New("store: referenced record missing")
)

// Users persists accounts.
type Users interface {
	CreateUser(ctx context.Context, username, passwordHash string, role Role) (User, error)
	FindUserByUsername(ctx context.Context, username string) (User, error)
	ListUsersByRole(ctx context.Context, role Role) ([]User, error)
}

// Courses persists course offerings.
type Courses interface {
	CreateCourse(ctx context.Context, name, description string) (Course, error)
	ListCourses(ctx context.Context) ([]Course, error)
	// DeleteCourse removes the course and its enrollments atomically. It
	// reports whether a course row was removed.
	DeleteCourse(ctx context.Context, id int64) (bool, error)
}

// Enrollments persists the user/course relation.
type Enrollments interface {
	// InsertEnrollment adds the pair unless it already exists. It reports
	// whether a row was created.
	InsertEnrollment(ctx context.Context, userID, courseID int64) (bool, error)
	DeleteEnrollment(ctx context.Context, userID, courseID int64) (bool, error)
	ListEnrolledCourseIDs(ctx context.Context, userID int64) ([]int64, error)
	// ListEnrollmentsByCourse lists a course's rows; it is how callers confirm
	// that DeleteCourse left no enrollment behind.
	ListEnrollmentsByCourse(ctx context.Context, courseID int64) ([]Enrollment, error)
	ListEnrollmentDetails(ctx context.Context) ([]EnrollmentDetail, error)
}

// Store is the full data store implemented by every backend.
type Store interface {
	Users
	Courses
	Enrollments
	Ping(ctx context.Context) error
	Close() error
}
