// Package enrollment applies role-checked mutations to courses and
// enrollments.
package enrollment

import "github.com/odyssey-erp/campus/internal/store"

// Repository is the slice of the data store the engine writes through.
type Repository interface {
	store.Courses
	store.Enrollments
}

// Result reports the effect of an enroll request.
type Result struct {
	// Created is false when the student was already enrolled.
	Created bool
}

// AddCourseInput carries the admin's new course form.
type AddCourseInput struct {
	Name        string `validate:"required,max=120"`
	Description string `validate:"max=1000"`
}
