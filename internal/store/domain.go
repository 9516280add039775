package store

import "time"

// Role enumerates the account roles known to the system.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// User is an account row. PasswordHash holds a bcrypt hash, never the secret.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Course is an offering students can enroll in.
type Course struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Enrollment links one user to one course.
type Enrollment struct {
	UserID    int64     `json:"user_id"`
	CourseID  int64     `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EnrollmentDetail is an Enrollment joined with the names it references.
type EnrollmentDetail struct {
	Enrollment
	Username   string `json:"username"`
	CourseName string `json:"course_name"`
}
