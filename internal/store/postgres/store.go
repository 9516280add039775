// Package postgres implements the data store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/puddle/v2"

	"github.com/odyssey-erp/campus/internal/platform/db"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store persists users, courses and enrollments in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool. The schema must already be migrated.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateUser inserts an account row.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, role store.Role) (store.User, error) {
	user := store.User{Username: username, PasswordHash: passwordHash, Role: role}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3) RETURNING id, created_at`,
		username, passwordHash, string(role),
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return store.User{}, classify("create user", err)
	}
	return user, nil
}

// FindUserByUsername fetches an account by exact username.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (store.User, error) {
	var (
		user store.User
		role string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &role, &user.CreatedAt)
	if err != nil {
		return store.User{}, classify("find user", err)
	}
	user.Role = store.Role(role)
	return user, nil
}

// ListUsersByRole returns accounts with the given role ordered by username.
func (s *Store) ListUsersByRole(ctx context.Context, role store.Role) ([]store.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, role, created_at FROM users WHERE role = $1 ORDER BY username`,
		string(role),
	)
	if err != nil {
		return nil, classify("list users", err)
	}
	defer rows.Close()
	var users []store.User
	for rows.Next() {
		var (
			user     store.User
			roleText string
		)
		if err := rows.Scan(&user.ID, &user.Username, &roleText, &user.CreatedAt); err != nil {
			return nil, classify("scan user", err)
		}
		user.Role = store.Role(roleText)
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list users", err)
	}
	return users, nil
}

// CreateCourse inserts a course.
func (s *Store) CreateCourse(ctx context.Context, name, description string) (store.Course, error) {
	course := store.Course{Name: name, Description: description}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO courses (course_name, description) VALUES ($1, $2) RETURNING id, created_at`,
		name, description,
	).Scan(&course.ID, &course.CreatedAt)
	if err != nil {
		return store.Course{}, classify("create course", err)
	}
	return course, nil
}

// ListCourses returns every course ordered by id.
func (s *Store) ListCourses(ctx context.Context) ([]store.Course, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, course_name, description, created_at FROM courses ORDER BY id`)
	if err != nil {
		return nil, classify("list courses", err)
	}
	defer rows.Close()
	var courses []store.Course
	for rows.Next() {
		var c store.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, classify("scan course", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list courses", err)
	}
	return courses, nil
}

// DeleteCourse removes a course together with its enrollments in one transaction.
func (s *Store) DeleteCourse(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE course_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, classify("delete course", err)
	}
	return deleted, nil
}

// InsertEnrollment adds the pair, leaving an existing row untouched.
func (s *Store) InsertEnrollment(ctx context.Context, userID, courseID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO enrollments (user_id, course_id) VALUES ($1, $2) ON CONFLICT (user_id, course_id) DO NOTHING`,
		userID, courseID,
	)
	if err != nil {
		return false, classify("insert enrollment", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteEnrollment removes the pair if present.
func (s *Store) DeleteEnrollment(ctx context.Context, userID, courseID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM enrollments WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		return false, classify("delete enrollment", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListEnrolledCourseIDs returns the course ids the user is enrolled in.
func (s *Store) ListEnrolledCourseIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT course_id FROM enrollments WHERE user_id = $1 ORDER BY course_id`, userID)
	if err != nil {
		return nil, classify("list enrolled courses", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, classify("list enrolled courses", err)
	}
	return ids, nil
}

// ListEnrollmentsByCourse returns the enrollments referencing a course.
func (s *Store) ListEnrollmentsByCourse(ctx context.Context, courseID int64) ([]store.Enrollment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, course_id, created_at FROM enrollments WHERE course_id = $1 ORDER BY user_id`,
		courseID,
	)
	if err != nil {
		return nil, classify("list course enrollments", err)
	}
	defer rows.Close()
	var out []store.Enrollment
	for rows.Next() {
		var e store.Enrollment
		if err := rows.Scan(&e.UserID, &e.CourseID, &e.CreatedAt); err != nil {
			return nil, classify("scan enrollment", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list course enrollments", err)
	}
	return out, nil
}

// ListEnrollmentDetails returns every enrollment joined with user and course names.
func (s *Store) ListEnrollmentDetails(ctx context.Context) ([]store.EnrollmentDetail, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.user_id, e.course_id, e.created_at, u.username, c.course_name
		FROM enrollments e
		JOIN users u ON u.id = e.user_id
		JOIN courses c ON c.id = e.course_id
		ORDER BY u.username, c.course_name`)
	if err != nil {
		return nil, classify("list enrollments", err)
	}
	defer rows.Close()
	var out []store.EnrollmentDetail
	for rows.Next() {
		var d store.EnrollmentDetail
		if err := rows.Scan(&d.UserID, &d.CourseID, &d.CreatedAt, &d.Username, &d.CourseName); err != nil {
			return nil, classify("scan enrollment", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list enrollments", err)
	}
	return out, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// classify maps driver errors onto store sentinels. Connection failures are
// reported as store unavailability; anything else is wrapped as is.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, store.ErrMissingReference)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if unreachable(err) {
		return fmt.Errorf("%s: %w: %v", op, shared.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func unreachable(err error) bool {
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	return errors.As(err, &connectErr) ||
		errors.As(err, &netErr) ||
		errors.Is(err, puddle.ErrClosedPool) ||
		pgconn.SafeToRetry(err) ||
		pgconn.Timeout(err)
}

var _ store.Store = (*Store)(nil)
