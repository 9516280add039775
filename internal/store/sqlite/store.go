// Package sqlite implements the data store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
	"github.com/odyssey-erp/campus/internal/store/migrations"
)

// Store persists users, courses and enrollments in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database file at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection serialises writers, which keeps check-then-act
	// sequences free of SQLITE_BUSY without application locks.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w: %v", shared.ErrStoreUnavailable, err)
	}
	if err := migrations.UpSQLite(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// CreateUser inserts an account row.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, role store.Role) (store.User, error) {
	now := time.Now().UTC()
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		username, passwordHash, string(role), toMillis(now),
	)
	if err != nil {
		return store.User{}, classify("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.User{}, classify("create user", err)
	}
	return store.User{ID: id, Username: username, PasswordHash: passwordHash, Role: role, CreatedAt: fromMillis(toMillis(now))}, nil
}

// FindUserByUsername fetches an account by exact username.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (store.User, error) {
	var (
		user      store.User
		role      string
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &role, &createdAt)
	if err != nil {
		return store.User{}, classify("find user", err)
	}
	user.Role = store.Role(role)
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

// ListUsersByRole returns accounts with the given role ordered by username.
func (s *Store) ListUsersByRole(ctx context.Context, role store.Role) ([]store.User, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, username, role, created_at FROM users WHERE role = ? ORDER BY username`,
		string(role),
	)
	if err != nil {
		return nil, classify("list users", err)
	}
	defer rows.Close()
	var users []store.User
	for rows.Next() {
		var (
			user      store.User
			roleText  string
			createdAt int64
		)
		if err := rows.Scan(&user.ID, &user.Username, &roleText, &createdAt); err != nil {
			return nil, classify("scan user", err)
		}
		user.Role = store.Role(roleText)
		user.CreatedAt = fromMillis(createdAt)
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list users", err)
	}
	return users, nil
}

// CreateCourse inserts a course.
func (s *Store) CreateCourse(ctx context.Context, name, description string) (store.Course, error) {
	now := time.Now().UTC()
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO courses (course_name, description, created_at) VALUES (?, ?, ?)`,
		name, description, toMillis(now),
	)
	if err != nil {
		return store.Course{}, classify("create course", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.Course{}, classify("create course", err)
	}
	return store.Course{ID: id, Name: name, Description: description, CreatedAt: fromMillis(toMillis(now))}, nil
}

// ListCourses returns every course ordered by id.
func (s *Store) ListCourses(ctx context.Context) ([]store.Course, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, course_name, description, created_at FROM courses ORDER BY id`)
	if err != nil {
		return nil, classify("list courses", err)
	}
	defer rows.Close()
	var courses []store.Course
	for rows.Next() {
		var (
			c         store.Course
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &createdAt); err != nil {
			return nil, classify("scan course", err)
		}
		c.CreatedAt = fromMillis(createdAt)
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list courses", err)
	}
	return courses, nil
}

// DeleteCourse removes a course together with its enrollments in one transaction.
func (s *Store) DeleteCourse(ctx context.Context, id int64) (bool, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, classify("delete course", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE course_id = ?`, id); err != nil {
		return false, classify("delete course enrollments", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return false, classify("delete course", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, classify("delete course", err)
	}
	if err := tx.Commit(); err != nil {
		return false, classify("commit delete course", err)
	}
	return affected > 0, nil
}

// InsertEnrollment adds the pair, leaving an existing row untouched.
func (s *Store) InsertEnrollment(ctx context.Context, userID, courseID int64) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO enrollments (user_id, course_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, course_id) DO NOTHING`,
		userID, courseID, toMillis(time.Now()),
	)
	if err != nil {
		return false, classify("insert enrollment", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, classify("insert enrollment", err)
	}
	return affected == 1, nil
}

// DeleteEnrollment removes the pair if present.
func (s *Store) DeleteEnrollment(ctx context.Context, userID, courseID int64) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM enrollments WHERE user_id = ? AND course_id = ?`, userID, courseID)
	if err != nil {
		return false, classify("delete enrollment", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, classify("delete enrollment", err)
	}
	return affected > 0, nil
}

// ListEnrolledCourseIDs returns the course ids the user is enrolled in.
func (s *Store) ListEnrolledCourseIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT course_id FROM enrollments WHERE user_id = ? ORDER BY course_id`, userID)
	if err != nil {
		return nil, classify("list enrolled courses", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, classify("scan course id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list enrolled courses", err)
	}
	return ids, nil
}

// ListEnrollmentsByCourse returns the enrollments referencing a course.
func (s *Store) ListEnrollmentsByCourse(ctx context.Context, courseID int64) ([]store.Enrollment, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT user_id, course_id, created_at FROM enrollments WHERE course_id = ? ORDER BY user_id`,
		courseID,
	)
	if err != nil {
		return nil, classify("list course enrollments", err)
	}
	defer rows.Close()
	var out []store.Enrollment
	for rows.Next() {
		var (
			e         store.Enrollment
			createdAt int64
		)
		if err := rows.Scan(&e.UserID, &e.CourseID, &createdAt); err != nil {
			return nil, classify("scan enrollment", err)
		}
		e.CreatedAt = fromMillis(createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list course enrollments", err)
	}
	return out, nil
}

// ListEnrollmentDetails returns every enrollment joined with user and course names.
func (s *Store) ListEnrollmentDetails(ctx context.Context) ([]store.EnrollmentDetail, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
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
		var (
			d         store.EnrollmentDetail
			createdAt int64
		)
		if err := rows.Scan(&d.UserID, &d.CourseID, &createdAt, &d.Username, &d.CourseName); err != nil {
			return nil, classify("scan enrollment", err)
		}
		d.CreatedAt = fromMillis(createdAt)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list enrollments", err)
	}
	return out, nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %v", op, shared.ErrStoreUnavailable, err)
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
		case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s: %w", op, store.ErrMissingReference)
		}
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED, sqlite3lib.SQLITE_CANTOPEN, sqlite3lib.SQLITE_IOERR:
			return fmt.Errorf("%s: %w: %v", op, shared.ErrStoreUnavailable, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ store.Store = (*Store)(nil)
