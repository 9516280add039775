package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
)

// maxPasswordBytes is the longest secret bcrypt accepts.
const maxPasswordBytes = 72

// ServiceConfig tunes credential hashing.
type ServiceConfig struct {
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int
}

// Service wraps authentication business rules.
type Service struct {
	users     store.Users
	validator *validator.Validate
	cost      int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService constructs a new Service.
func NewService(users store.Users, cfg ServiceConfig) *Service {
	cost := cfg.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{users: users, validator: validator.New(), cost: cost}
}

// Authenticate verifies a username/password pair and returns the session
// principal. Unknown usernames and wrong passwords are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, shared.ErrInvalidCredentials
	}

	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.compareDummy(password)
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return &Principal{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// Register creates a student account. The role is never caller-supplied.
func (s *Service) Register(ctx context.Context, username, password string) (store.User, error) {
	return s.create(ctx, username, password, store.RoleStudent)
}

// ProvisionAdmin creates an admin account. Only operator tooling calls it.
func (s *Service) ProvisionAdmin(ctx context.Context, username, password string) (store.User, error) {
	return s.create(ctx, username, password, store.RoleAdmin)
}

// FindAccount returns the stored account for username. A missing account is
// reported as shared.ErrNotFound.
func (s *Service) FindAccount(ctx context.Context, username string) (store.User, error) {
	user, err := s.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, shared.ErrNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("find account: %w", err)
	}
	return user, nil
}

func (s *Service) create(ctx context.Context, username, password string, role store.Role) (store.User, error) {
	creds := Credentials{Username: strings.TrimSpace(username), Password: strings.TrimSpace(password)}
	if err := s.validator.Struct(creds); err != nil {
		return store.User{}, shared.FieldErrorsFrom(err)
	}
	if strings.ContainsFunc(creds.Username, unicode.IsSpace) {
		return store.User{}, shared.FieldErrors{"Username": "Username must not contain spaces"}
	}
	if len(creds.Password) > maxPasswordBytes {
		return store.User{}, shared.FieldErrors{"Password": "Password is too long"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.cost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, creds.Username, string(hash), role)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.User{}, shared.ErrDuplicateUsername
		}
		return store.User{}, fmt.Errorf("register: %w", err)
	}
	return user, nil
}

// compareDummy spends one bcrypt comparison so a missing account costs the
// same as a wrong password.
func (s *Service) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("campus-dummy-credential"), s.cost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}
