package auth_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/campus/internal/auth"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
)

// stubUsers is an in-memory store.Users keyed by username.
type stubUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]store.User
	err    error
}

func newStubUsers() *stubUsers {
	return &stubUsers{users: make(map[string]store.User)}
}

func (s *stubUsers) CreateUser(ctx context.Context, username, passwordHash string, role store.Role) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return store.User{}, s.err
	}
	if _, ok := s.users[username]; ok {
		return store.User{}, fmt.Errorf("create user: %w", store.ErrDuplicate)
	}
	s.nextID++
	user := store.User{ID: s.nextID, Username: username, PasswordHash: passwordHash, Role: role, CreatedAt: time.Now()}
	s.users[username] = user
	return user, nil
}

func (s *stubUsers) FindUserByUsername(ctx context.Context, username string) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return store.User{}, s.err
	}
	user, ok := s.users[username]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func (s *stubUsers) ListUsersByRole(ctx context.Context, role store.Role) ([]store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.User
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func newService(users store.Users) *auth.Service {
	return auth.NewService(users, auth.ServiceConfig{HashCost: bcrypt.MinCost})
}

func TestRegisterCreatesStudent(t *testing.T) {
	users := newStubUsers()
	svc := newService(users)

	user, err := svc.Register(context.Background(), "  alice ", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, store.RoleStudent, user.Role)
	assert.NotEqual(t, "pw1", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw1")))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newService(newStubUsers())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "alice", "other")
	assert.ErrorIs(t, err, shared.ErrDuplicateUsername)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(newStubUsers())
	ctx := context.Background()

	cases := map[string]struct {
		username, password, field string
	}{
		"blank username":    {"   ", "pw1", "Username"},
		"blank password":    {"alice", "  ", "Password"},
		"spaced username":   {"al ice", "pw1", "Username"},
		"long username":     {strings.Repeat("a", 65), "pw1", "Username"},
		"password too long": {"alice", strings.Repeat("p", 73), "Password"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.username, tc.password)
			require.ErrorIs(t, err, shared.ErrValidation)
			var fieldErrs shared.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			assert.Contains(t, fieldErrs, tc.field)
		})
	}
}

func TestRegisterStoreUnavailable(t *testing.T) {
	users := newStubUsers()
	users.err = fmt.Errorf("create user: %w", shared.ErrStoreUnavailable)
	svc := newService(users)

	_, err := svc.Register(context.Background(), "alice", "pw1")
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, shared.ErrDuplicateUsername)
}

func TestProvisionAdmin(t *testing.T) {
	svc := newService(newStubUsers())
	user, err := svc.ProvisionAdmin(context.Background(), "root", "rootpw")
	require.NoError(t, err)
	assert.Equal(t, store.RoleAdmin, user.Role)
}

func TestAuthenticate(t *testing.T) {
	svc := newService(newStubUsers())
	ctx := context.Background()
	_, err := svc.ProvisionAdmin(ctx, "root", "rootpw")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "alice", "pw2")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "ghost", "pw1")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	p, err := svc.Authenticate(ctx, " alice ", "pw1 ")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, store.RoleStudent, p.Role)
	assert.False(t, p.IsAdmin())

	admin, err := svc.Authenticate(ctx, "root", "rootpw")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
}

func TestAuthenticateStoreUnavailable(t *testing.T) {
	users := newStubUsers()
	users.err = fmt.Errorf("find user: %w", shared.ErrStoreUnavailable)
	svc := newService(users)

	_, err := svc.Authenticate(context.Background(), "alice", "pw1")
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestFindAccount(t *testing.T) {
	users := newStubUsers()
	service := newService(users)
	_, err := service.ProvisionAdmin(context.Background(), "root", "rootpw")
	require.NoError(t, err)

	user, err := service.FindAccount(context.Background(), " root ")
	require.NoError(t, err)
	assert.Equal(t, store.RoleAdmin, user.Role)

	_, err = service.FindAccount(context.Background(), "ghost")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	users.err = fmt.Errorf("find user: %w", shared.ErrStoreUnavailable)
	_, err = service.FindAccount(context.Background(), "root")
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}
