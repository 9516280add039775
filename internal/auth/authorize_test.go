package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
)

func TestRequire(t *testing.T) {
	student := &Principal{ID: 2, Username: "alice", Role: store.RoleStudent}
	admin := &Principal{ID: 1, Username: "root", Role: store.RoleAdmin}

	assert.ErrorIs(t, Require(nil, store.RoleStudent), shared.ErrUnauthenticated)
	assert.ErrorIs(t, Require(nil, store.RoleAdmin), shared.ErrUnauthenticated)
	assert.ErrorIs(t, Require(student, store.RoleAdmin), shared.ErrForbidden)
	assert.ErrorIs(t, Require(admin, store.RoleStudent), shared.ErrForbidden)
	assert.NoError(t, Require(student, store.RoleStudent))
	assert.NoError(t, Require(admin, store.RoleAdmin))

	assert.False(t, Authorize(nil, store.RoleAdmin))
	assert.True(t, Authorize(admin, store.RoleAdmin))
}

func TestViewer(t *testing.T) {
	assert.Nil(t, Viewer(nil))
	v := Viewer(&Principal{ID: 7, Username: "root", Role: store.RoleAdmin})
	assert.Equal(t, int64(7), v.ID)
	assert.True(t, v.IsAdmin())
}
