package auth

import (
	"github.com/odyssey-erp/campus/internal/store"
	"github.com/odyssey-erp/campus/internal/view"
)

// Principal is the authenticated identity attached to a session. It is built
// at login and never written to the relational store.
type Principal struct {
	ID       int64
	Username string
	Role     store.Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == store.RoleAdmin
}

// Viewer converts the principal into the template-facing account summary.
func Viewer(p *Principal) *view.Viewer {
	if p == nil {
		return nil
	}
	return &view.Viewer{ID: p.ID, Username: p.Username, Role: string(p.Role)}
}

// Credentials is the username/password pair submitted by login and signup forms.
type Credentials struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required,max=72"`
}
