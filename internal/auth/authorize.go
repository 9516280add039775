package auth

import (
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
)

// Authorize reports whether p is present and holds exactly the required role.
func Authorize(p *Principal, required store.Role) bool {
	return p != nil && p.Role == required
}

// Require is the access gate every mutating operation calls first.
func Require(p *Principal, required store.Role) error {
	if p == nil {
		return shared.ErrUnauthenticated
	}
	if !Authorize(p, required) {
		return shared.ErrForbidden
	}
	return nil
}
