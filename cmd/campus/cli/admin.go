// Package cli holds operator commands bundled into the campus binary.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
)

// Provisioner creates admin accounts and looks up existing ones.
type Provisioner interface {
	ProvisionAdmin(ctx context.Context, username, password string) (store.User, error)
	FindAccount(ctx context.Context, username string) (store.User, error)
}

// AdminCLI bootstraps administrator accounts, which signup never creates.
type AdminCLI struct {
	provisioner Provisioner
}

// NewAdminCLI constructs a new helper instance.
func NewAdminCLI(p Provisioner) (*AdminCLI, error) {
	if p == nil {
		return nil, errors.New("admin cli: provisioner is required")
	}
	return &AdminCLI{provisioner: p}, nil
}

// CreateAdminOptions defines available flags for the create-admin command.
type CreateAdminOptions struct {
	Username string
	// Password falls back to the CAMPUS_ADMIN_PASSWORD environment variable
	// so it need not appear in shell history.
	Password   string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// CreateAdminSummary describes the JSON response for create-admin.
type CreateAdminSummary struct {
	OK       bool   `json:"ok"`
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Existing bool   `json:"existing,omitempty"`
}

// CreateAdminCommand provisions the admin and prints the outcome. An existing
// admin with the same username yields exit code 0 so the command can run on
// every deploy; a username held by a student is an error.
func (c *AdminCLI) CreateAdminCommand(ctx context.Context, opts CreateAdminOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	username := strings.TrimSpace(opts.Username)
	if username == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "create-admin: --username is required")
		return 1
	}
	password := opts.Password
	if password == "" {
		password = os.Getenv("CAMPUS_ADMIN_PASSWORD")
	}
	if password == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "create-admin: --password or CAMPUS_ADMIN_PASSWORD is required")
		return 1
	}

	summary := CreateAdminSummary{OK: true, Username: username}
	user, err := c.provisioner.ProvisionAdmin(ctx, username, password)
	switch {
	case errors.Is(err, shared.ErrDuplicateUsername):
		existing, lookupErr := c.provisioner.FindAccount(ctx, username)
		if lookupErr != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "create-admin: %v\n", lookupErr)
			return 1
		}
		if existing.Role != store.RoleAdmin {
			_, _ = fmt.Fprintf(opts.Stderr, "create-admin: username %q is taken by a %s account\n", username, existing.Role)
			return 1
		}
		summary.Existing = true
		summary.ID = existing.ID
	case err != nil:
		_, _ = fmt.Fprintf(opts.Stderr, "create-admin: %v\n", err)
		return 1
	default:
		summary.ID = user.ID
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "create-admin: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	if summary.Existing {
		_, _ = fmt.Fprintf(opts.Stdout, "admin %q already exists\n", username)
		return 0
	}
	_, _ = fmt.Fprintf(opts.Stdout, "created admin %q (id %d)\n", username, summary.ID)
	return 0
}
