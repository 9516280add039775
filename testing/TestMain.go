// Package testing puts the process into test mode on import. Test packages
// that boot the application import it for side effects.
package testing

import (
	"os"
	stdtesting "testing"
)

var defaults = map[string]string{
	"CAMPUS_TEST_MODE": "1",
	"SESSION_SECRET":   "test-session-secret",
	"CSRF_SECRET":      "test-csrf-secret",
	"DB_DRIVER":        "sqlite",
}

func init() {
	for key, value := range defaults {
		if key == "CAMPUS_TEST_MODE" || os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}

// TestMain runs the package tests after init has applied the defaults.
func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
