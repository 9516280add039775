package app

import (
	"os"
	"sync"
)

const testModeEnv = "CAMPUS_TEST_MODE"

// InTestMode reports whether CAMPUS_TEST_MODE=1 was set when first asked.
// Test binaries set it through the testing package so main skips startup and
// the router skips access logs.
var InTestMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})
