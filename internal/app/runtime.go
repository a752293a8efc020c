package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

// TestModeEnv disables network side effects in the binaries when truthy.
const TestModeEnv = "NOU_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether cmd/nou and cmd/worker should return before
// dialing Postgres or Redis. The environment is read once and cached.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads the environment and returns the new value.
func RefreshTestMode() bool {
	enabled, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	enabled = err == nil && enabled
	testMode.Store(&enabled)
	return enabled
}
