// Package testing sets the environment shared by package tests. Importing it
// for side effects keeps the binaries from dialing Postgres or Redis.
package testing

import (
	"os"
	stdtesting "testing"
)

var testEnv = map[string]string{
	"NOU_TEST_MODE":      "1",
	"JWT_SECRET":         "nou-test-secret",
	"APP_TIMEZONE":       "America/Bogota",
	"ACTIVITY_RETENTION": "2160h",
}

func init() {
	for key, value := range testEnv {
		if _, set := os.LookupEnv(key); !set {
			_ = os.Setenv(key, value)
		}
	}
}

// TestMain runs m with the shared environment in place.
func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
