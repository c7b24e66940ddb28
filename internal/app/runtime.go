package app

import (
	"log/slog"
	"os"
)

const testModeEnv = "SHOPDESK_TEST_MODE"

// InTestMode reports whether binaries should exit before touching external
// services, used when the module's mains are exercised in CI.
func InTestMode() bool {
	return os.Getenv(testModeEnv) == "1"
}

// SkipStartup logs and returns true when component must not start.
func SkipStartup(component string) bool {
	if !InTestMode() {
		return false
	}
	slog.Default().Info("test mode detected, skipping startup", slog.String("component", component))
	return true
}
