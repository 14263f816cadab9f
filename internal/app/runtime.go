package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// TestModeEnv is set to "1" by the test helpers so binaries return before
// opening listeners or connections.
const TestModeEnv = "EPSUMSTOCK_TEST_MODE"

var testMode struct {
	once sync.Once
	on   atomic.Bool
}

func detectTestMode() {
	testMode.on.Store(os.Getenv(TestModeEnv) == "1")
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testMode.once.Do(detectTestMode)
	return testMode.on.Load()
}

// RefreshTestMode re-reads the flag after environment changes.
func RefreshTestMode() {
	testMode.once.Do(func() {})
	detectTestMode()
}
