// Package guard enables test mode for any test binary that imports it.
package guard

import (
	"os"
	"sync"

	"github.com/epsum/epsumstock/internal/app"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(app.TestModeEnv) == "" {
			_ = os.Setenv(app.TestModeEnv, "1")
			app.RefreshTestMode()
		}
	})
}
