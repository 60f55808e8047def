// Package guard switches the process into test mode when imported for side
// effects, so server wiring skips access logs and background startup.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ALUMNOS_TEST_MODE") == "" {
			_ = os.Setenv("ALUMNOS_TEST_MODE", "1")
		}
	})
}
