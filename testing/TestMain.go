package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ALUMNOS_TEST_MODE", "1")
		if os.Getenv("RATE_LIMIT_PER_MINUTE") == "" {
			_ = os.Setenv("RATE_LIMIT_PER_MINUTE", "0")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
