package recovery

import (
	"context"
	"runtime/debug"

	"github.com/vanpelt/sitecraft/internal/logger"
)

// SafeGo runs a function in a goroutine with automatic panic recovery so a
// single misbehaving timer or stream reader can't take down the TUI.
func SafeGo(name string, fn func()) {
	go func() {
		defer recoverAndLog(name)
		fn()
	}()
}

// SafeGoWithCleanup runs a function in a goroutine with panic recovery and cleanup
func SafeGoWithCleanup(name string, fn func(), cleanup func()) {
	go func() {
		if cleanup != nil {
			defer cleanup()
		}
		defer recoverAndLog(name)
		fn()
	}()
}

// SafeGoContext runs fn with ctx and recovers panics. fn is expected to return
// once ctx is done.
func SafeGoContext(ctx context.Context, name string, fn func(ctx context.Context)) {
	go func() {
		defer recoverAndLog(name)
		fn(ctx)
	}()
}

func recoverAndLog(name string) {
	if r := recover(); r != nil {
		logger.Errorf("🚨 PANIC recovered in goroutine '%s': %v", name, r)
		logger.Debugf("Stack trace:\n%s", debug.Stack())
	}
}
