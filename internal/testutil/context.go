package testutil

import (
	"context"
	"testing"
)

// Context returns a context that is canceled when the test finishes.
// It mirrors testing.T.Context (Go 1.24+) for older toolchains.
func Context(tb testing.TB) context.Context {
	tb.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	tb.Cleanup(cancel)
	return ctx
}
