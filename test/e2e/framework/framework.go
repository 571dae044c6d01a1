// Package framework provides the infrastructure for dockerpoller end-to-end tests.
// It starts throwaway registries with testcontainers and cleans them up after each test.
package framework

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
)

// EnableEnv must be set for end-to-end tests to run, as they need a Docker daemon.
const EnableEnv = "DOCKERPOLLER_E2E"

// E2EFramework manages the lifecycle of end-to-end test resources.
type E2EFramework struct {
	ctx          context.Context
	cleanupFuncs []func() error
}

// NewE2EFramework returns a framework for t, skipping the test unless EnableEnv is set.
func NewE2EFramework(t *testing.T) *E2EFramework {
	t.Helper()

	if os.Getenv(EnableEnv) == "" {
		t.Skipf("set %s=1 to run end-to-end tests", EnableEnv)
	}

	return &E2EFramework{ctx: t.Context()}
}

// Context returns the context test resources are bound to.
func (f *E2EFramework) Context() context.Context {
	return f.ctx
}

func (f *E2EFramework) addCleanupFunc(cleanup func() error) {
	f.cleanupFuncs = append(f.cleanupFuncs, cleanup)
}

// Cleanup releases every test resource, most recent first.
func (f *E2EFramework) Cleanup() error {
	var errs []error

	for i := len(f.cleanupFuncs) - 1; i >= 0; i-- {
		if err := f.cleanupFuncs[i](); err != nil {
			errs = append(errs, err)
		}
	}

	f.cleanupFuncs = nil

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %w", errors.Join(errs...))
	}

	return nil
}

// RunTestWithCleanup runs testFunc and cleans up afterwards, even when the test fails.
func (f *E2EFramework) RunTestWithCleanup(t *testing.T, testFunc func() error) {
	t.Helper()

	defer func() {
		if err := f.Cleanup(); err != nil {
			t.Logf("Cleanup failed: %v", err)
		}
	}()

	if err := testFunc(); err != nil {
		t.Fatalf("Test failed: %v", err)
	}
}

// CreateLocalRegistry starts an anonymous registry and registers it for cleanup.
func (f *E2EFramework) CreateLocalRegistry() (*LocalRegistry, error) {
	registry, err := NewLocalRegistry(f.ctx)
	if err != nil {
		return nil, err
	}

	f.addCleanupFunc(func() error {
		return registry.Cleanup(context.WithoutCancel(f.ctx))
	})

	return registry, nil
}
