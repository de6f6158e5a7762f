package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kendall-kelly/install-intake-api/config"
	"github.com/kendall-kelly/install-intake-api/services"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// RequireTestEnvironmentOrSkip is similar to RequireTestEnvironment but skips the test
// instead of failing it. Use this for optional tests that should only run in test environment.
func RequireTestEnvironmentOrSkip(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Skipf("Skipping test: GO_ENV must be 'test' (current: %q)", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in TestMain or suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}

	// Verify it was set
	if os.Getenv("GO_ENV") != "test" {
		t.Fatal("Failed to verify GO_ENV=test")
	}
}

// NewTestConfig returns a SQLite configuration whose files live in a
// per-test temp directory
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	return &config.Config{
		Port:         "0",
		GoEnv:        "test",
		LogLevel:     "info",
		SQLitePath:   filepath.Join(dir, "submissions.db"),
		FallbackFile: filepath.Join(dir, "submissions.json"),
		AdminScope:   "manage:submissions",
	}
}

// NewTestLifecycle initializes a store lifecycle for cfg and closes it when
// the test ends
func NewTestLifecycle(t *testing.T, cfg *config.Config, opts services.LifecycleOptions) *services.StoreLifecycle {
	t.Helper()

	lifecycle := services.NewStoreLifecycle(cfg, zap.NewNop(), opts)
	if err := lifecycle.Init(context.Background()); err != nil {
		t.Fatalf("Failed to initialize submission store: %v", err)
	}
	t.Cleanup(func() { _ = lifecycle.Close() })
	return lifecycle
}

// PrintEnvironmentInfo prints the current test environment configuration.
// Useful for debugging test environment issues.
func PrintEnvironmentInfo() {
	fmt.Printf("Test Environment Info:\n")
	fmt.Printf("  GO_ENV: %s\n", os.Getenv("GO_ENV"))
	fmt.Printf("  DATABASE_URL: %s\n", maskDatabaseURL(os.Getenv("DATABASE_URL")))
	fmt.Printf("  SQLITE_PATH: %s\n", os.Getenv("SQLITE_PATH"))
	fmt.Printf("  FALLBACK_FILE: %s\n", os.Getenv("FALLBACK_FILE"))
}

// maskDatabaseURL hides credentials in the database URL for safe printing
func maskDatabaseURL(raw string) string {
	if raw == "" {
		return "(not set)"
	}
	cfg := config.Config{DatabaseURL: raw}
	masked := cfg.MaskedDatabaseURL()
	if !strings.Contains(strings.ToLower(raw), "test") {
		masked += " [WARNING: may not be test DB]"
	}
	return masked
}
