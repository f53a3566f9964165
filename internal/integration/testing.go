package integration

import (
	"context"
	"os"
	"testing"
	"time"
)

// Config holds integration test configuration from environment.
type Config struct {
	LLMBaseURL  string
	LLMModel    string
	TestTimeout time.Duration
	SkipSlow    bool
}

// LoadConfig loads integration test configuration from environment.
func LoadConfig() *Config {
	return &Config{
		LLMBaseURL:  os.Getenv("REMOTE_BLACKWELL_URL"),
		LLMModel:    os.Getenv("REMOTE_BLACKWELL_MODEL"),
		TestTimeout: 120 * time.Second,
		SkipSlow:    os.Getenv("SKIP_SLOW_TESTS") == "1",
	}
}

// SkipIfNoEndpoint skips the test when no live completion endpoint is set.
func SkipIfNoEndpoint(t *testing.T, cfg *Config) {
	t.Helper()
	if cfg.LLMBaseURL == "" {
		t.Skip("Skipping integration test: REMOTE_BLACKWELL_URL not set")
	}
}

// SkipIfShort skips integration tests in short mode.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// NewTestContext returns a context with the configured test timeout.
func NewTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
