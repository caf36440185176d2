// Package util holds helpers shared by integration tests: container brokers
// and caches started through testcontainers, free local addresses, and
// polling of HTTP endpoints such as /metrics or /healthz.
package util

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

const (
	ReadyTimeout = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

// RequireE2E skips tests that need Docker unless DSP_E2E is set and the run
// is not -short.
func RequireE2E(t testing.TB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if os.Getenv("DSP_E2E") == "" {
		t.Skip("set DSP_E2E=1 to run container tests")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
}

// FreeAddr returns a loopback host:port nobody listens on right now.
func FreeAddr(t testing.TB) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

// WaitForBody polls url until a 200 response containing substr arrives or
// ctx is done.
func WaitForBody(ctx context.Context, url, substr string) error {
	for {
		if ok, err := bodyContains(ctx, url, substr); err != nil {
			return err
		} else if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%q never served %q: %w", url, substr, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// WaitForMetric polls a Prometheus endpoint until a series matching substr
// is exposed.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	return WaitForBody(ctx, metricsURL, substr)
}

func bodyContains(ctx context.Context, url, substr string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, nil
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", url, err)
	}
	return resp.StatusCode == http.StatusOK && strings.Contains(string(body), substr), nil
}
