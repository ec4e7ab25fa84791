// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package framework

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hopwatch/hopwatch/pkg/api"
	"github.com/hopwatch/hopwatch/pkg/checks/runtime"
	"github.com/hopwatch/hopwatch/pkg/checks/trace"
	"github.com/hopwatch/hopwatch/pkg/config"
	"github.com/hopwatch/hopwatch/pkg/hopwatch"
)

// checkConfigPath is the file the runtime check configuration is written to.
const checkConfigPath = "testdata/checks.yaml"

// Framework creates end-to-end tests for a hopwatch instance.
type Framework struct {
	t *testing.T
}

// New creates a new test framework.
func New(t *testing.T) *Framework {
	return &Framework{t: t}
}

// E2E creates a new end-to-end test running a full hopwatch instance.
// If cfg is nil a default startup configuration with a file loader is used.
func (f *Framework) E2E(cfg *config.Config) *E2E {
	if cfg == nil {
		cfg = &config.Config{
			Name: "hopwatch.e2e.test",
			Api:  api.Config{ListeningAddress: ":50080"},
			Loader: config.LoaderConfig{
				Type:     "file",
				Interval: time.Second,
				File:     config.FileLoaderConfig{Path: checkConfigPath},
			},
		}
	}

	return &E2E{
		t:        f.t,
		config:   *cfg,
		hopwatch: hopwatch.New(cfg, "e2e-test"),
	}
}

// E2E is an end-to-end test.
type E2E struct {
	config   config.Config
	t        *testing.T
	hopwatch *hopwatch.Hopwatch

	checks  runtime.Config
	buf     bytes.Buffer
	server  *http.Server
	running int32
}

// WithTraceroute sets the traceroute check configuration of the test.
func (e *E2E) WithTraceroute(cfg *trace.Config) *E2E {
	e.checks = runtime.Config{Traceroute: cfg}
	b, err := yaml.Marshal(e.checks)
	if err != nil {
		e.t.Fatalf("Failed to marshal check config: %v", err)
	}
	e.buf.Reset()
	e.buf.Write(b)
	return e
}

// UpdateChecks updates the check configuration of a running test.
func (e *E2E) UpdateChecks(cfg *trace.Config) *E2E {
	e.WithTraceroute(cfg)

	// Write the config to file only if no remote server is used.
	if e.server == nil {
		if err := e.writeCheckConfig(); err != nil {
			e.t.Fatalf("Failed to write check config: %v", err)
		}
	}
	return e
}

// WithRemote sets up a remote server to serve the check config.
func (e *E2E) WithRemote() *E2E {
	e.server = &http.Server{
		Addr:              "localhost:50505",
		Handler:           http.HandlerFunc(e.serveConfig),
		ReadHeaderTimeout: 3 * time.Second,
	}
	return e
}

// Run starts the test. If a remote server is configured it runs it in a goroutine.
func (e *E2E) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&e.running, 0, 1) {
		e.t.Fatal("E2E.Run must be called once")
	}

	if e.server != nil {
		go func() {
			if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.t.Errorf("Failed to start server: %v", err)
			}
		}()
		defer func() {
			if err := e.server.Shutdown(ctx); err != nil {
				e.t.Errorf("Failed to shutdown server: %v", err)
			}
		}()
	} else {
		if err := e.writeCheckConfig(); err != nil {
			e.t.Fatalf("Failed to write check config: %v", err)
		}
	}

	return e.hopwatch.Run(ctx)
}

// AwaitAll waits for provided URL to be ready, the loader to reload the configuration,
// and all checks to be executed before proceeding.
//
// Must be called after the e2e test started with [E2E.Run].
func (e *E2E) AwaitAll(url string) *E2E {
	e.t.Helper()
	const failureTimeout = 5 * time.Second
	e.AwaitStartup(url, failureTimeout).
		AwaitLoader().
		AwaitChecks()
	return e
}

// AwaitStartup waits for the provided URL to be ready.
//
// Must be called after the e2e test started with [E2E.Run].
func (e *E2E) AwaitStartup(u string, failureTimeout time.Duration) *E2E {
	e.t.Helper()
	const backoff = 100 * time.Millisecond

	// Initial delay to allow the server to start.
	<-time.After(backoff)
	if !e.isRunning() {
		e.t.Fatal("E2E.AwaitStartup must be called after E2E.Run")
	}

	deadline := time.Now().Add(failureTimeout)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, u, http.NoBody)
		if err != nil {
			e.t.Fatalf("Failed to create request: %v", err)
		}

		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return e
			}
		}

		<-time.After(backoff)
	}

	e.t.Fatalf("%s did not become ready within %v", u, failureTimeout)
	return e
}

// AwaitLoader waits for the loader to reload the configuration.
//
// Must be called after the e2e test started with [E2E.Run].
func (e *E2E) AwaitLoader() *E2E {
	e.t.Helper()
	if !e.isRunning() {
		e.t.Fatal("E2E.AwaitLoader must be called after E2E.Run")
	}

	e.t.Logf("Waiting %s for loader to reload configuration", e.config.Loader.Interval.String())
	<-time.After(e.config.Loader.Interval)
	return e
}

// AwaitChecks waits for all configured checks to be executed before proceeding.
//
// Must be called after the e2e test started with [E2E.Run].
func (e *E2E) AwaitChecks() *E2E {
	e.t.Helper()
	if !e.isRunning() {
		e.t.Fatal("E2E.AwaitChecks must be called after E2E.Run")
	}

	wait := 5 * time.Second
	if e.checks.Traceroute != nil {
		wait = max(wait, e.checks.Traceroute.Interval+e.checks.Traceroute.Timeout)
	}
	e.t.Logf("Waiting %s for checks to be executed", wait.String())
	<-time.After(wait)
	return e
}

// writeCheckConfig writes the check config to a file at the provided path.
func (e *E2E) writeCheckConfig() error {
	const fileMode = 0o755
	err := os.MkdirAll(filepath.Dir(checkConfigPath), fileMode)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", filepath.Dir(checkConfigPath), err)
	}

	err = os.WriteFile(checkConfigPath, e.buf.Bytes(), fileMode)
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", checkConfigPath, err)
	}
	return nil
}

// isRunning returns true if the test is running.
func (e *E2E) isRunning() bool {
	return atomic.LoadInt32(&e.running) == 1
}

// serveConfig serves the check config over HTTP as text/yaml.
func (e *E2E) serveConfig(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(e.buf.Bytes())
	if err != nil {
		e.t.Fatalf("Failed to write response: %v", err)
	}
}
