// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modhost/modhost/internal/config"
)

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a polling
// reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServe_StartsAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.ModsDir = modsFixture(t)
	cfg.Log.Level = config.LogLevelError
	cfg.Console.Port = 0

	var stdout, stderr syncBuffer
	app := NewApp(Dependencies{Config: staticConfig{cfg: cfg}, Stdout: &stdout, Stderr: &stderr})
	root := NewRootCommand(app)
	root.SetArgs([]string{"serve", "--watch", "--token", "secret", "--host-key", filepath.Join(t.TempDir(), "host_key")})
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	deadline := time.Now().Add(10 * time.Second)
	for !strings.Contains(stdout.String(), "Watching") {
		if time.Now().After(deadline) {
			t.Fatalf("console did not start:\nstdout:\n%s\nstderr:\n%s", stdout.String(), stderr.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
	assertContains(t, "serve", stdout.String(), "Console listening on 127.0.0.1:", "secret", "operator")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
