package cli

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer guards a buffer written by the server goroutine.
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

func TestServe_HealthzAndShutdown(t *testing.T) {
	clearStoreEnv(t)
	dir := t.TempDir()
	staticDir := filepath.Join(dir, "public")
	require.NoError(t, os.MkdirAll(staticDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<h1>hi</h1>"), 0644))

	ready := make(chan net.Addr, 1)
	opts := &ServeOptions{
		RootOptions: &RootOptions{Format: "text"},
		StoreFlags:  StoreFlags{Database: filepath.Join(dir, "serve.db")},
		Address:     "127.0.0.1:0",
		StaticDir:   staticDir,
		Ready:       func(addr net.Addr) { ready <- addr },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	stdout := &syncBuffer{}
	stderr := &syncBuffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	done := make(chan error, 1)
	go func() {
		done <- runServe(opts, cmd)
	}()

	var addr net.Addr
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not become ready")
	}
	base := "http://" + addr.String()

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, err = http.Post(base+"/input", "application/json", strings.NewReader(`{"x":5}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(base + "/")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<h1>hi</h1>", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}

	assert.Contains(t, stdout.String(), "Listening on "+addr.String())
	assert.Contains(t, stderr.String(), "store ready")
	assert.Contains(t, stderr.String(), "server stopped gracefully")
}

func TestServe_InvalidConfig(t *testing.T) {
	clearStoreEnv(t)

	opts := &ServeOptions{
		RootOptions: &RootOptions{Format: "text"},
		StoreFlags:  StoreFlags{Backend: "mongo"},
		Address:     "127.0.0.1:0",
	}
	cmd := &cobra.Command{}
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := runServe(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid config")
}

func TestServe_ListenError(t *testing.T) {
	clearStoreEnv(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	opts := &ServeOptions{
		RootOptions: &RootOptions{Format: "text"},
		StoreFlags:  StoreFlags{Database: filepath.Join(t.TempDir(), "busy.db")},
		Address:     ln.Addr().String(),
	}
	cmd := &cobra.Command{}
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err = runServe(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to listen")
}
