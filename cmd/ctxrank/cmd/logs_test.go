package cmd

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ctxrank/internal/logging"
)

const sampleLog = `{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"context_built","request_id":"a"}
{"time":"2026-01-02T10:00:01Z","level":"WARN","msg":"index_unavailable","request_id":"b"}
{"time":"2026-01-02T10:00:02Z","level":"ERROR","msg":"breaker_open","request_id":"b"}
`

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctxrank.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))
	return path
}

func TestLogsCmd_Tail(t *testing.T) {
	path := writeLog(t)

	out, err := execute(t, "logs", "--file", path, "-n", "2")

	require.NoError(t, err)
	assert.NotContains(t, out, "context_built")
	assert.Contains(t, out, "index_unavailable")
	assert.Contains(t, out, "breaker_open")
}

func TestLogsCmd_Filters(t *testing.T) {
	path := writeLog(t)

	out, err := execute(t, "logs", "--file", path, "--level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "breaker_open")
	assert.NotContains(t, out, "index_unavailable")

	out, err = execute(t, "logs", "--file", path, "--request-id", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "context_built")
	assert.NotContains(t, out, "breaker_open")
}

func TestLogsCmd_MissingFile(t *testing.T) {
	_, err := execute(t, "logs", "--file", filepath.Join(t.TempDir(), "none.log"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "log file not found")
}

func TestLogsCmd_InvalidPattern(t *testing.T) {
	path := writeLog(t)

	_, err := execute(t, "logs", "--file", path, "--filter", "(")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestFollowLogs_EmitsAppendedEntries(t *testing.T) {
	path := writeLog(t)
	viewer := logging.NewViewer(logging.ViewerConfig{NoColor: true}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu    sync.Mutex
		lines []string
	)
	done := make(chan error, 1)
	go func() {
		done <- followLogs(ctx, viewer, path, func(line string) {
			mu.Lock()
			lines = append(lines, line)
			mu.Unlock()
		})
	}()

	// let Follow seek to the end before appending
	time.Sleep(150 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"time":"2026-01-02T10:00:03Z","level":"INFO","msg":"cache_hit"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(lines) == 1
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, lines[0], "cache_hit")
	assert.NotContains(t, lines[0], "breaker_open")
}
