package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosrabelo/terminalnator/domain/ports"
)

func TestRecorderWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(&buf, 8)

	ts := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	r.Record(ports.Event{Timestamp: ts, ProfileID: 5, SessionID: "abc", Kind: ports.EventCommand, Detail: "show version"})
	r.Record(ports.Event{Timestamp: ts, ProfileID: 5, SessionID: "abc", Kind: ports.EventState, Detail: "closed", Reason: "idle"})
	require.NoError(t, r.Close())

	scanner := bufio.NewScanner(&buf)
	var lines []map[string]any
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)

	assert.Equal(t, "command", lines[0]["kind"])
	assert.Equal(t, "show version", lines[0]["detail"])
	assert.Equal(t, float64(5), lines[0]["profile_id"])
	assert.Equal(t, "2026-10-19T12:00:00Z", lines[0]["time"])
	assert.NotContains(t, lines[0], "level")
	assert.NotContains(t, lines[0], "reason")
	assert.Equal(t, "idle", lines[1]["reason"])
}

// blockingWriter holds every write until released.
type blockingWriter struct {
	release chan struct{}
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	<-w.release
	return len(p), nil
}

func TestRecorderDropsWhenFull(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{})}
	r := NewRecorder(w, 2)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			r.Record(ports.Event{Kind: ports.EventCommand, Detail: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a slow sink")
	}
	assert.GreaterOrEqual(t, r.Dropped(), uint64(47))

	close(w.release)
	require.NoError(t, r.Close())
}

func TestRecorderAfterClose(t *testing.T) {
	r := NewRecorder(io.Discard, 1)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	r.Record(ports.Event{Kind: ports.EventState})
	assert.Equal(t, uint64(1), r.Dropped())
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.jsonl")
	r, err := OpenFile(path, 0)
	require.NoError(t, err)

	r.Record(ports.Event{Timestamp: time.Now(), ProfileID: 1, Kind: ports.EventPush, Detail: "3 lines pushed"})
	require.NoError(t, r.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"detail":"3 lines pushed"`)
}

type countingSink struct{ n int }

func (c *countingSink) Record(ports.Event) { c.n++ }

func TestMulti(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	m := Multi{a, nil, b}
	m.Record(ports.Event{})
	m.Record(ports.Event{})
	assert.Equal(t, 2, a.n)
	assert.Equal(t, 2, b.n)
}
