package logging_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Collects JSON log lines
type logRecorder struct {
	t   *testing.T
	mu  sync.Mutex
	buf bytes.Buffer
}

func newRecorder(t *testing.T) *logRecorder {
	return &logRecorder{t: t}
}

func (r *logRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

// Decode the records written since the last call, dropping their timestamps
func (r *logRecorder) take() []map[string]any {
	r.t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	var records []map[string]any
	scanner := bufio.NewScanner(&r.buf)
	for scanner.Scan() {
		var record map[string]any
		require.NoError(r.t, json.Unmarshal(scanner.Bytes(), &record))

		timestamp, ok := record["time"].(string)
		require.True(r.t, ok, "record without time: %v", record)
		parsed, err := time.Parse(time.RFC3339Nano, timestamp)
		require.NoError(r.t, err)
		require.WithinDuration(r.t, time.Now(), parsed, 5*time.Second)
		delete(record, "time")

		records = append(records, record)
	}
	require.NoError(r.t, scanner.Err())
	r.buf.Reset()
	return records
}

func (r *logRecorder) takeOne() map[string]any {
	r.t.Helper()
	records := r.take()
	require.Len(r.t, records, 1)
	return records[0]
}
