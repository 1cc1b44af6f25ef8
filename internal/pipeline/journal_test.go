package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_ConcurrentWritesStayLineDelimited(t *testing.T) {
	var buf bytes.Buffer
	j := NewJournal(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 25; k++ {
				j.Log(JournalEntry{Filename: "a.pdf", Status: "processed", Duration: time.Millisecond})
			}
		}()
	}
	wg.Wait()

	dec := json.NewDecoder(&buf)
	count := 0
	for dec.More() {
		var entry JournalEntry
		require.NoError(t, dec.Decode(&entry))
		assert.Equal(t, int64(1), entry.LatencyMs)
		count++
	}
	assert.Equal(t, 500, count)
}

func TestOpenJournal_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "processamento.jsonl")

	for i := 0; i < 2; i++ {
		j, err := OpenJournal(path)
		require.NoError(t, err)
		j.Log(JournalEntry{Filename: "a.pdf", Status: "processed"})
		require.NoError(t, j.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))
}

func TestJournal_NilIsNoop(t *testing.T) {
	var j *Journal
	j.Log(JournalEntry{Filename: "a.pdf"})
	assert.NoError(t, j.Close())
}
