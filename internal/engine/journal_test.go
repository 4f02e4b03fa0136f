package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"simpleboard/internal/model"
	"simpleboard/internal/storage"
)

func settled(board, item string, state model.MoveState) model.MoveRecord {
	return model.MoveRecord{
		BoardID: board,
		ItemID:  item,
		Request: move("todo", 0, "done", 1),
		State:   state,
	}
}

func openJournal(t *testing.T, cfg JournalCfg) (*Journal, context.CancelFunc) {
	t.Helper()
	j, cancel, err := NewJournal(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("create journal: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		<-j.Done()
	})
	return j, cancel
}

func TestJournalFlushOnBufferLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moves.log")

	j, _ := openJournal(t, JournalCfg{
		Path:             path,
		EnqueueTimeout:   500 * time.Millisecond,
		FlushInterval:    30 * time.Second, // avoid periodic flush interference
		MaxQueuedRecords: 16,
		BufferBytes:      128, // small to trigger flush by size
	})

	if err := j.Append(settled("b1", "k1", model.StateConfirmed)); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if size := storage.Size(path); size != 0 {
		t.Fatalf("expected no flush after first append, got size %d", size)
	}

	big := settled("b1", strings.Repeat("x", 40), model.StateRolledBack)
	big.Cause = strings.Repeat("c", 10)
	if err := j.Append(big); err != nil {
		t.Fatalf("append second: %v", err)
	}

	// Append blocks until the record is buffered, so the flush triggered by
	// the second record has already happened.
	if size := storage.Size(path); size == 0 {
		t.Fatalf("expected flush on buffer limit, got size %d", size)
	}
}

func TestJournalFlushOnShutdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moves.log")

	j, cancel := openJournal(t, JournalCfg{
		Path:          path,
		FlushInterval: 30 * time.Second,
		BufferBytes:   1 << 20,
	})

	if err := j.Append(settled("b1", "k1", model.StateConfirmed)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if size := storage.Size(path); size != 0 {
		t.Fatalf("expected no flush before shutdown, got size %d", size)
	}

	cancel()
	<-j.Done()
	if size := storage.Size(path); size == 0 {
		t.Fatalf("expected flush after shutdown, got size %d", size)
	}

	if err := j.Append(settled("b1", "k2", model.StateConfirmed)); err != ErrJournalClosed {
		t.Fatalf("expected ErrJournalClosed after shutdown, got %v", err)
	}
}

func TestJournalFlushOnInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moves.log")

	cfg := JournalCfg{
		Path:          path,
		FlushInterval: 20 * time.Millisecond,
		BufferBytes:   1 << 20, // large to avoid size-based flush
	}
	j, _ := openJournal(t, cfg)

	if err := j.Append(settled("b1", "k1", model.StateConfirmed)); err != nil {
		t.Fatalf("append: %v", err)
	}

	require.Eventually(t, func() bool {
		return storage.Size(path) > 0
	}, time.Second, cfg.FlushInterval/2, "expected periodic flush to write data")
}

func TestJournalLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moves.log")
	j, cancel := openJournal(t, JournalCfg{Path: path})

	want := []model.MoveRecord{
		settled("b1", "a", model.StateConfirmed),
		settled("b2", "b", model.StateRolledBack),
	}
	want[1].Cause = "remote said no"
	want[1].Request.SourceIndex = 3
	for _, rec := range want {
		require.NoError(t, j.Append(rec))
	}
	cancel()
	<-j.Done()

	got := j.Load()
	require.Len(t, got, 2)
	for i := range want {
		want[i].Sequence = uint64(i)
		assert.Equal(t, want[i], got[i])
	}
}

func TestJournalSequenceContinuesAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moves.log")

	j1, cancel1 := openJournal(t, JournalCfg{Path: path})
	require.NoError(t, j1.Append(settled("b1", "a", model.StateConfirmed)))
	require.NoError(t, j1.Append(settled("b1", "b", model.StateConfirmed)))
	cancel1()
	<-j1.Done()

	j2, cancel2 := openJournal(t, JournalCfg{Path: path})
	require.NoError(t, j2.Append(settled("b1", "c", model.StateConfirmed)))
	cancel2()
	<-j2.Done()

	got := j2.Load()
	require.Len(t, got, 3)
	assert.Equal(t, uint64(2), got[2].Sequence)
	assert.Equal(t, "c", got[2].ItemID)
}

func TestJournalLoadStopsAtCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moves.log")
	j, cancel := openJournal(t, JournalCfg{Path: path})
	require.NoError(t, j.Append(settled("b1", "a", model.StateConfirmed)))
	require.NoError(t, j.Append(settled("b1", "b", model.StateConfirmed)))
	cancel()
	<-j.Done()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	first := len(encodeRecord(settled("b1", "a", model.StateConfirmed)))

	// flip a byte in the second record's payload
	raw[first+payloadLenBytes+checksumBytes+2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	got := j.Load()
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ItemID)

	// a torn tail is ignored as well
	require.NoError(t, os.WriteFile(path, raw[:first+3], 0o644))
	got = j.Load()
	require.Len(t, got, 1)
}

func TestJournalLoadMissingFile(t *testing.T) {
	assert.Empty(t, loadJournal(filepath.Join(t.TempDir(), "missing.log"), zap.NewNop()))
}
