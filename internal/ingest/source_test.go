package ingest_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frc-scouting/scoutqr/internal/fsutil"
	"github.com/frc-scouting/scoutqr/internal/ingest"
	"github.com/frc-scouting/scoutqr/internal/testutil"
)

func TestReadPayloads(t *testing.T) {
	got, err := ingest.ReadPayloads(strings.NewReader("+A12\r\n\n*A12\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"+A12\r", "", "*A12"}, got)

	_, err = ingest.ReadPayloads(strings.NewReader(strings.Repeat("x", 70*1024)))
	assert.Error(t, err)
}

func TestBatchFiles(t *testing.T) {
	dataDir := t.TempDir()
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile(filepath.Join(dataDir, "b_match2.txt"), []byte("x"), 0o644))
	require.NoError(t, fsys.WriteFile(filepath.Join(dataDir, "a_match1.txt"), []byte("x"), 0o644))
	require.NoError(t, fsys.WriteFile(filepath.Join(dataDir, "notes.md"), []byte("x"), 0o644))

	got, err := ingest.BatchFiles(fsys, dataDir, "*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dataDir, "a_match1.txt"),
		filepath.Join(dataDir, "b_match2.txt"),
	}, got)

	_, err = ingest.BatchFiles(fsys, dataDir, "[")
	assert.Error(t, err)
}

func TestReadBatchFile(t *testing.T) {
	dataDir := t.TempDir()
	fsys := fsutil.NewMemoryFileSystem()
	body := testutil.ObjectivePayload + "\n" + testutil.SubjectivePayload + "\n"
	require.NoError(t, fsys.WriteFile(filepath.Join(dataDir, "match42.txt"), []byte(body), 0o644))

	got, err := ingest.ReadBatchFile(fsys, dataDir, "match42.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{testutil.ObjectivePayload, testutil.SubjectivePayload}, got)

	_, err = ingest.ReadBatchFile(fsys, dataDir, "../match42.txt")
	assert.Error(t, err)

	_, err = ingest.ReadBatchFile(fsys, dataDir, "missing.txt")
	assert.Error(t, err)
}

func TestWatchFlushesOnTick(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lines := make(chan string)
	done := make(chan error, 1)
	go func() { done <- h.pipe.Watch(ctx, "serial:/dev/ttyACM0", lines, 30*time.Second) }()

	lines <- testutil.ObjectivePayload
	// The send above returns once Watch holds the line, so the tick finds
	// it pending.
	h.clock.Advance(30 * time.Second)

	require.Eventually(t, func() bool {
		batches, err := h.db.Batches(ctx)
		return err == nil && len(batches) == 1
	}, 5*time.Second, 10*time.Millisecond)

	close(lines)
	require.NoError(t, <-done)

	batches, err := h.db.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "serial:/dev/ttyACM0", batches[0].Source)
	assert.Equal(t, 1, batches[0].Decoded)
}

func TestWatchFlushesOnClose(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lines := make(chan string, 2)
	lines <- testutil.ObjectivePayload
	lines <- testutil.SubjectivePayload
	close(lines)

	require.NoError(t, h.pipe.Watch(ctx, "stdin", lines, time.Minute))

	batches, err := h.db.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 2, batches[0].Decoded)

	teams, err := h.db.TeamMatches(ctx, h.reg)
	require.NoError(t, err)
	assert.Len(t, teams, 1)
}

func TestWatchFlushesOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	lines := make(chan string)
	done := make(chan error, 1)
	go func() { done <- h.pipe.Watch(ctx, "stdin", lines, time.Minute) }()

	lines <- testutil.ObjectivePayload
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	batches, err := h.db.Batches(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 1, batches[0].Decoded)
}
