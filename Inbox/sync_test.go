package Inbox

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueMessageRegistersID(t *testing.T) {
	dir := t.TempDir()
	m := NewSyncManager(dir)

	assert.False(t, m.IsProcessed("3EB0AAA111"))
	require.NoError(t, m.EnqueueMessage("3EB0AAA111", "FUEL UPDATE\nCAR: KCA 542Q", "John", "254700000001", 1766217600))
	assert.True(t, m.IsProcessed("3EB0AAA111"))

	// Queue files are named msg_* so the scanner glob picks them up
	files, err := filepath.Glob(filepath.Join(dir, "raw_messages", "msg_*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var msg messageFile
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "254700000001", msg.SenderPhone)
	assert.Equal(t, int64(1766217600), msg.Timestamp)
}

func TestMarkProcessedAuditIsNotRequeued(t *testing.T) {
	dir := t.TempDir()
	m := NewSyncManager(dir)

	m.MarkProcessed("3EB0BBB222", map[string]string{"type": "admin_command"}, "processed")
	assert.True(t, m.IsProcessed("3EB0BBB222"))

	// Audit files must not match the scanner's queue glob
	queued, err := filepath.Glob(filepath.Join(dir, "processed", "msg_*.json"))
	require.NoError(t, err)
	assert.Empty(t, queued)

	all, err := filepath.Glob(filepath.Join(dir, "processed", "*.json"))
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestProcessedIDsSurviveRestart(t *testing.T) {
	dir := t.TempDir()

	first := NewSyncManager(dir)
	require.NoError(t, first.EnqueueMessage("3EB0CCC333", "FUEL UPDATE", "John", "254700000001", 1766217600))
	first.MarkProcessed("3EB0DDD444", map[string]string{}, "errors")

	second := NewSyncManager(dir)
	assert.True(t, second.IsProcessed("3EB0CCC333"))
	assert.True(t, second.IsProcessed("3EB0DDD444"))
	assert.False(t, second.IsProcessed("3EB0EEE555"))
}

func TestLastProcessedTime(t *testing.T) {
	dir := t.TempDir()
	m := NewSyncManager(dir)

	_, ok := m.LastProcessedTime()
	assert.False(t, ok)

	m.UpdateLastProcessedTime()
	got, ok := m.LastProcessedTime()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), got, 5*time.Second)
}

func TestLastProcessedTimeAcceptsMilliseconds(t *testing.T) {
	dir := t.TempDir()
	m := NewSyncManager(dir)

	want := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	data, _ := json.Marshal(map[string]int64{"timestamp": want.UnixMilli()})
	require.NoError(t, os.WriteFile(m.lastProcessedPath(), data, 0644))

	got, ok := m.LastProcessedTime()
	require.True(t, ok)
	assert.True(t, got.Equal(want))
}

func TestShouldFetchHistory(t *testing.T) {
	dir := t.TempDir()
	m := NewSyncManager(dir)

	fetch, reason := m.ShouldFetchHistory(24)
	assert.True(t, fetch)
	assert.Contains(t, reason, "No last processed time")

	// Fresh high-water mark, under the 6-minute threshold
	m.UpdateLastProcessedTime()
	fetch, _ = m.ShouldFetchHistory(24)
	assert.False(t, fetch)

	// Two hours offline, inside the window but worth a fetch
	stale := time.Now().Add(-2 * time.Hour)
	data, _ := json.Marshal(map[string]int64{"timestamp": stale.Unix()})
	require.NoError(t, os.WriteFile(m.lastProcessedPath(), data, 0644))
	fetch, reason = m.ShouldFetchHistory(24)
	assert.True(t, fetch)
	assert.Contains(t, reason, "will fetch missed messages")
}
