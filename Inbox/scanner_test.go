package Inbox

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FuelBot/Exporter"
	"FuelBot/Parser"
	"FuelBot/Pipeline"
	"FuelBot/State"
)

type silentNotifier struct{}

func (silentNotifier) NotifySender(phone, message string) error { return nil }
func (silentNotifier) NotifyAdmins(message string) error        { return nil }
func (silentNotifier) NotifyGroup(message string) error         { return nil }

func newTestScanner(t *testing.T) (*Scanner, string) {
	t.Helper()
	dir := t.TempDir()

	persister := &Pipeline.Persister{
		Exporter:    Exporter.New(dir, "fuel_records.xlsx"),
		FallbackDir: filepath.Join(dir, "fallback"),
	}
	pipe := Pipeline.New(Parser.NewFuelReportParser(false, nil), State.NewStore(dir), persister, silentNotifier{})
	pipe.Whitelist = Pipeline.WhitelistFunc(func(plate string) bool { return plate == "KCA542Q" })
	return NewScanner(dir, pipe), dir
}

func queueFile(t *testing.T, dir, name, body string) {
	t.Helper()
	inbox := filepath.Join(dir, "raw_messages")
	require.NoError(t, os.MkdirAll(inbox, 0755))
	data, err := json.Marshal(messageFile{
		Body:        body,
		SenderName:  "John",
		SenderPhone: "254700000001",
		Timestamp:   1766217600,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(inbox, name), data, 0644))
}

const validReport = `FUEL UPDATE
DEPARTMENT: LOGISTICS
DRIVER: John Kamau
CAR: KCA 542Q
LITERS: 45.5
AMOUNT: 7500
TYPE: DIESEL
ODOMETER: 125430`

func TestProcessAllEmptyInbox(t *testing.T) {
	scanner, _ := newTestScanner(t)
	success, failed := scanner.ProcessAll()
	assert.Zero(t, success)
	assert.Zero(t, failed)
}

func TestProcessAllAcceptsAndArchives(t *testing.T) {
	scanner, dir := newTestScanner(t)
	queueFile(t, dir, "msg_1766217600_abc.json", validReport)

	success, failed := scanner.ProcessAll()
	assert.Equal(t, 1, success)
	assert.Zero(t, failed)

	// File leaves the queue and lands in processed/
	remaining, _ := filepath.Glob(filepath.Join(dir, "raw_messages", "msg_*.json"))
	assert.Empty(t, remaining)
	archived, _ := filepath.Glob(filepath.Join(dir, "processed", "msg_*.json"))
	assert.Len(t, archived, 1)
}

func TestProcessAllRejectsToErrors(t *testing.T) {
	scanner, dir := newTestScanner(t)
	queueFile(t, dir, "msg_1766217600_bad.json", "random chatter, not a report")

	success, failed := scanner.ProcessAll()
	assert.Zero(t, success)
	assert.Equal(t, 1, failed)

	remaining, _ := filepath.Glob(filepath.Join(dir, "raw_messages", "msg_*.json"))
	assert.Empty(t, remaining)

	errored, _ := filepath.Glob(filepath.Join(dir, "errors", "msg_*.json"))
	require.Len(t, errored, 1)

	data, err := os.ReadFile(errored[0])
	require.NoError(t, err)
	var msg messageFile
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.NotEmpty(t, msg.ParseError)
}

func TestProcessAllEmptyBodyGoesToErrors(t *testing.T) {
	scanner, dir := newTestScanner(t)
	queueFile(t, dir, "msg_1766217600_empty.json", "")

	success, failed := scanner.ProcessAll()
	assert.Zero(t, success)
	assert.Equal(t, 1, failed)

	errored, _ := filepath.Glob(filepath.Join(dir, "errors", "msg_*.json"))
	assert.Len(t, errored, 1)
}
