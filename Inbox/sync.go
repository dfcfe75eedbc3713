package Inbox

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"FuelBot/Whatsapp"
)

// SyncManager tracks which message ids have been seen and when the
// system last processed anything, so a restart can recover messages
// that arrived while the receiver was down.
type SyncManager struct {
	dataDir string

	mu           sync.Mutex
	processedIDs map[string]bool
}

func NewSyncManager(dataDir string) *SyncManager {
	m := &SyncManager{
		dataDir:      dataDir,
		processedIDs: map[string]bool{},
	}
	m.loadProcessedIDs()
	return m
}

func (m *SyncManager) rawDir() string       { return filepath.Join(m.dataDir, "raw_messages") }
func (m *SyncManager) processedDir() string { return filepath.Join(m.dataDir, "processed") }
func (m *SyncManager) errorsDir() string    { return filepath.Join(m.dataDir, "errors") }
func (m *SyncManager) lastProcessedPath() string {
	return filepath.Join(m.dataDir, "last_processed.json")
}

// loadProcessedIDs seeds the dedupe set from the on-disk folders.
// Filenames are timestamp_msgid.json.
func (m *SyncManager) loadProcessedIDs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, dir := range []string{m.rawDir(), m.processedDir(), m.errorsDir()} {
		files, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			continue
		}
		for _, f := range files {
			name := strings.TrimSuffix(filepath.Base(f), ".json")
			name = strings.TrimPrefix(name, "msg_")
			if i := strings.Index(name, "_"); i >= 0 && i+1 < len(name) {
				m.processedIDs[name[i+1:]] = true
			} else {
				m.processedIDs[name] = true
			}
		}
	}
	log.Printf("[SYNC] Loaded %d processed message IDs", len(m.processedIDs))
}

// IsProcessed reports whether a message id has been seen before.
func (m *SyncManager) IsProcessed(messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processedIDs[messageID]
}

// MarkProcessed records a message id, saving its payload to the named
// folder ("raw", "processed" or "errors").
func (m *SyncManager) MarkProcessed(messageID string, payload interface{}, folder string) {
	dir := m.rawDir()
	switch folder {
	case "processed":
		dir = m.processedDir()
	case "errors":
		dir = m.errorsDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("[SYNC] Error saving message %s: %v", messageID, err)
		return
	}
	name := fmt.Sprintf("%d_%s.json", time.Now().Unix(), messageID)
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Printf("[SYNC] Error saving message %s: %v", messageID, err)
		return
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		log.Printf("[SYNC] Error saving message %s: %v", messageID, err)
		return
	}
	m.mu.Lock()
	m.processedIDs[messageID] = true
	m.mu.Unlock()
}

// EnqueueMessage drops an inbound fuel report into the raw_messages
// queue for the scanner to pick up, and registers the id so the
// webhook never double-queues the same message.
func (m *SyncManager) EnqueueMessage(messageID, body, senderName, senderPhone string, timestamp int64) error {
	if err := os.MkdirAll(m.rawDir(), 0755); err != nil {
		return err
	}
	msg := messageFile{
		Body:        body,
		SenderName:  senderName,
		SenderPhone: senderPhone,
		Timestamp:   timestamp,
	}
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return err
	}
	name := fmt.Sprintf("msg_%d_%s.json", time.Now().Unix(), messageID)
	if err := os.WriteFile(filepath.Join(m.rawDir(), name), data, 0644); err != nil {
		return err
	}
	m.mu.Lock()
	m.processedIDs[messageID] = true
	m.mu.Unlock()
	return nil
}

// LastProcessedTime returns when the system last marked progress, or
// zero time when unknown.
func (m *SyncManager) LastProcessedTime() (time.Time, bool) {
	data, err := os.ReadFile(m.lastProcessedPath())
	if err != nil {
		return time.Time{}, false
	}
	var record struct {
		Timestamp int64 `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &record); err != nil || record.Timestamp == 0 {
		return time.Time{}, false
	}
	ts := record.Timestamp
	if ts > 1e12 {
		ts = ts / 1000
	}
	return time.Unix(ts, 0), true
}

// UpdateLastProcessedTime stamps now as the high-water mark.
func (m *SyncManager) UpdateLastProcessedTime() {
	now := time.Now()
	record := map[string]interface{}{
		"timestamp": now.Unix(),
		"datetime":  now.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	data, _ := json.MarshalIndent(record, "", "  ")
	if err := os.MkdirAll(m.dataDir, 0755); err != nil {
		log.Printf("[SYNC] Error updating last processed time: %v", err)
		return
	}
	if err := os.WriteFile(m.lastProcessedPath(), data, 0644); err != nil {
		log.Printf("[SYNC] Error updating last processed time: %v", err)
	}
}

// ShouldFetchHistory decides whether a history fetch is worth it.
// Under 6 minutes of downtime the webhook stream is assumed complete
// and a re-fetch would only produce duplicate work.
func (m *SyncManager) ShouldFetchHistory(maxOfflineHours float64) (bool, string) {
	last, ok := m.LastProcessedTime()
	if !ok {
		return true, "No last processed time found - will fetch recent messages"
	}
	hoursOffline := time.Since(last).Hours()
	if hoursOffline > maxOfflineHours {
		return true, fmt.Sprintf("Offline for %.1f hours (max: %.0fh) - will fetch messages", hoursOffline, maxOfflineHours)
	}
	if hoursOffline > 0.1 {
		return true, fmt.Sprintf("Offline for %.1f hours - will fetch missed messages", hoursOffline)
	}
	return false, fmt.Sprintf("Only %.1f minutes since last sync - no history fetch needed", hoursOffline*60)
}

// SyncStats summarizes one history-recovery run.
type SyncStats struct {
	TotalFetched     int `json:"total_fetched"`
	AlreadyProcessed int `json:"already_processed"`
	NewlyProcessed   int `json:"newly_processed"`
	FuelReports      int `json:"fuel_reports"`
	AdminCommands    int `json:"admin_commands"`
	Errors           int `json:"errors"`
	Skipped          int `json:"skipped"`
}

// historyMessage is the shape fetchMessages returns per entry.
type historyMessage struct {
	Key struct {
		ID          string `json:"id"`
		FromMe      bool   `json:"fromMe"`
		RemoteJID   string `json:"remoteJid"`
		Participant string `json:"participant"`
	} `json:"key"`
	PushName         string          `json:"pushName"`
	Message          json.RawMessage `json:"message"`
	MessageTimestamp int64           `json:"messageTimestamp"`
}

// FetchMissed pulls recent group history and replays unseen fuel
// reports through the callback. Admin commands from history are
// skipped, they are time-sensitive.
func (m *SyncManager) FetchMissed(client *Whatsapp.Client, groupJID string, maxMessages int, maxOfflineHours float64, process func(event *Whatsapp.MessageEvent) error) SyncStats {
	var stats SyncStats

	shouldFetch, reason := m.ShouldFetchHistory(maxOfflineHours)
	log.Printf("[SYNC] %s", reason)
	if !shouldFetch {
		return stats
	}

	cutoff := time.Now().Add(-time.Duration(maxOfflineHours * float64(time.Hour)))
	if last, ok := m.LastProcessedTime(); ok {
		cutoff = last
	}
	log.Printf("[SYNC] Fetching messages newer than %s", cutoff.Format(time.RFC3339))

	raw, err := client.FetchMessages(groupJID, maxMessages)
	if err != nil {
		log.Printf("[SYNC] Error fetching messages: %v", err)
		stats.Errors++
		return stats
	}
	stats.TotalFetched = len(raw)
	if len(raw) == 0 {
		m.UpdateLastProcessedTime()
		return stats
	}

	for _, entry := range raw {
		var msg historyMessage
		if err := json.Unmarshal(entry, &msg); err != nil {
			stats.Errors++
			continue
		}
		if msg.Key.FromMe {
			stats.Skipped++
			continue
		}
		if m.IsProcessed(msg.Key.ID) {
			stats.AlreadyProcessed++
			continue
		}

		ts := msg.MessageTimestamp
		if ts > 1e12 {
			ts = ts / 1000
		}
		if ts > 0 && time.Unix(ts, 0).Before(cutoff) {
			stats.Skipped++
			continue
		}

		text := Whatsapp.ExtractMessageText(msg.Message)
		if text == "" {
			stats.Skipped++
			continue
		}

		switch {
		case Whatsapp.IsFuelReport(text):
			stats.FuelReports++
			event := &Whatsapp.MessageEvent{
				MessageID:   msg.Key.ID,
				RemoteJID:   msg.Key.RemoteJID,
				Participant: msg.Key.Participant,
				PushName:    msg.PushName,
				Text:        text,
				Timestamp:   ts,
				IsGroup:     strings.Contains(msg.Key.RemoteJID, "@g.us"),
			}
			if err := process(event); err != nil {
				log.Printf("[SYNC] Error processing fuel report: %v", err)
				stats.Errors++
				m.MarkProcessed(msg.Key.ID, map[string]interface{}{
					"error":     err.Error(),
					"text":      text,
					"timestamp": time.Now().Format(time.RFC3339),
				}, "errors")
				continue
			}
			stats.NewlyProcessed++
		case Whatsapp.IsAdminCommand(text):
			stats.AdminCommands++
			stats.Skipped++
		default:
			stats.Skipped++
		}

		preview := text
		if len(preview) > 200 {
			preview = preview[:200]
		}
		kind := "other"
		if Whatsapp.IsFuelReport(text) {
			kind = "fuel_report"
		}
		m.MarkProcessed(msg.Key.ID, map[string]interface{}{
			"text":         preview,
			"type":         kind,
			"processed_at": time.Now().Format(time.RFC3339),
		}, "raw")
	}

	m.UpdateLastProcessedTime()
	log.Printf("[SYNC] Completed: %d new, %d already processed, %d fuel reports, %d errors",
		stats.NewlyProcessed, stats.AlreadyProcessed, stats.FuelReports, stats.Errors)
	return stats
}
