package Inbox

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"FuelBot/Pipeline"
)

// messageFile is the on-disk shape of a queued inbound message,
// written either by the webhook receiver or by admin tooling when
// re-injecting an approved record.
type messageFile struct {
	Body               string `json:"body"`
	SenderName         string `json:"senderName"`
	SenderPhone        string `json:"senderPhone"`
	Timestamp          int64  `json:"timestamp"`
	IsApproved         bool   `json:"isApproved"`
	ApprovalType       string `json:"approvalType"`
	OriginalApprovalID string `json:"originalApprovalId"`

	ParseError string `json:"_parse_error,omitempty"`
	ErrorTime  string `json:"_error_time,omitempty"`
}

// Scanner drains msg_*.json files from the raw_messages folder
// through the pipeline. Processed files move to processed/, terminal
// failures to errors/ with the reason embedded, so a re-scan is
// always idempotent.
type Scanner struct {
	dataDir  string
	pipeline *Pipeline.Pipeline
}

func NewScanner(dataDir string, pipeline *Pipeline.Pipeline) *Scanner {
	return &Scanner{dataDir: dataDir, pipeline: pipeline}
}

func (s *Scanner) inboxDir() string     { return filepath.Join(s.dataDir, "raw_messages") }
func (s *Scanner) processedDir() string { return filepath.Join(s.dataDir, "processed") }
func (s *Scanner) errorsDir() string    { return filepath.Join(s.dataDir, "errors") }

// ProcessAll drains the inbox once. Returns (successes, failures).
func (s *Scanner) ProcessAll() (int, int) {
	if err := os.MkdirAll(s.inboxDir(), 0755); err != nil {
		log.Printf("Could not create inbox dir: %v", err)
		return 0, 0
	}
	files, err := filepath.Glob(filepath.Join(s.inboxDir(), "msg_*.json"))
	if err != nil {
		log.Printf("Error scanning inbox: %v", err)
		return 0, 0
	}
	if len(files) == 0 {
		return 0, 0
	}
	sort.Strings(files)
	log.Printf("Found %d message(s) to process.", len(files))

	success, failed := 0, 0
	for _, path := range files {
		if s.processFile(path) {
			success++
		} else {
			failed++
		}
	}
	log.Printf("Processing complete: %d successful, %d errors", success, failed)
	return success, failed
}

// processFile runs one file to a terminal state. Returns true when
// the record was accepted.
func (s *Scanner) processFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Error reading %s: %v", filepath.Base(path), err)
		return false
	}
	var msg messageFile
	if err := json.Unmarshal(data, &msg); err != nil {
		s.moveToErrors(path, msg, "Invalid message JSON: "+err.Error())
		return false
	}
	if msg.Body == "" {
		log.Printf("Empty message body in %s", filepath.Base(path))
		s.moveToErrors(path, msg, "Empty message body")
		return false
	}

	result := s.pipeline.Process(Pipeline.IncomingMessage{
		Body:               msg.Body,
		SenderPhone:        msg.SenderPhone,
		SenderName:         msg.SenderName,
		Timestamp:          msg.Timestamp,
		IsApproved:         msg.IsApproved,
		ApprovalType:       msg.ApprovalType,
		OriginalApprovalID: msg.OriginalApprovalID,
	})

	switch result.Status {
	case Pipeline.StatusAccepted:
		s.moveToProcessed(path)
		log.Printf("[OK] Processed: %s -> %s", filepath.Base(path), result.Record.Car)
		return true
	case Pipeline.StatusPending:
		s.moveToErrors(path, msg, "PENDING APPROVAL: "+result.ApprovalID+" - "+result.Reason)
		return false
	case Pipeline.StatusFailed:
		// Persistence outage: leave the file in place for the next scan
		log.Printf("Failed to save %s, will retry: %s", filepath.Base(path), result.Reason)
		return false
	default:
		s.moveToErrors(path, msg, result.Reason)
		return false
	}
}

func (s *Scanner) moveToProcessed(path string) {
	if err := os.MkdirAll(s.processedDir(), 0755); err != nil {
		log.Printf("Error moving to processed folder: %v", err)
		return
	}
	if err := os.Rename(path, filepath.Join(s.processedDir(), filepath.Base(path))); err != nil {
		log.Printf("Error moving to processed folder: %v", err)
	}
}

func (s *Scanner) moveToErrors(path string, msg messageFile, reason string) {
	if err := os.MkdirAll(s.errorsDir(), 0755); err != nil {
		log.Printf("Error moving to errors folder: %v", err)
		return
	}
	msg.ParseError = reason
	msg.ErrorTime = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		log.Printf("Error moving to errors folder: %v", err)
		return
	}
	dest := filepath.Join(s.errorsDir(), filepath.Base(path))
	if err := os.WriteFile(dest, data, 0644); err != nil {
		log.Printf("Error moving to errors folder: %v", err)
		return
	}
	os.Remove(path)
}
