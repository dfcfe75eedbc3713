package State

import (
	"log"
	"path/filepath"
	"time"

	"FuelBot/Constants"

	"github.com/google/uuid"
)

// ValidationError is an outbound notification queued for WhatsApp
// delivery. ApprovalRequest entries tag the admins instead of the
// original sender.
type ValidationError struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Car             string    `json:"car"`
	Driver          string    `json:"driver"`
	Issue           string    `json:"issue"`
	SenderPhone     string    `json:"sender_phone"`
	ApprovalRequest bool      `json:"is_approval_request"`
	Notified        bool      `json:"notified"`
}

func (s *Store) validationErrorsPath() string {
	return filepath.Join(s.dir, "validation_errors.json")
}

// SaveValidationError queues a notification, trimming the file to the
// most recent entries. Returns the new entry's id so the caller can
// flag exactly that entry once its delivery succeeds.
func (s *Store) SaveValidationError(car, driver, issue, senderPhone string, approvalRequest bool) (string, error) {
	path := s.validationErrorsPath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	var errors []ValidationError
	if err := loadJSON(path, &errors); err != nil {
		return "", err
	}
	entry := ValidationError{
		ID:              uuid.NewString()[:8],
		Timestamp:       s.now(),
		Car:             car,
		Driver:          driver,
		Issue:           issue,
		SenderPhone:     senderPhone,
		ApprovalRequest: approvalRequest,
	}
	errors = append(errors, entry)
	if len(errors) > Constants.MaxValidationErrors {
		errors = errors[len(errors)-Constants.MaxValidationErrors:]
	}
	if err := saveJSON(path, errors); err != nil {
		return "", err
	}
	preview := issue
	if len(preview) > 50 {
		preview = preview[:50]
	}
	log.Printf("[SAVED] Saved validation error for notification: %s - %s", car, preview)
	return entry.ID, nil
}

// ValidationErrors returns every retained entry, oldest first.
func (s *Store) ValidationErrors() ([]ValidationError, error) {
	path := s.validationErrorsPath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	var errors []ValidationError
	if err := loadJSON(path, &errors); err != nil {
		return nil, err
	}
	return errors, nil
}

// UnnotifiedErrors returns queued entries not yet delivered.
func (s *Store) UnnotifiedErrors() ([]ValidationError, error) {
	path := s.validationErrorsPath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	var errors []ValidationError
	if err := loadJSON(path, &errors); err != nil {
		return nil, err
	}
	var pending []ValidationError
	for _, e := range errors {
		if !e.Notified {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// MarkErrorNotified flags a single entry as delivered. Other queued
// entries keep waiting for the cron retry.
func (s *Store) MarkErrorNotified(id string) error {
	path := s.validationErrorsPath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	var errors []ValidationError
	if err := loadJSON(path, &errors); err != nil {
		return err
	}
	for i := range errors {
		if errors[i].ID != id {
			continue
		}
		if errors[i].Notified {
			return nil
		}
		errors[i].Notified = true
		return saveJSON(path, errors)
	}
	// Entry already trimmed away, nothing to flag
	return nil
}
