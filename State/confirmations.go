package State

import (
	"path/filepath"
	"time"

	"FuelBot/Constants"

	"github.com/google/uuid"
)

// Confirmation is a fully-formatted acceptance message queued for
// group delivery.
type Confirmation struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Notified  bool      `json:"notified"`
}

func (s *Store) confirmationsPath() string {
	return filepath.Join(s.dir, "confirmations.json")
}

// SaveConfirmation queues a confirmation message, trimming the file to
// the most recent entries. Returns the new entry's id.
func (s *Store) SaveConfirmation(message string) (string, error) {
	path := s.confirmationsPath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	var confirmations []Confirmation
	if err := loadJSON(path, &confirmations); err != nil {
		return "", err
	}
	entry := Confirmation{ID: uuid.NewString()[:8], Timestamp: s.now(), Message: message}
	confirmations = append(confirmations, entry)
	if len(confirmations) > Constants.MaxConfirmations {
		confirmations = confirmations[len(confirmations)-Constants.MaxConfirmations:]
	}
	if err := saveJSON(path, confirmations); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// UnnotifiedConfirmations returns queued messages not yet delivered.
func (s *Store) UnnotifiedConfirmations() ([]Confirmation, error) {
	path := s.confirmationsPath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	var confirmations []Confirmation
	if err := loadJSON(path, &confirmations); err != nil {
		return nil, err
	}
	var pending []Confirmation
	for _, c := range confirmations {
		if !c.Notified {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

// MarkConfirmationNotified flags a single queued message as delivered.
func (s *Store) MarkConfirmationNotified(id string) error {
	path := s.confirmationsPath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	var confirmations []Confirmation
	if err := loadJSON(path, &confirmations); err != nil {
		return err
	}
	for i := range confirmations {
		if confirmations[i].ID != id {
			continue
		}
		if confirmations[i].Notified {
			return nil
		}
		confirmations[i].Notified = true
		return saveJSON(path, confirmations)
	}
	return nil
}
