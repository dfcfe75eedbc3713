package State

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"FuelBot/Constants"
	"FuelBot/Models"

	"github.com/google/uuid"
)

// ApprovalType is a closed set of reasons a record needs a human
// decision before it is persisted.
type ApprovalType string

const (
	ApprovalCarCooldown    ApprovalType = "car_cooldown"
	ApprovalDriverChange   ApprovalType = "driver_change"
	ApprovalEdit           ApprovalType = "edit"
	ApprovalDuplicateCheck ApprovalType = "duplicate_check"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var (
	ErrApprovalNotFound = errors.New("approval not found")
	// ErrAlreadyProcessed is returned when deciding an approval that
	// has already been approved or rejected. Decisions are one-way and
	// exactly once.
	ErrAlreadyProcessed = errors.New("already_processed")
)

// PendingApproval is a record held back for an admin decision.
type PendingApproval struct {
	ID             string             `json:"id"`
	Type           ApprovalType       `json:"type"`
	Timestamp      time.Time          `json:"timestamp"`
	Record         Models.FuelReport  `json:"record"`
	OriginalRecord *Models.FuelReport `json:"original_record,omitempty"`
	Reason         string             `json:"reason"`
	Status         string             `json:"status"`
	DecidedAt      *time.Time         `json:"decided_at,omitempty"`
}

func (s *Store) approvalsPath() string {
	return filepath.Join(s.dir, "pending_approvals.json")
}

// SavePendingApproval appends a new pending entry and returns its id.
// Once the store exceeds the retention cap, the oldest decided entries
// are pruned; pending entries are never pruned.
func (s *Store) SavePendingApproval(approvalType ApprovalType, record Models.FuelReport, original *Models.FuelReport, reason string) (string, error) {
	path := s.approvalsPath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	var approvals []PendingApproval
	if err := loadJSON(path, &approvals); err != nil {
		return "", err
	}

	approval := PendingApproval{
		ID:             uuid.NewString()[:8],
		Type:           approvalType,
		Timestamp:      s.now(),
		Record:         record,
		OriginalRecord: original,
		Reason:         reason,
		Status:         StatusPending,
	}
	approvals = append(approvals, approval)

	if len(approvals) > Constants.MaxPendingApprovals {
		var pending, decided []PendingApproval
		for _, a := range approvals {
			if a.Status == StatusPending {
				pending = append(pending, a)
			} else {
				decided = append(decided, a)
			}
		}
		if len(decided) > Constants.ApprovalKeepDecided {
			decided = decided[len(decided)-Constants.ApprovalKeepDecided:]
		}
		approvals = append(pending, decided...)
	}

	if err := saveJSON(path, approvals); err != nil {
		return "", err
	}
	log.Printf("[SAVED] Saved pending approval (%s): %s - %s", approvalType, approval.ID, reason)
	return approval.ID, nil
}

// PendingApprovals returns entries still awaiting a decision.
func (s *Store) PendingApprovals() ([]PendingApproval, error) {
	path := s.approvalsPath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	var approvals []PendingApproval
	if err := loadJSON(path, &approvals); err != nil {
		return nil, err
	}
	var pending []PendingApproval
	for _, a := range approvals {
		if a.Status == StatusPending {
			pending = append(pending, a)
		}
	}
	return pending, nil
}

// GetApproval returns an entry by id regardless of status.
func (s *Store) GetApproval(id string) (*PendingApproval, error) {
	path := s.approvalsPath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	var approvals []PendingApproval
	if err := loadJSON(path, &approvals); err != nil {
		return nil, err
	}
	for i := range approvals {
		if approvals[i].ID == id {
			return &approvals[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrApprovalNotFound, id)
}

// Approve marks an approval approved and returns the stored record for
// re-injection into the acceptance path.
func (s *Store) Approve(id string) (*PendingApproval, error) {
	return s.decide(id, StatusApproved)
}

// Reject marks an approval rejected. The record is discarded.
func (s *Store) Reject(id string) (*PendingApproval, error) {
	return s.decide(id, StatusRejected)
}

func (s *Store) decide(id, status string) (*PendingApproval, error) {
	path := s.approvalsPath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	var approvals []PendingApproval
	if err := loadJSON(path, &approvals); err != nil {
		return nil, err
	}

	for i := range approvals {
		if approvals[i].ID != id {
			continue
		}
		if approvals[i].Status != StatusPending {
			return nil, fmt.Errorf("approval %s: %w", id, ErrAlreadyProcessed)
		}
		now := s.now()
		approvals[i].Status = status
		approvals[i].DecidedAt = &now
		if err := saveJSON(path, approvals); err != nil {
			return nil, err
		}
		result := approvals[i]
		return &result, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrApprovalNotFound, id)
}
