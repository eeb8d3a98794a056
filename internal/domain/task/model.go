// Package task holds the clinic to-do list used to chase claim follow-ups.
package task

import (
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/fsm"
)

// Status of a to-do item. StatusInProgress and StatusIP are distinct states
// that both appear in stored data; they are never merged.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusIP         Status = "ip"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on_hold"
)

var allStatuses = []Status{StatusWaiting, StatusInProgress, StatusIP, StatusCompleted, StatusOnHold}

// Transitions: open items move freely; a completed item can only be reopened
// into work.
var Transitions = fsm.New("todo item", map[Status][]Status{
	StatusWaiting:    allStatuses,
	StatusInProgress: allStatuses,
	StatusIP:         allStatuses,
	StatusOnHold:     allStatuses,
	StatusCompleted:  {StatusInProgress, StatusIP},
})

// Item is a to-do item. CompletedAt (RFC 3339) is maintained by
// WithCompletion and read-only to callers.
type Item struct {
	ID          string `json:"id"`
	ClinicID    string `json:"clinicId" validate:"required"`
	ClaimID     string `json:"claimId" validate:"required"`
	Status      Status `json:"status" validate:"required,oneof=waiting in_progress ip completed on_hold"`
	Issue       string `json:"issue" validate:"required"`
	Notes       string `json:"notes,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
	CreatedBy   string `json:"createdBy"`
}

// Row maps to the todo_items table.
type Row struct {
	ID          string     `db:"id"`
	ClinicID    string     `db:"clinic_id"`
	ClaimID     string     `db:"claim_id"`
	Status      string     `db:"status"`
	Issue       string     `db:"issue"`
	Notes       *string    `db:"notes"`
	CreatedBy   string     `db:"created_by"`
	CompletedAt *time.Time `db:"completed_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

type Patch struct {
	ClinicID *string `json:"clinicId,omitempty" validate:"omitempty,min=1"`
	ClaimID  *string `json:"claimId,omitempty" validate:"omitempty,min=1"`
	Status   *Status `json:"status,omitempty" validate:"omitempty,oneof=waiting in_progress ip completed on_hold"`
	Issue    *string `json:"issue,omitempty" validate:"omitempty,min=1"`
	Notes    *string `json:"notes,omitempty"`

	completion  bool
	completedAt *time.Time
}

// WithCompletion stamps CompletedAt for a new item created as completed.
func (i Item) WithCompletion(now time.Time) Item {
	if i.Status == StatusCompleted {
		i.CompletedAt = now.UTC().Format(time.RFC3339)
	} else {
		i.CompletedAt = ""
	}
	return i
}

// WithCompletion stamps the completion time when p moves current into
// completed, and clears it when p moves current out of completed.
func (p Patch) WithCompletion(current Item, now time.Time) Patch {
	if p.Status == nil || *p.Status == current.Status {
		return p
	}
	switch {
	case *p.Status == StatusCompleted:
		t := now.UTC()
		p.completion, p.completedAt = true, &t
	case current.Status == StatusCompleted:
		p.completion, p.completedAt = true, nil
	}
	return p
}
