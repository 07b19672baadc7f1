// Package needs implements the needs-list fulfilment workflow: the stored
// record model, the timeout-based edit lock, the allocation engine, the
// status state machine and the derived display statuses.
package needs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the stored workflow state of a needs list. Display labels are
// derived, never stored (see display.go).
type Status uint8

const (
	StatusUnknown Status = iota
	StatusDraft
	StatusSubmitted
	StatusFulfilmentPrepared
	StatusAwaitingApproval
	StatusApproved
	StatusResentForDispatch
	StatusDispatched
	StatusReceived
	StatusCompleted
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusSubmitted:
		return "Submitted"
	case StatusFulfilmentPrepared:
		return "Fulfilment Prepared"
	case StatusAwaitingApproval:
		return "Awaiting Approval"
	case StatusApproved:
		return "Approved"
	case StatusResentForDispatch:
		return "Resent for Dispatch"
	case StatusDispatched:
		return "Dispatched"
	case StatusReceived:
		return "Received"
	case StatusCompleted:
		return "Completed"
	case StatusRejected:
		return "Rejected"
	case StatusUnknown:
		return "Unknown"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// ParseStatus maps a stored status string back to the enum.
func ParseStatus(raw string) (Status, error) {
	switch strings.TrimSpace(raw) {
	case "Unknown":
		return StatusUnknown, nil
	case "Draft":
		return StatusDraft, nil
	case "Submitted":
		return StatusSubmitted, nil
	case "Fulfilment Prepared":
		return StatusFulfilmentPrepared, nil
	case "Awaiting Approval":
		return StatusAwaitingApproval, nil
	case "Approved":
		return StatusApproved, nil
	case "Resent for Dispatch":
		return StatusResentForDispatch, nil
	case "Dispatched":
		return StatusDispatched, nil
	case "Received":
		return StatusReceived, nil
	case "Completed":
		return StatusCompleted, nil
	case "Rejected":
		return StatusRejected, nil
	}
	return StatusUnknown, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Priority of a needs list.
type Priority uint8

const (
	PriorityNormal Priority = iota
	PriorityLow
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityNormal:
		return "Normal"
	case PriorityHigh:
		return "High"
	case PriorityUrgent:
		return "Urgent"
	}
	return fmt.Sprintf("Priority(%d)", uint8(p))
}

// ParsePriority maps a stored priority string back to the enum. An empty
// string is Normal.
func ParsePriority(raw string) (Priority, error) {
	switch strings.TrimSpace(raw) {
	case "", "Normal":
		return PriorityNormal, nil
	case "Low":
		return PriorityLow, nil
	case "High":
		return PriorityHigh, nil
	case "Urgent":
		return PriorityUrgent, nil
	}
	return PriorityNormal, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, raw)
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePriority(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Item is one requested line under a needs list.
type Item struct {
	ID            string `json:"id"`
	SKU           string `json:"sku"`
	Qty           int    `json:"qty"`
	Justification string `json:"justification,omitempty"`
}

// Fulfilment is one (item, source hub, allocated qty) row. The full set is
// replaced every time fulfilment is prepared, never patched row by row.
type Fulfilment struct {
	ID    string `json:"id"`
	SKU   string `json:"sku"`
	HubID string `json:"hub_id"`
	Qty   int    `json:"qty"`
}

// List is a relief request from an agency or sub hub.
type List struct {
	ID           string   `json:"id"`
	Number       string   `json:"number"`
	HubID        string   `json:"hub_id"`
	EventID      string   `json:"event_id,omitempty"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority"`
	Notes        string   `json:"notes,omitempty"`
	CreatedBy    string   `json:"created_by"`
	PreparedBy   string   `json:"prepared_by,omitempty"`
	ApprovedBy   string   `json:"approved_by,omitempty"`
	RejectedBy   string   `json:"rejected_by,omitempty"`
	DispatchedBy string   `json:"dispatched_by,omitempty"`
	ReceivedBy   string   `json:"received_by,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	SubmittedAt  time.Time `json:"submitted_at,omitzero"`
	PreparedAt   time.Time `json:"prepared_at,omitzero"`
	ApprovedAt   time.Time `json:"approved_at,omitzero"`
	DispatchedAt time.Time `json:"dispatched_at,omitzero"`
	ReceivedAt   time.Time `json:"received_at,omitzero"`
	FulfilledAt  time.Time `json:"fulfilled_at,omitzero"`

	// Edit lock. LockedBy is empty when unlocked; expiry is computed from
	// LockedAt, never stored.
	LockedBy     string    `json:"locked_by,omitempty"`
	LockedByName string    `json:"locked_by_name,omitempty"`
	LockedAt     time.Time `json:"locked_at,omitzero"`

	Items       []Item       `json:"items"`
	Fulfilments []Fulfilment `json:"fulfilments,omitempty"`
}

// RequestedQty returns the requested quantity for a SKU, 0 when absent.
func (l List) RequestedQty(sku string) int {
	for _, item := range l.Items {
		if item.SKU == sku {
			return item.Qty
		}
	}
	return 0
}

// AllocatedQty sums allocation rows for a SKU across source hubs.
func (l List) AllocatedQty(sku string) int {
	total := 0
	for _, f := range l.Fulfilments {
		if f.SKU == sku {
			total += f.Qty
		}
	}
	return total
}

// HubHoldsAllocation reports whether a hub supplies at least one row.
func (l List) HubHoldsAllocation(hubID string) bool {
	for _, f := range l.Fulfilments {
		if f.HubID == hubID && f.Qty > 0 {
			return true
		}
	}
	return false
}

// FulfilmentVersion is an immutable audit snapshot written when a previously
// approved fulfilment is revised through a change request.
type FulfilmentVersion struct {
	ID         string       `json:"id"`
	ListID     string       `json:"list_id"`
	Version    int          `json:"version"`
	PrevStatus Status       `json:"prev_status"`
	NewStatus  Status       `json:"new_status"`
	PrevRows   []Fulfilment `json:"prev_rows"`
	NewRows    []Fulfilment `json:"new_rows"`
	Reason     string       `json:"reason"`
	ChangedBy  string       `json:"changed_by"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ChangeRequestStatus tracks the review of a fulfilment revision request.
type ChangeRequestStatus uint8

const (
	ChangeRequestUnknown ChangeRequestStatus = iota
	ChangeRequestPendingReview
	ChangeRequestInProgress
	ChangeRequestApprovedResent
	ChangeRequestRejected
	ChangeRequestClarificationNeeded
)

func (s ChangeRequestStatus) String() string {
	switch s {
	case ChangeRequestPendingReview:
		return "Pending Review"
	case ChangeRequestInProgress:
		return "In Progress"
	case ChangeRequestApprovedResent:
		return "Approved & Resent"
	case ChangeRequestRejected:
		return "Rejected"
	case ChangeRequestClarificationNeeded:
		return "Clarification Needed"
	case ChangeRequestUnknown:
		return "Unknown"
	}
	return fmt.Sprintf("ChangeRequestStatus(%d)", uint8(s))
}

// ParseChangeRequestStatus maps a stored status string back to the enum.
func ParseChangeRequestStatus(raw string) (ChangeRequestStatus, error) {
	switch strings.TrimSpace(raw) {
	case "Pending Review":
		return ChangeRequestPendingReview, nil
	case "In Progress":
		return ChangeRequestInProgress, nil
	case "Approved & Resent":
		return ChangeRequestApprovedResent, nil
	case "Rejected":
		return ChangeRequestRejected, nil
	case "Clarification Needed":
		return ChangeRequestClarificationNeeded, nil
	}
	return ChangeRequestUnknown, fmt.Errorf("%w: unknown change request status %q", ErrInvalidInput, raw)
}

func (s ChangeRequestStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ChangeRequestStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseChangeRequestStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Actionable reports whether the request still blocks or permits edits.
func (s ChangeRequestStatus) Actionable() bool {
	return s == ChangeRequestPendingReview || s == ChangeRequestInProgress
}

// ChangeRequest is a warehouse-initiated request to revise an already
// approved fulfilment.
type ChangeRequest struct {
	ID              string              `json:"id"`
	ListID          string              `json:"list_id"`
	HubID           string              `json:"hub_id"`
	Reason          string              `json:"reason"`
	Status          ChangeRequestStatus `json:"status"`
	RequestedBy     string              `json:"requested_by"`
	ReviewedBy      string              `json:"reviewed_by,omitempty"`
	ResolutionNotes string              `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// StatusChange is one row of the append-only transition history.
type StatusChange struct {
	ID        string    `json:"id"`
	ListID    string    `json:"list_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedBy string    `json:"changed_by"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is published to subscribers after every committed transition.
type Event struct {
	ListID    string    `json:"list_id"`
	Number    string    `json:"number"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher fans out workflow events. Implementations must not block.
type Publisher interface {
	Publish(Event)
}
