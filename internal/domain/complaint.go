package domain

import "time"

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	ComplaintStatusOpen        ComplaintStatus = "OPEN"
	ComplaintStatusPending     ComplaintStatus = "PENDING"
	ComplaintStatusDelayed     ComplaintStatus = "DELAYED"
	ComplaintStatusTransferred ComplaintStatus = "TRANSFERRED"
	ComplaintStatusExtended    ComplaintStatus = "EXTENDED"
	ComplaintStatusClosed      ComplaintStatus = "CLOSED"
	ComplaintStatusForceClosed ComplaintStatus = "FORCE_CLOSED"
)

// Terminal reports whether no further work is expected on the complaint.
// Reopen is still permitted from terminal states.
func (s ComplaintStatus) Terminal() bool {
	return s == ComplaintStatusClosed || s == ComplaintStatusForceClosed
}

// Valid reports whether the value is a known lifecycle status.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintStatusOpen, ComplaintStatusPending, ComplaintStatusDelayed,
		ComplaintStatusTransferred, ComplaintStatusExtended,
		ComplaintStatusClosed, ComplaintStatusForceClosed:
		return true
	}
	return false
}

// LifecycleAction enumerates transitions the engine can apply.
type LifecycleAction string

const (
	ActionResolve    LifecycleAction = "RESOLVE"
	ActionClose      LifecycleAction = "CLOSE"
	ActionForceClose LifecycleAction = "FORCE_CLOSE"
	ActionExtend     LifecycleAction = "EXTEND"
	ActionTransfer   LifecycleAction = "TRANSFER"
	ActionReopen     LifecycleAction = "REOPEN"
	ActionRate       LifecycleAction = "RATE"
	// ActionDelay is applied by the escalation monitor, never by callers.
	ActionDelay LifecycleAction = "DELAY"
)

// Complaint is the aggregate for a single logged grievance.
type Complaint struct {
	ID            string
	Reference     string
	Department    string
	Category      string
	Description   string
	ReportedBy    string
	ReporterPhone string
	ResolvedBy    *string
	Status        ComplaintStatus
	Rating        *int
	Feedback      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
	TargetDate    *time.Time
	ReopenedAt    *time.Time
	// Version guards concurrent writers; every successful update bumps it.
	Version int64
}

// Rated reports whether a rating has been recorded for the complaint.
func (c *Complaint) Rated() bool {
	return c.Rating != nil
}

// HistoryEntry is one append-only free-text log line on a complaint.
type HistoryEntry struct {
	ID          string
	ComplaintID string
	Entry       string
	CreatedAt   time.Time
}
