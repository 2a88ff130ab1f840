package events

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated     EventType = "complaint_created"
	EventComplaintResolved    EventType = "complaint_resolved"
	EventComplaintForceClosed EventType = "complaint_force_closed"
	EventComplaintExtended    EventType = "complaint_extended"
	EventComplaintTransferred EventType = "complaint_transferred"
	EventComplaintReopened    EventType = "complaint_reopened"
	EventComplaintRated       EventType = "complaint_rated"
	EventComplaintDelayed     EventType = "complaint_delayed"
	EventComplaintEscalated   EventType = "complaint_escalated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ComplaintID string      `json:"complaint_id"`
	Reference   string      `json:"reference"`
	Actor       string      `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Department    string `json:"department"`
	Category      string `json:"category"`
	ReportedBy    string `json:"reported_by"`
	ReporterPhone string `json:"reporter_phone"`
}

// ComplaintResolvedPayload payload.
type ComplaintResolvedPayload struct {
	ResolvedBy    string `json:"resolved_by"`
	Remark        string `json:"remark,omitempty"`
	ReporterPhone string `json:"reporter_phone"`
	Forced        bool   `json:"forced"`
}

// ComplaintExtendedPayload payload.
type ComplaintExtendedPayload struct {
	OldTargetDate *time.Time `json:"old_target_date,omitempty"`
	NewTargetDate time.Time  `json:"new_target_date"`
	DeltaDays     int        `json:"delta_days"`
	ReporterPhone string     `json:"reporter_phone"`
}

// ComplaintTransferredPayload payload.
type ComplaintTransferredPayload struct {
	FromDepartment string `json:"from_department"`
	ToDepartment   string `json:"to_department"`
	Message        string `json:"message"`
}

// ComplaintReopenedPayload payload.
type ComplaintReopenedPayload struct {
	PriorResolver      *string `json:"prior_resolver,omitempty"`
	PriorResolverPhone string  `json:"prior_resolver_phone,omitempty"`
}

// ComplaintRatedPayload payload.
type ComplaintRatedPayload struct {
	Rating     int     `json:"rating"`
	Feedback   string  `json:"feedback,omitempty"`
	ResolvedBy *string `json:"resolved_by,omitempty"`
}

// ComplaintDelayedPayload payload.
type ComplaintDelayedPayload struct {
	Department  string `json:"department"`
	DaysPending int    `json:"days_pending"`
}

// EscalationTier identifies staged escalation contacts.
type EscalationTier string

const (
	TierL1 EscalationTier = "L1"
	TierL2 EscalationTier = "L2"
	TierL3 EscalationTier = "L3"
)

// ComplaintEscalatedPayload payload.
type ComplaintEscalatedPayload struct {
	Tier        EscalationTier         `json:"tier"`
	Department  string                 `json:"department"`
	DaysPending int                    `json:"days_pending"`
	Status      domain.ComplaintStatus `json:"status"`
}
