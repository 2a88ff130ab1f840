package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CreateComplaintRequest payload.
type CreateComplaintRequest struct {
	Department  string `json:"department"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// ResolveComplaintRequest payload.
type ResolveComplaintRequest struct {
	Remark string `json:"remark"`
}

// ExtendComplaintRequest payload.
type ExtendComplaintRequest struct {
	TargetDate string `json:"target_date"`
	Remark     string `json:"remark"`
}

// TransferComplaintRequest payload.
type TransferComplaintRequest struct {
	Department string  `json:"department"`
	Resolver   *string `json:"resolver,omitempty"`
}

// RateComplaintRequest payload.
type RateComplaintRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// ComplaintSummary response.
type ComplaintSummary struct {
	ID         string                 `json:"id"`
	Reference  string                 `json:"reference"`
	Department string                 `json:"department"`
	Category   string                 `json:"category"`
	Status     domain.ComplaintStatus `json:"status"`
	ReportedBy string                 `json:"reported_by"`
	ResolvedBy *string                `json:"resolved_by,omitempty"`
	Rating     *int                   `json:"rating,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
	TargetDate *time.Time             `json:"target_date,omitempty"`
}

// ComplaintDetailResponse provides full complaint info.
type ComplaintDetailResponse struct {
	ComplaintSummary
	Description string                 `json:"description"`
	Feedback    string                 `json:"feedback,omitempty"`
	ResolvedAt  *time.Time             `json:"resolved_at,omitempty"`
	ReopenedAt  *time.Time             `json:"reopened_at,omitempty"`
	History     []HistoryEntryResponse `json:"history"`
	Audit       []AuditEntryResponse   `json:"audit"`
	Transfers   []TransferLogResponse  `json:"transfers,omitempty"`
	Extensions  []ExtensionLogResponse `json:"extensions,omitempty"`
}

// TransferLogResponse is one recorded department handover.
type TransferLogResponse struct {
	Actor          string    `json:"actor"`
	FromDepartment string    `json:"from_department"`
	ToDepartment   string    `json:"to_department"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// ExtensionLogResponse is one recorded target-date extension.
type ExtensionLogResponse struct {
	Actor     string     `json:"actor"`
	FromDate  *time.Time `json:"from_date,omitempty"`
	ToDate    time.Time  `json:"to_date"`
	DeltaDays int        `json:"delta_days"`
	CreatedAt time.Time  `json:"created_at"`
}

// HistoryEntryResponse is one log line.
type HistoryEntryResponse struct {
	Entry     string    `json:"entry"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEntryResponse is one transition record.
type AuditEntryResponse struct {
	Action       domain.LifecycleAction `json:"action"`
	Actor        string                 `json:"actor"`
	Remark       string                 `json:"remark,omitempty"`
	BeforeStatus domain.ComplaintStatus `json:"before_status"`
	AfterStatus  domain.ComplaintStatus `json:"after_status"`
	Rating       *int                   `json:"rating,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}
