package domain

import "time"

// AuditEntry is an immutable record of a single lifecycle transition.
type AuditEntry struct {
	ID           string
	ComplaintID  string
	Action       LifecycleAction
	Actor        string
	Remark       string
	BeforeStatus ComplaintStatus
	AfterStatus  ComplaintStatus
	Rating       *int
	CreatedAt    time.Time
}

// TransferLogEntry records one department handover.
type TransferLogEntry struct {
	ID             string
	ComplaintID    string
	Actor          string
	FromDepartment string
	ToDepartment   string
	Message        string
	CreatedAt      time.Time
}

// ExtensionLogEntry records one target-date extension.
type ExtensionLogEntry struct {
	ID          string
	ComplaintID string
	Actor       string
	FromDate    *time.Time
	ToDate      time.Time
	DeltaDays   int
	CreatedAt   time.Time
}
