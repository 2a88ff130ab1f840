package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// AuditRepository stores append-only transition records: audit entries,
// history lines, transfer and extension logs. Nothing here is ever
// updated or deleted.
type AuditRepository interface {
	AppendAudit(ctx context.Context, entry *domain.AuditEntry) error
	AppendHistory(ctx context.Context, entry *domain.HistoryEntry) error
	AppendTransfer(ctx context.Context, entry *domain.TransferLogEntry) error
	AppendExtension(ctx context.Context, entry *domain.ExtensionLogEntry) error
	ListAuditByComplaint(ctx context.Context, complaintID string) ([]domain.AuditEntry, error)
	ListHistoryByComplaint(ctx context.Context, complaintID string) ([]domain.HistoryEntry, error)
	ListTransfersByComplaint(ctx context.Context, complaintID string) ([]domain.TransferLogEntry, error)
	ListExtensionsByComplaint(ctx context.Context, complaintID string) ([]domain.ExtensionLogEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) AppendAudit(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_entries (complaint_id, action, actor, remark, before_status, after_status, rating)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ComplaintID,
		entry.Action,
		entry.Actor,
		entry.Remark,
		entry.BeforeStatus,
		entry.AfterStatus,
		entry.Rating,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) AppendHistory(ctx context.Context, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO complaint_history (complaint_id, entry)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ComplaintID,
		entry.Entry,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) AppendTransfer(ctx context.Context, entry *domain.TransferLogEntry) error {
	const query = `
        INSERT INTO transfer_log (complaint_id, actor, from_department, to_department, message)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ComplaintID,
		entry.Actor,
		entry.FromDepartment,
		entry.ToDepartment,
		entry.Message,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) AppendExtension(ctx context.Context, entry *domain.ExtensionLogEntry) error {
	const query = `
        INSERT INTO extension_log (complaint_id, actor, from_date, to_date, delta_days)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ComplaintID,
		entry.Actor,
		entry.FromDate,
		entry.ToDate,
		entry.DeltaDays,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) ListAuditByComplaint(ctx context.Context, complaintID string) ([]domain.AuditEntry, error) {
	const query = `
        SELECT id, complaint_id, action, actor, remark, before_status, after_status, rating, created_at
        FROM audit_entries WHERE complaint_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ComplaintID,
			&entry.Action,
			&entry.Actor,
			&entry.Remark,
			&entry.BeforeStatus,
			&entry.AfterStatus,
			&entry.Rating,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *auditRepository) ListHistoryByComplaint(ctx context.Context, complaintID string) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT id, complaint_id, entry, created_at
        FROM complaint_history WHERE complaint_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.ComplaintID, &entry.Entry, &entry.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *auditRepository) ListTransfersByComplaint(ctx context.Context, complaintID string) ([]domain.TransferLogEntry, error) {
	const query = `
        SELECT id, complaint_id, actor, from_department, to_department, message, created_at
        FROM transfer_log WHERE complaint_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TransferLogEntry
	for rows.Next() {
		var entry domain.TransferLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ComplaintID,
			&entry.Actor,
			&entry.FromDepartment,
			&entry.ToDepartment,
			&entry.Message,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *auditRepository) ListExtensionsByComplaint(ctx context.Context, complaintID string) ([]domain.ExtensionLogEntry, error) {
	const query = `
        SELECT id, complaint_id, actor, from_date, to_date, delta_days, created_at
        FROM extension_log WHERE complaint_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ExtensionLogEntry
	for rows.Next() {
		var entry domain.ExtensionLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ComplaintID,
			&entry.Actor,
			&entry.FromDate,
			&entry.ToDate,
			&entry.DeltaDays,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
