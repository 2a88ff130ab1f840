package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// ErrVersionConflict signals a lost optimistic-concurrency race: the row
// changed between read and write. Callers re-read and retry or give up.
var ErrVersionConflict = fmt.Errorf("complaint version conflict")

// ComplaintFilter captures listing parameters.
type ComplaintFilter struct {
	Department  *string
	ReportedBy  *string
	Statuses    []domain.ComplaintStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	// Update writes the complaint only when the stored version still matches
	// complaint.Version; on success the version is bumped in place.
	Update(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	GetByReference(ctx context.Context, reference string) (*domain.Complaint, error)
	ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	// ListNonTerminal returns every complaint still subject to escalation.
	ListNonTerminal(ctx context.Context) ([]domain.Complaint, error)
	NextReference(ctx context.Context) (string, error)
	CountByStatus(ctx context.Context) (map[domain.ComplaintStatus]int, error)
	CountByDepartment(ctx context.Context) (map[string]int, error)
	// ResolverStats aggregates solved count and average rating per resolver.
	ResolverStats(ctx context.Context, resolver string) (int, float64, error)
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

const complaintColumns = `id, reference, department, category, description, reported_by, reporter_phone,
               resolved_by, status, rating, feedback, created_at, updated_at, resolved_at,
               target_date, reopened_at, version`

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (reference, department, category, description, reported_by, reporter_phone, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at, version`
	return r.pool.QueryRow(ctx, query,
		complaint.Reference,
		complaint.Department,
		complaint.Category,
		complaint.Description,
		complaint.ReportedBy,
		complaint.ReporterPhone,
		complaint.Status,
	).Scan(&complaint.ID, &complaint.CreatedAt, &complaint.UpdatedAt, &complaint.Version)
}

func (r *complaintRepository) Update(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        UPDATE complaints SET department=$1, resolved_by=$2, status=$3, rating=$4, feedback=$5,
            resolved_at=$6, target_date=$7, reopened_at=$8, updated_at=NOW(), version=version+1
        WHERE id=$9 AND version=$10`
	cmd, err := r.pool.Exec(ctx, query,
		complaint.Department,
		complaint.ResolvedBy,
		complaint.Status,
		complaint.Rating,
		complaint.Feedback,
		complaint.ResolvedAt,
		complaint.TargetDate,
		complaint.ReopenedAt,
		complaint.ID,
		complaint.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	complaint.Version++
	return nil
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE id=$1`, complaintColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *complaintRepository) GetByReference(ctx context.Context, reference string) (*domain.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE reference=$1`, complaintColumns)
	return r.fetchSingle(ctx, query, reference)
}

func (r *complaintRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Complaint, error) {
	var complaint domain.Complaint
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&complaint.ID,
		&complaint.Reference,
		&complaint.Department,
		&complaint.Category,
		&complaint.Description,
		&complaint.ReportedBy,
		&complaint.ReporterPhone,
		&complaint.ResolvedBy,
		&complaint.Status,
		&complaint.Rating,
		&complaint.Feedback,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
		&complaint.ResolvedAt,
		&complaint.TargetDate,
		&complaint.ReopenedAt,
		&complaint.Version,
	); err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *complaintRepository) ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	base := fmt.Sprintf(`SELECT %s FROM complaints`, complaintColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.ReportedBy != nil {
		args = append(args, *filter.ReportedBy)
		clauses = append(clauses, fmt.Sprintf("reported_by=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *complaintRepository) ListNonTerminal(ctx context.Context) ([]domain.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE status NOT IN ($1,$2) ORDER BY created_at ASC`,
		complaintColumns)
	rows, err := r.pool.Query(ctx, query, domain.ComplaintStatusClosed, domain.ComplaintStatusForceClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *complaintRepository) NextReference(ctx context.Context) (string, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('complaint_ref_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("SBH%05d", seq), nil
}

func (r *complaintRepository) CountByStatus(ctx context.Context) (map[domain.ComplaintStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM complaints GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.ComplaintStatus]int)
	for rows.Next() {
		var status domain.ComplaintStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		result[status] = count
	}
	return result, rows.Err()
}

func (r *complaintRepository) CountByDepartment(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT department, COUNT(*) FROM complaints GROUP BY department`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var department string
		var count int
		if err := rows.Scan(&department, &count); err != nil {
			return nil, err
		}
		result[department] = count
	}
	return result, rows.Err()
}

func (r *complaintRepository) ResolverStats(ctx context.Context, resolver string) (int, float64, error) {
	const query = `
        SELECT COUNT(*), COALESCE(AVG(rating), 0)
        FROM complaints
        WHERE resolved_by=$1 AND status IN ($2,$3)`
	var solved int
	var avg float64
	err := r.pool.QueryRow(ctx, query, resolver,
		domain.ComplaintStatusClosed, domain.ComplaintStatusForceClosed).Scan(&solved, &avg)
	if err != nil {
		return 0, 0, err
	}
	return solved, avg, nil
}

func scanComplaints(rows pgx.Rows) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for rows.Next() {
		var complaint domain.Complaint
		if err := rows.Scan(
			&complaint.ID,
			&complaint.Reference,
			&complaint.Department,
			&complaint.Category,
			&complaint.Description,
			&complaint.ReportedBy,
			&complaint.ReporterPhone,
			&complaint.ResolvedBy,
			&complaint.Status,
			&complaint.Rating,
			&complaint.Feedback,
			&complaint.CreatedAt,
			&complaint.UpdatedAt,
			&complaint.ResolvedAt,
			&complaint.TargetDate,
			&complaint.ReopenedAt,
			&complaint.Version,
		); err != nil {
			return nil, err
		}
		result = append(result, complaint)
	}
	return result, rows.Err()
}
