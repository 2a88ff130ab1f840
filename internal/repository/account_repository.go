package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// AccountFilter defines query params for account listing.
type AccountFilter struct {
	Role       *domain.AccountRole
	Department *string
	Status     *domain.AccountStatus
	Limit      int
	Offset     int
}

// AccountRepository defines persistence access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByUsername matches case-insensitively.
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	List(ctx context.Context, filter AccountFilter) ([]domain.Account, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `id, username, password_hash, role, department, phone, status,
               solved_count, avg_rating, created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (username, password_hash, role, department, phone, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		account.Username,
		account.PasswordHash,
		account.Role,
		account.Department,
		account.Phone,
		account.Status,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts SET username=$1, password_hash=$2, role=$3, department=$4, phone=$5,
            status=$6, solved_count=$7, avg_rating=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		account.Username,
		account.PasswordHash,
		account.Role,
		account.Department,
		account.Phone,
		account.Status,
		account.SolvedCount,
		account.AvgRating,
		account.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE id=$1`, accountColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE LOWER(username)=LOWER($1)`, accountColumns)
	return r.fetchSingle(ctx, query, strings.TrimSpace(username))
}

func (r *accountRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var account domain.Account
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.Role,
		&account.Department,
		&account.Phone,
		&account.Status,
		&account.SolvedCount,
		&account.AvgRating,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts`, accountColumns)
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(
			&account.ID,
			&account.Username,
			&account.PasswordHash,
			&account.Role,
			&account.Department,
			&account.Phone,
			&account.Status,
			&account.SolvedCount,
			&account.AvgRating,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, account)
	}
	return result, rows.Err()
}
