package crm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oakline/callbridge/internal/phone"
)

// PgxPool is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads and customers in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("crm: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// CreateLead inserts a new lead row with its normalized phone key.
func (r *PostgresRepository) CreateLead(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	key, err := req.Validate()
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	query := `
		INSERT INTO leads (id, org_id, name, phone, phone_digits, email, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		req.OrgID,
		req.Name,
		req.Phone,
		string(key),
		req.Email,
		req.Source,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("crm: insert lead: %w", err)
	}
	return &Lead{
		ID:          id.String(),
		OrgID:       req.OrgID,
		Name:        req.Name,
		Phone:       req.Phone,
		PhoneDigits: string(key),
		Email:       req.Email,
		Source:      req.Source,
		CreatedAt:   createdAt,
	}, nil
}

// FindLeadByPhone returns the most recently created lead for the key.
// Households sharing a number produce multiple rows; recency best
// approximates the active conversation.
func (r *PostgresRepository) FindLeadByPhone(ctx context.Context, orgID string, key phone.Normalized) (*Lead, error) {
	query := `
		SELECT id, org_id, name, phone, phone_digits, email, source, created_at
		FROM leads
		WHERE org_id = $1 AND phone_digits = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := r.pool.QueryRow(ctx, query, orgID, string(key))
	var lead Lead
	if err := row.Scan(
		&lead.ID,
		&lead.OrgID,
		&lead.Name,
		&lead.Phone,
		&lead.PhoneDigits,
		&lead.Email,
		&lead.Source,
		&lead.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("crm: select lead by phone: %w", err)
	}
	return &lead, nil
}

// FindCustomerByPhone returns the most recently created customer for the key.
func (r *PostgresRepository) FindCustomerByPhone(ctx context.Context, orgID string, key phone.Normalized) (*Customer, error) {
	query := `
		SELECT id, org_id, name, phone, phone_digits, email, COALESCE(converted_from_lead::text, ''), created_at
		FROM customers
		WHERE org_id = $1 AND phone_digits = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := r.pool.QueryRow(ctx, query, orgID, string(key))
	var cust Customer
	if err := row.Scan(
		&cust.ID,
		&cust.OrgID,
		&cust.Name,
		&cust.Phone,
		&cust.PhoneDigits,
		&cust.Email,
		&cust.ConvertedFromLead,
		&cust.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("crm: select customer by phone: %w", err)
	}
	return &cust, nil
}
