package society

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gatehouse/internal/tenant/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
	txcontext "gatehouse/pkg/platform/tx"
)

// PostgresStore persists societies in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const societyColumns = `id, name, slug, address, city, state, pincode, country,
	contact_email, contact_phone, registration_number, plan, status, created_at, updated_at`

func (s *PostgresStore) CreateIfSlugAvailable(ctx context.Context, soc *models.Society) error {
	query := `INSERT INTO societies (` + societyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(soc.ID), soc.Name, soc.Slug, soc.Address, soc.City, soc.State, soc.Pincode, soc.Country,
		soc.ContactEmail, soc.ContactPhone, soc.RegistrationNumber, soc.Plan, string(soc.Status),
		soc.CreatedAt, soc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert society: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, societyID id.SocietyID) (*models.Society, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+societyColumns+` FROM societies WHERE id = $1`, uuid.UUID(societyID))
	return scanSociety(row)
}

func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*models.Society, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+societyColumns+` FROM societies WHERE slug = $1`, slug)
	return scanSociety(row)
}

func (s *PostgresStore) List(ctx context.Context, q string, limit int) ([]*models.Society, error) {
	query := `SELECT ` + societyColumns + ` FROM societies
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR slug ILIKE '%' || $1 || '%')
		ORDER BY name
		LIMIT $2`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, strings.TrimSpace(q), limit)
	if err != nil {
		return nil, fmt.Errorf("list societies: %w", err)
	}
	defer rows.Close()

	var out []*models.Society
	for rows.Next() {
		soc, err := scanSociety(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, soc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, soc *models.Society) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE societies SET name = $2, address = $3, city = $4, state = $5, pincode = $6, country = $7,
			contact_email = $8, contact_phone = $9, plan = $10, status = $11, updated_at = $12
		WHERE id = $1`,
		uuid.UUID(soc.ID), soc.Name, soc.Address, soc.City, soc.State, soc.Pincode, soc.Country,
		soc.ContactEmail, soc.ContactPhone, soc.Plan, string(soc.Status), soc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update society: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSociety(row scanner) (*models.Society, error) {
	var (
		soc    models.Society
		rawID  uuid.UUID
		status string
	)
	err := row.Scan(&rawID, &soc.Name, &soc.Slug, &soc.Address, &soc.City, &soc.State, &soc.Pincode,
		&soc.Country, &soc.ContactEmail, &soc.ContactPhone, &soc.RegistrationNumber, &soc.Plan,
		&status, &soc.CreatedAt, &soc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan society: %w", err)
	}
	soc.ID = id.SocietyID(rawID)
	soc.Status = models.SocietyStatus(status)
	return &soc, nil
}

// isUniqueViolation recognizes 23505 from either driver error type.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "SQLSTATE 23505")
}
