package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
	txcontext "gatehouse/pkg/platform/tx"
)

// PostgresStore persists visitors in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const visitorColumns = `id, phone, name, email, id_proof_type, id_proof_number, photo_url,
	is_blacklisted, created_at, updated_at`

// Create reports a taken phone as ErrConflict without raising a unique
// violation, so an enclosing transaction stays usable for the re-read.
func (s *PostgresStore) Create(ctx context.Context, v *models.Visitor) error {
	query := `INSERT INTO visitors (` + visitorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (phone) DO NOTHING`
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(v.ID), v.Phone, v.Name, v.Email, v.IDProofType, v.IDProofNumber, v.PhotoURL,
		v.IsBlacklisted, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert visitor: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+visitorColumns+` FROM visitors WHERE id = $1`, uuid.UUID(visitorID))
	return scanVisitor(row)
}

func (s *PostgresStore) FindByPhone(ctx context.Context, phone string) (*models.Visitor, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+visitorColumns+` FROM visitors WHERE phone = $1`, models.NormalizePhone(phone))
	return scanVisitor(row)
}

func (s *PostgresStore) Update(ctx context.Context, v *models.Visitor) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE visitors
		SET name = $2, email = $3, id_proof_type = $4, id_proof_number = $5, photo_url = $6,
			is_blacklisted = $7, updated_at = $8
		WHERE id = $1`,
		uuid.UUID(v.ID), v.Name, v.Email, v.IDProofType, v.IDProofNumber, v.PhotoURL,
		v.IsBlacklisted, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update visitor: %w", err)
	}
	return requireOneRow(res)
}

func (s *PostgresStore) SetBlacklisted(ctx context.Context, visitorID id.VisitorID, flag bool) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE visitors SET is_blacklisted = $2 WHERE id = $1`, uuid.UUID(visitorID), flag)
	if err != nil {
		return fmt.Errorf("set visitor blacklist flag: %w", err)
	}
	return requireOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisitor(row rowScanner) (*models.Visitor, error) {
	var (
		v       models.Visitor
		visitor uuid.UUID
	)
	err := row.Scan(&visitor, &v.Phone, &v.Name, &v.Email, &v.IDProofType, &v.IDProofNumber,
		&v.PhotoURL, &v.IsBlacklisted, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan visitor: %w", err)
	}
	v.ID = id.VisitorID(visitor)
	return &v, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "SQLSTATE 23505")
}
