package building

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"gatehouse/internal/tenant/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
	txcontext "gatehouse/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, b *models.Building) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO buildings (id, society_id, name, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(b.ID), uuid.UUID(b.SocietyID), b.Name, b.SortOrder, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert building: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, buildingID id.BuildingID) (*models.Building, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, society_id, name, sort_order, created_at FROM buildings WHERE id = $1`,
		uuid.UUID(buildingID))
	b, err := scanBuilding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return b, err
}

func (s *PostgresStore) ListBySociety(ctx context.Context, societyID id.SocietyID) ([]*models.Building, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, society_id, name, sort_order, created_at FROM buildings
		WHERE society_id = $1
		ORDER BY sort_order, name`, uuid.UUID(societyID))
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	defer rows.Close()

	var out []*models.Building
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuilding(row scanner) (*models.Building, error) {
	var (
		b                 models.Building
		rawID, rawSociety uuid.UUID
	)
	if err := row.Scan(&rawID, &rawSociety, &b.Name, &b.SortOrder, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan building: %w", err)
	}
	b.ID = id.BuildingID(rawID)
	b.SocietyID = id.SocietyID(rawSociety)
	return &b, nil
}
