package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"gatehouse/internal/blacklist/models"
	id "gatehouse/pkg/domain"
	txcontext "gatehouse/pkg/platform/tx"
)

// PostgresStore persists blacklist entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, e *models.Entry) error {
	var society uuid.NullUUID
	if e.SocietyID != nil {
		society = uuid.NullUUID{UUID: uuid.UUID(*e.SocietyID), Valid: true}
	}
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO blacklist (id, visitor_id, society_id, reason, created_by, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(e.ID), uuid.UUID(e.VisitorID), society, e.Reason, uuid.UUID(e.CreatedBy), e.IsActive, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert blacklist entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsBanned(ctx context.Context, visitorID id.VisitorID, societyID id.SocietyID) (bool, error) {
	var banned bool
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM blacklist
			WHERE visitor_id = $1 AND is_active AND (society_id = $2 OR society_id IS NULL)
		)`, uuid.UUID(visitorID), uuid.UUID(societyID)).Scan(&banned)
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return banned, nil
}

func (s *PostgresStore) DeactivateForSociety(ctx context.Context, visitorID id.VisitorID, societyID id.SocietyID) (int, error) {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE blacklist SET is_active = FALSE
		WHERE visitor_id = $1 AND society_id = $2 AND is_active`,
		uuid.UUID(visitorID), uuid.UUID(societyID))
	if err != nil {
		return 0, fmt.Errorf("deactivate blacklist entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) HasAnyActive(ctx context.Context, visitorID id.VisitorID) (bool, error) {
	var active bool
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM blacklist WHERE visitor_id = $1 AND is_active)`,
		uuid.UUID(visitorID)).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("check active blacklist entries: %w", err)
	}
	return active, nil
}

func (s *PostgresStore) ListActiveBySociety(ctx context.Context, societyID id.SocietyID) ([]*models.Entry, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, visitor_id, society_id, reason, created_by, is_active, created_at
		FROM blacklist
		WHERE society_id = $1 AND is_active
		ORDER BY created_at DESC, id`, uuid.UUID(societyID))
	if err != nil {
		return nil, fmt.Errorf("list blacklist: %w", err)
	}
	defer rows.Close()

	var out []*models.Entry
	for rows.Next() {
		var (
			e                         models.Entry
			entryID, visitor, creator uuid.UUID
			society                   uuid.NullUUID
		)
		if err := rows.Scan(&entryID, &visitor, &society, &e.Reason, &creator, &e.IsActive, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		e.ID = id.BlacklistID(entryID)
		e.VisitorID = id.VisitorID(visitor)
		e.CreatedBy = id.UserID(creator)
		if society.Valid {
			sid := id.SocietyID(society.UUID)
			e.SocietyID = &sid
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
