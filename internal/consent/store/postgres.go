package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"gatehouse/internal/consent/models"
	id "gatehouse/pkg/domain"
	txcontext "gatehouse/pkg/platform/tx"
)

// PostgresStore appends consent rows. There is no update or delete path.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, l *models.Log) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO consent_logs (id, visitor_id, visit_id, consent_type, consent_given, consent_text,
			ip_address, user_agent, device, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(l.ID), uuid.UUID(l.VisitorID), uuid.UUID(l.VisitID), l.ConsentType, l.ConsentGiven,
		l.ConsentText, l.IPAddress, l.UserAgent, l.Device, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consent log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByVisit(ctx context.Context, visitID id.VisitID) ([]*models.Log, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, visitor_id, visit_id, consent_type, consent_given, consent_text,
			ip_address, user_agent, device, created_at
		FROM consent_logs
		WHERE visit_id = $1
		ORDER BY created_at, id`, uuid.UUID(visitID))
	if err != nil {
		return nil, fmt.Errorf("list consent logs: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Log, 0)
	for rows.Next() {
		var (
			l                       models.Log
			logID, visitor, visitID uuid.UUID
		)
		if err := rows.Scan(&logID, &visitor, &visitID, &l.ConsentType, &l.ConsentGiven, &l.ConsentText,
			&l.IPAddress, &l.UserAgent, &l.Device, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan consent log: %w", err)
		}
		l.ID = id.ConsentLogID(logID)
		l.VisitorID = id.VisitorID(visitor)
		l.VisitID = id.VisitID(visitID)
		out = append(out, &l)
	}
	return out, rows.Err()
}
