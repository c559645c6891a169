package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"gatehouse/internal/notification/models"
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

// Create inserts the row. Inside a unit of work the insert runs under a
// savepoint, so a failed notification leaves the enclosing transaction usable.
func (s *PostgresStore) Create(ctx context.Context, n *models.Notification) error {
	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("encode notification metadata: %w", err)
	}
	exec := txcontext.Exec(ctx, s.db)
	_, inTx := txcontext.From(ctx)
	if inTx {
		if _, err := exec.ExecContext(ctx, `SAVEPOINT notification`); err != nil {
			return fmt.Errorf("savepoint notification: %w", err)
		}
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, metadata, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(n.ID), uuid.UUID(n.UserID), n.Type, n.Title, n.Body, metadata, n.Read, n.CreatedAt,
	)
	if err != nil {
		if inTx {
			_, _ = exec.ExecContext(ctx, `ROLLBACK TO SAVEPOINT notification`)
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	if inTx {
		if _, err := exec.ExecContext(ctx, `RELEASE SAVEPOINT notification`); err != nil {
			return fmt.Errorf("release savepoint notification: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, type, title, body, metadata, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC, id DESC`
	args := []any{uuid.UUID(userID), unreadOnly}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Notification, 0)
	for rows.Next() {
		var (
			n              models.Notification
			notifID, owner uuid.UUID
			metadata       []byte
		)
		if err := rows.Scan(&notifID, &owner, &n.Type, &n.Title, &n.Body, &metadata, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return nil, fmt.Errorf("decode notification metadata: %w", err)
		}
		n.ID = id.NotificationID(notifID)
		n.UserID = id.UserID(owner)
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		uuid.UUID(notificationID), uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
