package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gatehouse/internal/audit/models"
	id "gatehouse/pkg/domain"
	txcontext "gatehouse/pkg/platform/tx"
)

// PostgresStore writes audit_logs rows and, in the same transaction, the
// outbox entry the relay publishes to Kafka. Inside a caller's unit of work
// the pair is written under a savepoint so an audit failure never aborts it.
type PostgresStore struct {
	db *sql.DB
	tx *txcontext.SQLRunner
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, tx: txcontext.NewSQLRunner(db)}
}

// outboxPayload is the message value published to the audit topic.
type outboxPayload struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	SocietyID string         `json:"society_id,omitempty"`
	Action    string         `json:"action"`
	Endpoint  string         `json:"endpoint"`
	Method    string         `json:"method,omitempty"`
	Details   map[string]any `json:"details"`
	Timestamp string         `json:"timestamp"`
}

func (s *PostgresStore) Append(ctx context.Context, e *models.Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	payload := outboxPayload{
		ID:        e.ID.String(),
		UserID:    e.UserID.String(),
		Action:    e.Action,
		Endpoint:  e.Endpoint,
		Method:    e.Method,
		Details:   e.Details,
		Timestamp: e.CreatedAt.Format(time.RFC3339Nano),
	}
	var society uuid.NullUUID
	if e.SocietyID != nil {
		society = uuid.NullUUID{UUID: uuid.UUID(*e.SocietyID), Valid: true}
		payload.SocietyID = e.SocietyID.String()
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	_, joined := txcontext.From(ctx)
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.Exec(ctx, s.db)
		if joined {
			if _, err := exec.ExecContext(ctx, `SAVEPOINT audit`); err != nil {
				return fmt.Errorf("savepoint audit: %w", err)
			}
		}
		if err := insertEntry(ctx, exec, e, society, details, payloadBytes); err != nil {
			if joined {
				_, _ = exec.ExecContext(ctx, `ROLLBACK TO SAVEPOINT audit`)
			}
			return err
		}
		if joined {
			if _, err := exec.ExecContext(ctx, `RELEASE SAVEPOINT audit`); err != nil {
				return fmt.Errorf("release savepoint audit: %w", err)
			}
		}
		return nil
	})
}

func insertEntry(ctx context.Context, exec txcontext.Executor, e *models.Entry, society uuid.NullUUID, details, payload []byte) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO audit_logs (id, user_id, society_id, action, endpoint, method, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(e.ID), uuid.UUID(e.UserID), society, e.Action, e.Endpoint, e.Method, details, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), "user", e.UserID.String(), e.Action, payload, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, societyID *id.SocietyID, limit int) ([]*models.Entry, error) {
	var society uuid.NullUUID
	if societyID != nil {
		society = uuid.NullUUID{UUID: uuid.UUID(*societyID), Valid: true}
	}
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, user_id, society_id, action, endpoint, method, details, created_at
		FROM audit_logs
		WHERE ($1::uuid IS NULL OR society_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, society, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Entry, 0)
	for rows.Next() {
		var (
			e             models.Entry
			entryID, user uuid.UUID
			soc           uuid.NullUUID
			details       []byte
		)
		if err := rows.Scan(&entryID, &user, &soc, &e.Action, &e.Endpoint, &e.Method, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode audit details: %w", err)
		}
		e.ID = id.AuditLogID(entryID)
		e.UserID = id.UserID(user)
		if soc.Valid {
			sid := id.SocietyID(soc.UUID)
			e.SocietyID = &sid
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Pending returns up to limit unpublished outbox entries, oldest first. Rows
// are locked with SKIP LOCKED so concurrent relays do not double publish.
func (s *PostgresStore) Pending(ctx context.Context, limit int) ([]models.OutboxEntry, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("select outbox: %w", err)
	}
	defer rows.Close()

	out := make([]models.OutboxEntry, 0, limit)
	for rows.Next() {
		var (
			e       models.OutboxEntry
			entryID uuid.UUID
		)
		if err := rows.Scan(&entryID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		e.ID = id.AuditLogID(entryID)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []id.AuditLogID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, entryID := range ids {
		raw[i] = entryID.String()
	}
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`, at, pq.Array(raw))
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// RunInTx lets the relay hold the outbox row locks until rows are marked.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.tx.RunInTx(ctx, fn)
}
