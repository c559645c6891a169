package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gatehouse/internal/visit/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
	txcontext "gatehouse/pkg/platform/tx"
)

// PostgresStore persists visits in PostgreSQL. Visits have no society
// column; the society is read through the host.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectVisit = `SELECT v.id, v.visitor_id, v.host_id, u.society_id, v.status, v.purpose,
		v.expected_arrival, v.actual_arrival, v.actual_departure, v.qr_code, v.otp, v.otp_expires_at,
		v.consent_given, v.consent_timestamp, v.photo_url, v.walkin, v.guard_id, v.created_at, v.updated_at
	FROM visits v
	JOIN users u ON u.id = v.host_id`

// Create reports a taken QR code as ErrConflict. ON CONFLICT keeps the
// enclosing transaction usable so the caller can retry with fresh tokens.
func (s *PostgresStore) Create(ctx context.Context, v *models.Visit) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO visits (id, visitor_id, host_id, status, purpose, expected_arrival, actual_arrival,
			actual_departure, qr_code, otp, otp_expires_at, consent_given, consent_timestamp, photo_url,
			walkin, guard_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT DO NOTHING`,
		uuid.UUID(v.ID), uuid.UUID(v.VisitorID), uuid.UUID(v.HostID), string(v.Status), v.Purpose,
		v.ExpectedArrival, v.ActualArrival, v.ActualDeparture, nullString(v.QRCode), nullString(v.OTP),
		v.OTPExpiresAt, v.ConsentGiven, v.ConsentTimestamp, v.PhotoURL,
		v.Metadata.WalkIn, nullUser(v.Metadata.GuardID), v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert visit: %w", err)
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

func (s *PostgresStore) FindByID(ctx context.Context, visitID id.VisitID) (*models.Visit, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, selectVisit+` WHERE v.id = $1`, uuid.UUID(visitID))
	return scanVisit(row)
}

func (s *PostgresStore) FindByOTP(ctx context.Context, otp string, now time.Time) (*models.Visit, error) {
	return s.findToken(ctx, "v.otp", otp, now)
}

func (s *PostgresStore) FindByQR(ctx context.Context, qr string, now time.Time) (*models.Visit, error) {
	return s.findToken(ctx, "v.qr_code", qr, now)
}

func (s *PostgresStore) findToken(ctx context.Context, column, token string, now time.Time) (*models.Visit, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, selectVisit+`
		WHERE `+column+` = $1
			AND v.status = ANY($2::text[])
			AND v.otp_expires_at > $3
		ORDER BY v.created_at DESC, v.id DESC
		LIMIT 1`,
		token, pq.Array([]string{string(models.StatusPending), string(models.StatusApproved)}), now)
	return scanVisit(row)
}

func (s *PostgresStore) Update(ctx context.Context, v *models.Visit) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE visits
		SET status = $2, purpose = $3, expected_arrival = $4, actual_arrival = $5, actual_departure = $6,
			qr_code = $7, otp = $8, otp_expires_at = $9, consent_given = $10, consent_timestamp = $11,
			photo_url = $12, walkin = $13, guard_id = $14, updated_at = $15
		WHERE id = $1`,
		uuid.UUID(v.ID), string(v.Status), v.Purpose, v.ExpectedArrival, v.ActualArrival, v.ActualDeparture,
		nullString(v.QRCode), nullString(v.OTP), v.OTPExpiresAt, v.ConsentGiven, v.ConsentTimestamp,
		v.PhotoURL, v.Metadata.WalkIn, nullUser(v.Metadata.GuardID), v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update visit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*models.Visit, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.SocietyID != nil {
		add("u.society_id = $%d", uuid.UUID(*f.SocietyID))
	}
	if f.HostID != nil {
		add("v.host_id = $%d", uuid.UUID(*f.HostID))
	}
	if f.Status != "" {
		add("v.status = $%d", string(f.Status))
	}

	query := selectVisit
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY v.created_at DESC, v.id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Visit, 0)
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountDistinctVisitorsBetween(ctx context.Context, societyID *id.SocietyID, from, to time.Time) (int, error) {
	var n int
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT v.visitor_id)
		FROM visits v
		JOIN users u ON u.id = v.host_id
		WHERE v.created_at >= $1 AND v.created_at < $2
			AND ($3::uuid IS NULL OR u.society_id = $3)`,
		from, to, nullSociety(societyID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count visitors: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, societyID *id.SocietyID, status models.Status) (int, error) {
	var n int
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM visits v
		JOIN users u ON u.id = v.host_id
		WHERE v.status = $1
			AND ($2::uuid IS NULL OR u.society_id = $2)`,
		string(status), nullSociety(societyID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count visits by status: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row rowScanner) (*models.Visit, error) {
	var (
		v                         models.Visit
		visitID, visitor, host    uuid.UUID
		society, guard            uuid.NullUUID
		status                    string
		qr, otp                   sql.NullString
		expected, arrival, depart sql.NullTime
		expires, consentAt        sql.NullTime
	)
	err := row.Scan(&visitID, &visitor, &host, &society, &status, &v.Purpose,
		&expected, &arrival, &depart, &qr, &otp, &expires,
		&v.ConsentGiven, &consentAt, &v.PhotoURL, &v.Metadata.WalkIn, &guard, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan visit: %w", err)
	}
	v.ID = id.VisitID(visitID)
	v.VisitorID = id.VisitorID(visitor)
	v.HostID = id.UserID(host)
	if society.Valid {
		v.SocietyID = id.SocietyID(society.UUID)
	}
	v.Status = models.Status(status)
	v.QRCode = qr.String
	v.OTP = otp.String
	v.ExpectedArrival = timePtr(expected)
	v.ActualArrival = timePtr(arrival)
	v.ActualDeparture = timePtr(depart)
	v.OTPExpiresAt = timePtr(expires)
	v.ConsentTimestamp = timePtr(consentAt)
	if guard.Valid {
		g := id.UserID(guard.UUID)
		v.Metadata.GuardID = &g
	}
	return &v, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// nullString stores empty tokens as NULL so the unique QR index ignores them.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUser(u *id.UserID) uuid.NullUUID {
	if u == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*u), Valid: true}
}

func nullSociety(s *id.SocietyID) uuid.NullUUID {
	if s == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*s), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "SQLSTATE 23505")
}
