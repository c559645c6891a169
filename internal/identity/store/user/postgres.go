package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gatehouse/internal/identity/models"
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

const userColumns = `id, email, password_hash, full_name, phone, role, society_id, building_id,
	flat_number, is_active, created_at`

var hostRoles = pq.Array([]string{string(models.RoleResident), string(models.RoleAdmin)})

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(u.ID), models.NormalizeEmail(u.Email), u.PasswordHash, u.FullName, u.Phone, string(u.Role),
		nullSociety(u.SocietyID), nullBuilding(u.BuildingID), u.FlatNumber, u.IsActive, u.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if (errors.As(err, &pqErr) && pqErr.Code == "23505") || strings.Contains(err.Error(), "SQLSTATE 23505") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(userID))
	return scanUser(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, models.NormalizeEmail(email))
	return scanUser(row)
}

func (s *PostgresStore) ListBySociety(ctx context.Context, societyID id.SocietyID, role models.Role) ([]*models.User, error) {
	return s.query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE society_id = $1 AND is_active AND ($2 = '' OR role = $2)
		ORDER BY full_name, id`, uuid.UUID(societyID), string(role))
}

func (s *PostgresStore) FindHostsByFlat(ctx context.Context, societyID id.SocietyID, buildingID id.BuildingID, flat string) ([]*models.User, error) {
	return s.query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE society_id = $1 AND building_id = $2 AND lower(trim(flat_number)) = lower($3)
			AND is_active AND role = ANY($4::text[])
		ORDER BY created_at, id`,
		uuid.UUID(societyID), uuid.UUID(buildingID), strings.TrimSpace(flat), hostRoles)
}

func (s *PostgresStore) SearchHosts(ctx context.Context, societyID id.SocietyID, q string, limit int) ([]*models.User, error) {
	return s.query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE society_id = $1 AND is_active AND role = ANY($2::text[])
			AND ($3 = '' OR full_name ILIKE '%' || $3 || '%' OR email ILIKE '%' || $3 || '%' OR flat_number ILIKE '%' || $3 || '%')
		ORDER BY full_name, id
		LIMIT $4`,
		uuid.UUID(societyID), hostRoles, strings.TrimSpace(q), limit)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()
	out := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u        models.User
		rawID    uuid.UUID
		role     string
		society  uuid.NullUUID
		building uuid.NullUUID
	)
	err := row.Scan(&rawID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &role,
		&society, &building, &u.FlatNumber, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = id.UserID(rawID)
	u.Role = models.Role(role)
	if society.Valid {
		u.SocietyID = id.SocietyID(society.UUID)
	}
	if building.Valid {
		b := id.BuildingID(building.UUID)
		u.BuildingID = &b
	}
	return &u, nil
}

func nullSociety(societyID id.SocietyID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(societyID), Valid: !societyID.IsNil()}
}

func nullBuilding(buildingID *id.BuildingID) uuid.NullUUID {
	if buildingID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*buildingID), Valid: true}
}
