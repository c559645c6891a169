package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gatehouse/internal/identity/models"
	"gatehouse/internal/identity/secrets"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

// DemoUserID is the account demo mode resolves unauthenticated requests to.
var DemoUserID = id.UserID(uuid.MustParse("00000000-0000-0000-0000-000000000001"))

var demoAccounts = []struct {
	id    string
	email string
	name  string
	role  models.Role
	flat  string
}{
	{"00000000-0000-0000-0000-000000000001", "demo@vms.local", "Demo Resident", models.RoleResident, "A-101"},
	{"00000000-0000-0000-0000-000000000002", "resident2@vms.local", "Rajesh Kumar", models.RoleResident, "B-202"},
	{"00000000-0000-0000-0000-000000000003", "resident3@vms.local", "Priya Sharma", models.RoleResident, "C-303"},
	{"00000000-0000-0000-0000-000000000010", "guard@vms.local", "Security Guard", models.RoleGuard, ""},
}

type seedStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
}

// SeedDemoUsers creates the demo residents and guard in the demo society.
// Existing accounts are left alone. Demo accounts get a random password so
// they are reachable only through demo mode.
func SeedDemoUsers(ctx context.Context, store seedStore, societyID id.SocietyID, buildingID id.BuildingID) error {
	for _, acct := range demoAccounts {
		userID := id.UserID(uuid.MustParse(acct.id))
		if _, err := store.FindByID(ctx, userID); err == nil {
			continue
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		password, err := secrets.Generate()
		if err != nil {
			return err
		}
		hash, err := secrets.HashPassword(password)
		if err != nil {
			return err
		}
		u, err := models.NewUser(userID, acct.email, hash, acct.name, acct.role, time.Now())
		if err != nil {
			return err
		}
		u.SocietyID = societyID
		b := buildingID
		u.BuildingID = &b
		u.FlatNumber = acct.flat
		if err := store.Create(ctx, u); err != nil && !errors.Is(err, sentinel.ErrConflict) {
			return err
		}
	}
	return nil
}
