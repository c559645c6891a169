package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gatehouse/internal/tenant/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

// Fixed identifiers of the demo tenant so demo tokens and fixtures stay
// stable across restarts.
var (
	DemoSocietyID  = id.SocietyID(uuid.MustParse("00000000-0000-0000-0000-000000000100"))
	DemoBuildingID = id.BuildingID(uuid.MustParse("00000000-0000-0000-0000-000000000101"))
)

type seedSocieties interface {
	CreateIfSlugAvailable(ctx context.Context, society *models.Society) error
	FindByID(ctx context.Context, societyID id.SocietyID) (*models.Society, error)
}

type seedBuildings interface {
	Create(ctx context.Context, building *models.Building) error
}

// SeedDemoSociety creates "Demo Society" with one tower unless it exists.
func SeedDemoSociety(ctx context.Context, societies seedSocieties, buildings seedBuildings) (*models.Society, error) {
	existing, err := societies.FindByID(ctx, DemoSocietyID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	society, err := models.NewSociety(DemoSocietyID, "Demo Society", "demo-society", now)
	if err != nil {
		return nil, err
	}
	society.Address = "123 Demo Road"
	society.City = "Mumbai"
	society.State = "Maharashtra"
	society.Pincode = "400001"
	society.Country = "India"
	society.ContactEmail = "admin@demosociety.local"
	if err := societies.CreateIfSlugAvailable(ctx, society); err != nil {
		return nil, err
	}

	tower, err := models.NewBuilding(DemoBuildingID, DemoSocietyID, "Tower A", 0, now)
	if err != nil {
		return nil, err
	}
	if err := buildings.Create(ctx, tower); err != nil {
		return nil, err
	}
	return society, nil
}
