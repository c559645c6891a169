package main

import (
	"context"
	"database/sql"

	auditservice "gatehouse/internal/audit/service"
	auditstore "gatehouse/internal/audit/store"
	blacklistservice "gatehouse/internal/blacklist/service"
	blackliststore "gatehouse/internal/blacklist/store"
	consentservice "gatehouse/internal/consent/service"
	consentstore "gatehouse/internal/consent/store"
	dashboardservice "gatehouse/internal/dashboard/service"
	identityservice "gatehouse/internal/identity/service"
	userstore "gatehouse/internal/identity/store/user"
	notificationservice "gatehouse/internal/notification/service"
	notificationstore "gatehouse/internal/notification/store"
	residentservice "gatehouse/internal/resident/service"
	tenantservice "gatehouse/internal/tenant/service"
	buildingstore "gatehouse/internal/tenant/store/building"
	societystore "gatehouse/internal/tenant/store/society"
	visitservice "gatehouse/internal/visit/service"
	visitstore "gatehouse/internal/visit/store"
	visitorservice "gatehouse/internal/visitor/service"
	visitorstore "gatehouse/internal/visitor/store"
	txcontext "gatehouse/pkg/platform/tx"
)

type userStore interface {
	identityservice.UserStore
	residentservice.UserStore
}

type visitStore interface {
	visitservice.Store
	dashboardservice.Store
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// stores is the persistence layer of one process: all Postgres or all in
// memory, never mixed.
type stores struct {
	tx            txRunner
	users         userStore
	societies     tenantservice.SocietyStore
	buildings     tenantservice.BuildingStore
	visitors      visitorservice.Store
	visits        visitStore
	blacklist     blacklistservice.Store
	consent       consentservice.Store
	notifications notificationservice.Store
	audit         auditservice.Store
	// outbox is nil on in-memory stores; the Kafka relay needs Postgres.
	outbox *auditstore.PostgresStore
}

func newStores(db *sql.DB) stores {
	if db == nil {
		return stores{
			tx:            txcontext.NewMemoryRunner(),
			users:         userstore.NewInMemory(),
			societies:     societystore.NewInMemory(),
			buildings:     buildingstore.NewInMemory(),
			visitors:      visitorstore.NewInMemory(),
			visits:        visitstore.NewInMemory(),
			blacklist:     blackliststore.NewInMemory(),
			consent:       consentstore.NewInMemory(),
			notifications: notificationstore.NewInMemory(),
			audit:         auditstore.NewInMemory(),
		}
	}
	outbox := auditstore.NewPostgres(db)
	return stores{
		tx:            txcontext.NewSQLRunner(db),
		users:         userstore.NewPostgres(db),
		societies:     societystore.NewPostgres(db),
		buildings:     buildingstore.NewPostgres(db),
		visitors:      visitorstore.NewPostgres(db),
		visits:        visitstore.NewPostgres(db),
		blacklist:     blackliststore.NewPostgres(db),
		consent:       consentstore.NewPostgres(db),
		notifications: notificationstore.NewPostgres(db),
		audit:         outbox,
		outbox:        outbox,
	}
}
