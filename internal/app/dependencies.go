package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Store           domain.UnitOfWork
	Addresses       domain.AddressBook
	Payments        domain.PaymentMethodRegistry
	Users           domain.UserDirectory
	OutboxRepo      domain.OutboxRepository
	TimelineRepo    domain.TimelineRepository
	IdempotencyRepo domain.IdempotencyRepository
	Logger          *log.Entry

	pg *postgres.Store
}

// Ping проверяет доступность хранилища (для readiness probe).
func (d *Dependencies) Ping(ctx context.Context) error {
	if d.pg != nil {
		return d.pg.Ping(ctx)
	}
	return nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d.pg != nil {
		return d.pg.Close()
	}
	return nil
}

// NewPostgresDependencies подключается к PostgreSQL и применяет миграции.
func NewPostgresDependencies(ctx context.Context, dsn string, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := store.MigrateUp(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("postgres storage initialized")

	return &Dependencies{
		Store:           store,
		Addresses:       postgres.NewAddressBook(store),
		Payments:        postgres.NewPaymentMethodRegistry(store),
		Users:           postgres.NewUserDirectory(store),
		OutboxRepo:      postgres.NewOutboxRepository(store),
		TimelineRepo:    postgres.NewTimelineRepository(store),
		IdempotencyRepo: postgres.NewIdempotencyRepository(store),
		Logger:          logger,
		pg:              store,
	}, nil
}

// NewMemoryDependencies собирает in-memory зависимости с демо-данными.
// Используется для локальной разработки без PostgreSQL.
func NewMemoryDependencies(ctx context.Context, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	store := memory.NewStore()
	addresses := memory.NewAddressBook()
	payments := memory.NewPaymentMethodRegistry()
	users := memory.NewUserDirectory()

	if err := seedDemoData(ctx, store, addresses, payments, users); err != nil {
		return nil, fmt.Errorf("seed demo data: %w", err)
	}

	logger.Warn("using in-memory storage with demo data; all state is lost on restart")

	return &Dependencies{
		Store:           store,
		Addresses:       addresses,
		Payments:        payments,
		Users:           users,
		OutboxRepo:      memory.NewOutboxRepository(),
		TimelineRepo:    memory.NewTimelineRepository(),
		IdempotencyRepo: memory.NewIdempotencyRepository(),
		Logger:          logger,
	}, nil
}

// seedDemoData наполняет in-memory хранилище демо-каталогом и пользователем.
func seedDemoData(
	ctx context.Context,
	store *memory.Store,
	addresses *memory.AddressBook,
	payments *memory.PaymentMethodRegistry,
	users *memory.UserDirectory,
) error {
	store.SeedProducts(
		domain.Product{ID: "demo-mug", Name: "Кружка", PriceMinor: 59900, Stock: 25},
		domain.Product{ID: "demo-tshirt", Name: "Футболка", PriceMinor: 149900, Stock: 10},
		domain.Product{ID: "demo-poster", Name: "Постер", PriceMinor: 39900, Stock: 3},
	)

	if err := users.Save(ctx, domain.User{
		ID:          "demo-user",
		DisplayName: "Demo User",
		Email:       "demo@example.com",
	}); err != nil {
		return err
	}
	if err := addresses.Save(ctx, domain.Address{
		ID:     "demo-address",
		UserID: "demo-user",
		Street: "Тверская 1",
		City:   "Москва",
		Zip:    "125009",
	}); err != nil {
		return err
	}
	return payments.Save(ctx, domain.PaymentMethod{
		ID:          "demo-card",
		UserID:      "demo-user",
		Type:        "card",
		Description: "VISA **** 4242",
	})
}
