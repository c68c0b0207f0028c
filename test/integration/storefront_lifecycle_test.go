package integration

import (
	"context"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type capturingPublisher struct {
	mu        sync.Mutex
	published []domain.OutboxMessage
}

func (p *capturingPublisher) Publish(msg domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, msg)
	return nil
}

// StorefrontLifecycleTestSuite проверяет полный путь покупателя: корзина,
// checkout, жизненный цикл заказа и публикация событий через outbox.
type StorefrontLifecycleTestSuite struct {
	suite.Suite
	store        *memory.Store
	addresses    *memory.AddressBook
	payments     *memory.PaymentMethodRegistry
	users        *memory.UserDirectory
	outboxRepo   *memory.OutboxRepository
	timeline     *memory.TimelineRepository
	synchronizer *cart.Synchronizer
	orchestrator *checkout.Orchestrator
	lifecycle    *order.Lifecycle
}

func (s *StorefrontLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	s.store = memory.NewStore()
	s.addresses = memory.NewAddressBook()
	s.payments = memory.NewPaymentMethodRegistry()
	s.users = memory.NewUserDirectory()
	s.outboxRepo = memory.NewOutboxRepository()
	s.timeline = memory.NewTimelineRepository()

	validator := cart.NewValidator(s.store, logger)
	s.synchronizer = cart.NewSynchronizer(s.store, logger)
	s.orchestrator = checkout.NewOrchestratorWithoutMetrics(
		s.store, validator, s.addresses, s.payments, s.users, s.outboxRepo, s.timeline, logger,
	)
	s.lifecycle = order.NewLifecycleWithoutMetrics(s.store, s.outboxRepo, s.timeline, logger)

	ctx := context.Background()
	require.NoError(s.T(), s.users.Save(ctx, domain.User{ID: "buyer", DisplayName: "Demo Buyer", Email: "buyer@example.com"}))
	require.NoError(s.T(), s.addresses.Save(ctx, domain.Address{ID: "addr", UserID: "buyer", Street: "Тверская 1", City: "Москва", Zip: "125009"}))
	require.NoError(s.T(), s.payments.Save(ctx, domain.PaymentMethod{ID: "pm", UserID: "buyer", Type: "card", Description: "VISA **** 4242"}))
	s.store.SeedProducts(
		domain.Product{ID: "mug", Name: "Кружка", PriceMinor: 1500, Stock: 10},
		domain.Product{ID: "poster", Name: "Постер", PriceMinor: 400, Stock: 3},
	)
}

func (s *StorefrontLifecycleTestSuite) productStock(productID string) int32 {
	var stock int32
	err := s.store.WithinTx(context.Background(), func(tx domain.Tx) error {
		product, err := tx.Products().Get(context.Background(), productID)
		if err != nil {
			return err
		}
		stock = product.Stock
		return nil
	})
	require.NoError(s.T(), err)
	return stock
}

func (s *StorefrontLifecycleTestSuite) TestFullOrderLifecycle() {
	ctx := context.Background()

	view, err := s.synchronizer.SaveCart(ctx, "buyer", []cart.LineInput{
		{ProductID: "mug", Qty: 2},
		{ProductID: "poster", Qty: 5}, // урежется до остатка 3
	})
	require.NoError(s.T(), err)
	require.Len(s.T(), view.Lines, 2)
	require.Equal(s.T(), int32(3), view.Lines[1].Qty)

	created, err := s.orchestrator.Checkout(ctx, "buyer", checkout.Request{
		AddressID:       "addr",
		PaymentMethodID: "pm",
		ShippingMinor:   500,
	})
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusPending, created.Status)
	require.Equal(s.T(), int64(2*1500+3*400+500), created.TotalMinor)
	require.Equal(s.T(), int32(8), s.productStock("mug"))
	require.Equal(s.T(), int32(0), s.productStock("poster"))

	_, err = s.lifecycle.ConfirmPayment(ctx, created.ID)
	require.NoError(s.T(), err)
	_, err = s.lifecycle.MarkAsShipped(ctx, created.ID, "TRACK-42")
	require.NoError(s.T(), err)
	delivered, err := s.lifecycle.MarkAsDelivered(ctx, created.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusDelivered, delivered.Status)
	require.Equal(s.T(), "TRACK-42", delivered.TrackingCode)

	events, err := s.lifecycle.Timeline(created.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 4)
	require.Equal(s.T(), "order.created", events[0].Type)
	require.Equal(s.T(), "order.delivered", events[3].Type)

	// Outbox worker выгребает все накопленные события.
	publisher := &capturingPublisher{}
	workerLogger := log.New()
	workerLogger.SetLevel(log.WarnLevel)
	worker := outbox.NewWorker(s.outboxRepo, publisher, outbox.WithLogger(log.NewEntry(workerLogger)))
	worker.ProcessOnce(ctx)

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	require.Len(s.T(), publisher.published, 4)

	stats, err := s.outboxRepo.Stats()
	require.NoError(s.T(), err)
	require.Zero(s.T(), stats.PendingCount)
}

func (s *StorefrontLifecycleTestSuite) TestCancelRestoresStock() {
	ctx := context.Background()

	_, err := s.synchronizer.SaveCart(ctx, "buyer", []cart.LineInput{{ProductID: "mug", Qty: 4}})
	require.NoError(s.T(), err)

	created, err := s.orchestrator.Checkout(ctx, "buyer", checkout.Request{AddressID: "addr", PaymentMethodID: "pm"})
	require.NoError(s.T(), err)
	require.Equal(s.T(), int32(6), s.productStock("mug"))

	canceled, err := s.lifecycle.Cancel(ctx, created.ID, "передумал")
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusCanceled, canceled.Status)
	require.Equal(s.T(), int32(10), s.productStock("mug"))

	// Отмена финальна: оплатить отменённый заказ нельзя.
	_, err = s.lifecycle.ConfirmPayment(ctx, created.ID)
	require.ErrorIs(s.T(), err, domain.ErrInvalidTransition)
}

func (s *StorefrontLifecycleTestSuite) TestRepeatPurchaseAfterCheckout() {
	ctx := context.Background()

	_, err := s.synchronizer.SaveCart(ctx, "buyer", []cart.LineInput{{ProductID: "mug", Qty: 1}})
	require.NoError(s.T(), err)
	_, err = s.orchestrator.Checkout(ctx, "buyer", checkout.Request{AddressID: "addr", PaymentMethodID: "pm"})
	require.NoError(s.T(), err)

	// Корзина потреблена; повторный checkout без новой корзины невозможен.
	_, err = s.orchestrator.Checkout(ctx, "buyer", checkout.Request{AddressID: "addr", PaymentMethodID: "pm"})
	require.ErrorIs(s.T(), err, domain.ErrCartEmpty)

	// Новая корзина открывает новый заказ.
	_, err = s.synchronizer.SaveCart(ctx, "buyer", []cart.LineInput{{ProductID: "poster", Qty: 1}})
	require.NoError(s.T(), err)
	second, err := s.orchestrator.Checkout(ctx, "buyer", checkout.Request{AddressID: "addr", PaymentMethodID: "pm"})
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(400), second.TotalMinor)

	orders, err := s.lifecycle.ListByUser(ctx, "buyer", 0)
	require.NoError(s.T(), err)
	require.Len(s.T(), orders, 2)
}

func TestStorefrontLifecycleSuite(t *testing.T) {
	suite.Run(t, new(StorefrontLifecycleTestSuite))
}
