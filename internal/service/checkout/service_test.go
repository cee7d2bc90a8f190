package checkout

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
	"github.com/vladislavdragonenkov/clinicshop/internal/storage/memory"
)

type recordingObserver struct {
	mu     sync.Mutex
	levels map[string]int32
}

func (o *recordingObserver) StockChanged(itemID, _ string, level int32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.levels == nil {
		o.levels = make(map[string]int32)
	}
	o.levels[itemID] = level
}

type checkoutFixture struct {
	svc      *Service
	store    *memory.Store
	observer *recordingObserver
}

func newFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	store := memory.NewStore()
	observer := &recordingObserver{}
	svc := NewService(
		memory.NewCartRepository(store),
		memory.NewCheckoutRepository(store),
		memory.NewOrderRepository(store),
		WithOutbox(memory.NewOutboxRepository(store)),
		WithStockObserver(observer),
	)
	return &checkoutFixture{svc: svc, store: store, observer: observer}
}

func (f *checkoutFixture) seedItem(t *testing.T, id string, price int64, stock int32) {
	t.Helper()

	now := time.Now().UTC()
	err := memory.NewItemRepository(f.store).Create(domain.Item{
		ID:         id,
		Name:       "Item " + id,
		PriceMinor: price,
		StockQty:   stock,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	require.NoError(t, err)
}

func (f *checkoutFixture) fillCart(t *testing.T, userID, itemID string, qty int32) {
	t.Helper()

	_, err := memory.NewCartRepository(f.store).Upsert(domain.CartLine{
		ID:      userID + "-" + itemID,
		UserID:  userID,
		ItemID:  itemID,
		Qty:     qty,
		AddedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func validInput() Input {
	return Input{CustomerName: "J. Doe", PaymentToken: "tok-4242"}
}

func TestCheckoutHappyPath(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-1", 1500, 10)
	f.seedItem(t, "item-2", 700, 5)
	f.fillCart(t, "user-1", "item-1", 2)
	f.fillCart(t, "user-1", "item-2", 1)

	order, err := f.svc.Checkout(context.Background(), "user-1", validInput())
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	assert.Equal(t, int64(2*1500+700), order.TotalMinor)
	assert.Len(t, order.Lines, 2)

	// Корзина очищена, остатки списаны.
	entries, err := memory.NewCartRepository(f.store).ListByUser("user-1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	item, err := memory.NewItemRepository(f.store).Get("item-1")
	require.NoError(t, err)
	assert.Equal(t, int32(8), item.StockQty)

	assert.Equal(t, int32(8), f.observer.levels["item-1"])
	assert.Equal(t, int32(4), f.observer.levels["item-2"])

	// Outbox содержит событие завершённого заказа.
	pending, err := memory.NewOutboxRepository(f.store).PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "shop.order.completed", pending[0].EventType)

	var payload struct {
		OrderID    string `json:"orderId"`
		TotalMinor int64  `json:"totalMinor"`
	}
	require.NoError(t, json.Unmarshal(pending[0].Payload, &payload))
	assert.Equal(t, order.ID, payload.OrderID)
	assert.Equal(t, order.TotalMinor, payload.TotalMinor)
}

func TestCheckoutValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), "", validInput())
	assert.ErrorIs(t, err, domain.ErrUserRequired)

	_, err = f.svc.Checkout(context.Background(), "user-1", Input{PaymentToken: "tok"})
	assert.ErrorIs(t, err, domain.ErrCustomerNameRequired)

	_, err = f.svc.Checkout(context.Background(), "user-1", Input{CustomerName: "J. Doe"})
	assert.ErrorIs(t, err, domain.ErrPaymentTokenRequired)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), "user-1", validInput())
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCheckoutCollectsAllShortages(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-1", 1500, 1)
	f.seedItem(t, "item-2", 700, 2)
	f.seedItem(t, "item-3", 300, 50)
	f.fillCart(t, "user-1", "item-1", 5)
	f.fillCart(t, "user-1", "item-2", 5)
	f.fillCart(t, "user-1", "item-3", 5)

	_, err := f.svc.Checkout(context.Background(), "user-1", validInput())
	require.True(t, domain.IsInsufficientStock(err))

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Len(t, stockErr.Shortages, 2, "shortages of all lines must be reported at once")

	// Ничего не списано и корзина цела.
	item, getErr := memory.NewItemRepository(f.store).Get("item-3")
	require.NoError(t, getErr)
	assert.Equal(t, int32(50), item.StockQty)

	entries, listErr := memory.NewCartRepository(f.store).ListByUser("user-1")
	require.NoError(t, listErr)
	assert.Len(t, entries, 3)
}

func TestCheckoutAmountMismatch(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-1", 1500, 10)
	f.fillCart(t, "user-1", "item-1", 2)

	input := validInput()
	input.ExpectedTotalMinor = 2999
	_, err := f.svc.Checkout(context.Background(), "user-1", input)
	assert.ErrorIs(t, err, domain.ErrAmountMismatch)

	input.ExpectedTotalMinor = 3000
	_, err = f.svc.Checkout(context.Background(), "user-1", input)
	assert.NoError(t, err)
}

func TestCheckoutOrderHistory(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-1", 1500, 10)
	f.fillCart(t, "user-1", "item-1", 1)

	order, err := f.svc.Checkout(context.Background(), "user-1", validInput())
	require.NoError(t, err)

	got, err := f.svc.GetOrder("user-1", order.ID)
	require.NoError(t, err)
	assert.Equal(t, "1x Item item-1", got.Summary())

	_, err = f.svc.GetOrder("user-2", order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	orders, err := f.svc.ListOrders("user-1", 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestCheckoutFrozenPrices(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-1", 1500, 10)
	f.fillCart(t, "user-1", "item-1", 1)

	order, err := f.svc.Checkout(context.Background(), "user-1", validInput())
	require.NoError(t, err)

	// Цена меняется после покупки, но в заказе остаётся зафиксированной.
	_, err = memory.NewItemRepository(f.store).Update("item-1", domain.ItemPatch{
		Name:       "Item item-1",
		PriceMinor: 9900,
		StockQty:   9,
	})
	require.NoError(t, err)

	got, err := f.svc.GetOrder("user-1", order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), got.Lines[0].PriceMinor)
	assert.Equal(t, int64(1500), got.TotalMinor)
}
