package memory

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

func buildOrder(userID string, lines ...domain.OrderLine) domain.Order {
	var total int64
	for i := range lines {
		lines[i].OrderID = "order-" + userID
		total += int64(lines[i].Qty) * lines[i].PriceMinor
	}
	return domain.Order{
		ID:           uuid.NewString(),
		UserID:       userID,
		Status:       domain.OrderStatusCompleted,
		TotalMinor:   total,
		CustomerName: "J. Doe",
		PaymentToken: "tok-4242",
		Lines:        lines,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestCheckoutCommitOrderHappyPath(t *testing.T) {
	store := NewStore()
	seedItem(t, store, "item-1", "Bandage", "supplies", 10)
	cartRepo := NewCartRepository(store)
	mustUpsert(t, cartRepo, domain.CartLine{ID: "line-1", UserID: "user-1", ItemID: "item-1", Qty: 3, AddedAt: time.Now().UTC()})

	order := buildOrder("user-1", domain.OrderLine{ID: "ol-1", ItemID: "item-1", Qty: 3, PriceMinor: 1500})
	result, err := NewCheckoutRepository(store).CommitOrder(order)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if result.StockLevels["item-1"] != 7 {
		t.Fatalf("expected stock 7, got %d", result.StockLevels["item-1"])
	}

	entries, err := cartRepo.ListByUser("user-1")
	if err != nil {
		t.Fatalf("list cart: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("cart must be cleared after checkout, got %d lines", len(entries))
	}

	saved, err := NewOrderRepository(store).Get(order.ID, "user-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if saved.Lines[0].ItemName != "Bandage" {
		t.Fatalf("expected item name in order line, got %q", saved.Lines[0].ItemName)
	}
}

func TestCheckoutCommitOrderLeavesNoTraceOnShortage(t *testing.T) {
	store := NewStore()
	seedItem(t, store, "item-1", "Bandage", "supplies", 10)
	seedItem(t, store, "item-2", "Syringe", "supplies", 1)
	cartRepo := NewCartRepository(store)
	mustUpsert(t, cartRepo, domain.CartLine{ID: "line-1", UserID: "user-1", ItemID: "item-1", Qty: 2, AddedAt: time.Now().UTC()})

	order := buildOrder("user-1",
		domain.OrderLine{ID: "ol-1", ItemID: "item-1", Qty: 2, PriceMinor: 1500},
		domain.OrderLine{ID: "ol-2", ItemID: "item-2", Qty: 5, PriceMinor: 1500},
	)

	_, err := NewCheckoutRepository(store).CommitOrder(order)
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %T", err)
	}
	if stockErr.Shortages[0].Available != 1 {
		t.Fatalf("expected available 1, got %d", stockErr.Shortages[0].Available)
	}

	item, err := NewItemRepository(store).Get("item-1")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.StockQty != 10 {
		t.Fatalf("stock must be untouched after failed checkout, got %d", item.StockQty)
	}

	entries, err := cartRepo.ListByUser("user-1")
	if err != nil {
		t.Fatalf("list cart: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("cart must survive a failed checkout")
	}
}

func TestCheckoutCommitOrderWritesOutboxAtomically(t *testing.T) {
	store := NewStore()
	seedItem(t, store, "item-1", "Bandage", "supplies", 10)
	repo := NewCheckoutRepository(store)
	outboxRepo := NewOutboxRepository(store)

	order := buildOrder("user-1", domain.OrderLine{ID: "ol-1", ItemID: "item-1", Qty: 3, PriceMinor: 1500})
	event := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     "shop.order.completed",
		Payload:       []byte(`{"orderId":"` + order.ID + `"}`),
	}
	if _, err := repo.CommitOrder(order, event); err != nil {
		t.Fatalf("commit: %v", err)
	}

	pending, err := outboxRepo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending event, got %d", len(pending))
	}
	if pending[0].AggregateID != order.ID || pending[0].EventType != "shop.order.completed" {
		t.Fatalf("unexpected event: %+v", pending[0])
	}

	// Неудавшееся оформление событий не оставляет.
	short := buildOrder("user-2", domain.OrderLine{ID: "ol-2", ItemID: "item-1", Qty: 50, PriceMinor: 1500})
	shortEvent := domain.OutboxMessage{AggregateType: "order", AggregateID: short.ID, EventType: "shop.order.completed"}
	if _, err := repo.CommitOrder(short, shortEvent); !domain.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	pending, err = outboxRepo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending after shortage: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("failed checkout must not enqueue events, got %d", len(pending))
	}
}

func TestCheckoutCommitOrderRejectsInactiveItem(t *testing.T) {
	store := NewStore()
	seedItem(t, store, "item-1", "Bandage", "supplies", 10)
	if _, err := NewItemRepository(store).SetActive("item-1", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	order := buildOrder("user-1", domain.OrderLine{ID: "ol-1", ItemID: "item-1", Qty: 1, PriceMinor: 1500})
	if _, err := NewCheckoutRepository(store).CommitOrder(order); !errors.Is(err, domain.ErrItemInactive) {
		t.Fatalf("expected ErrItemInactive, got %v", err)
	}
}

func TestCheckoutConcurrentCommitsDoNotOversell(t *testing.T) {
	store := NewStore()
	seedItem(t, store, "item-1", "Bandage", "supplies", 10)
	repo := NewCheckoutRepository(store)

	const buyers = 20

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order := buildOrder(fmt.Sprintf("user-%d", i), domain.OrderLine{
				ID:         uuid.NewString(),
				ItemID:     "item-1",
				Qty:        1,
				PriceMinor: 1500,
			})
			if _, err := repo.CommitOrder(order); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("expected exactly 10 successful checkouts, got %d", succeeded)
	}

	item, err := NewItemRepository(store).Get("item-1")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.StockQty != 0 {
		t.Fatalf("expected stock 0, got %d", item.StockQty)
	}
}

func TestInventoryLedgerApplyDelta(t *testing.T) {
	store := NewStore()
	seedItem(t, store, "item-1", "Bandage", "supplies", 4)
	ledger := NewInventoryLedger(store)

	newStock, err := ledger.ApplyDelta("item-1", 6)
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if newStock != 10 {
		t.Fatalf("expected 10, got %d", newStock)
	}

	if _, err := ledger.ApplyDelta("item-1", -11); !domain.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if _, err := ledger.ApplyDelta("missing", -1); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}
