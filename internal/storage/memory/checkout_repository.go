package memory

import (
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

type checkoutRepositoryInMemory struct {
	store *Store
}

// NewCheckoutRepository возвращает in-memory реализацию CheckoutRepository.
// Все проверки и изменения выполняются под одной блокировкой хранилища,
// поэтому заказ либо фиксируется целиком, либо не оставляет следов.
func NewCheckoutRepository(store *Store) domain.CheckoutRepository {
	return &checkoutRepositoryInMemory{store: store}
}

func (r *checkoutRepositoryInMemory) CommitOrder(order domain.Order, events ...domain.OutboxMessage) (domain.CheckoutResult, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.orders[order.ID]; exists {
		return domain.CheckoutResult{}, domain.ErrOrderExists
	}

	// Сначала проверяем все позиции и только потом меняем остатки:
	// откатывать частично применённый заказ в памяти нечем.
	for _, line := range order.Lines {
		item, ok := r.store.items[line.ItemID]
		if !ok {
			return domain.CheckoutResult{}, domain.ErrItemNotFound
		}
		if !item.Active {
			return domain.CheckoutResult{}, domain.ErrItemInactive
		}
		if item.StockQty < line.Qty {
			return domain.CheckoutResult{}, domain.NewInsufficientStockError(domain.StockShortage{
				ItemID:    line.ItemID,
				ItemName:  item.Name,
				Requested: line.Qty,
				Available: item.StockQty,
			})
		}
	}

	now := time.Now().UTC()
	stockLevels := make(map[string]int32, len(order.Lines))
	for _, line := range order.Lines {
		item := r.store.items[line.ItemID]
		item.StockQty -= line.Qty
		item.UpdatedAt = now
		r.store.items[line.ItemID] = item
		stockLevels[line.ItemID] = item.StockQty
	}

	r.store.orders[order.ID] = order

	for id, line := range r.store.cartLines {
		if line.UserID == order.UserID {
			delete(r.store.cartLines, id)
		}
	}

	// События заказа ложатся в outbox под той же блокировкой, что и сам
	// заказ: неудавшееся оформление событий не оставляет.
	for _, event := range events {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		r.store.outboxSeq++
		r.store.outbox[event.ID] = &outboxRecord{
			msg:       event,
			status:    "pending",
			seq:       r.store.outboxSeq,
			createdAt: now,
		}
	}

	return domain.CheckoutResult{Order: order, StockLevels: stockLevels}, nil
}

var _ domain.CheckoutRepository = (*checkoutRepositoryInMemory)(nil)
