package memory

import (
	"time"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

type inventoryLedgerInMemory struct {
	store *Store
}

// NewInventoryLedger возвращает in-memory реализацию InventoryLedger.
func NewInventoryLedger(store *Store) domain.InventoryLedger {
	return &inventoryLedgerInMemory{store: store}
}

func (l *inventoryLedgerInMemory) ApplyDelta(itemID string, delta int32) (int32, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	item, ok := l.store.items[itemID]
	if !ok {
		return 0, domain.ErrItemNotFound
	}

	newStock := item.StockQty + delta
	if newStock < 0 {
		return 0, domain.NewInsufficientStockError(domain.StockShortage{
			ItemID:    itemID,
			ItemName:  item.Name,
			Requested: -delta,
			Available: item.StockQty,
		})
	}

	item.StockQty = newStock
	item.UpdatedAt = time.Now().UTC()
	l.store.items[itemID] = item

	return newStock, nil
}

var _ domain.InventoryLedger = (*inventoryLedgerInMemory)(nil)
