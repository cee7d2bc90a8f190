package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

type inventoryLedger struct {
	db *sql.DB
}

// NewInventoryLedger создаёт PostgreSQL-реализацию InventoryLedger.
// Списание выражено условным UPDATE: проверка «остаток не уйдёт в минус» и
// запись выполняются одним оператором, поэтому два конкурентных списания по
// одному товару не могут оба пройти, если их сумма превышает остаток.
func NewInventoryLedger(store *Store) domain.InventoryLedger {
	return &inventoryLedger{db: store.DB()}
}

func (l *inventoryLedger) ApplyDelta(itemID string, delta int32) (int32, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var newStock int32
	err := l.db.QueryRowContext(ctx, `
		UPDATE shop_items
		SET stock_qty = stock_qty + $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND stock_qty + $2 >= 0
		RETURNING stock_qty
	`, itemID, delta).Scan(&newStock)
	if err == nil {
		return newStock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("apply stock delta: %w", err)
	}

	// Условие не прошло: различаем отсутствующий товар и нехватку остатка.
	var current int32
	var name string
	probeErr := l.db.QueryRowContext(ctx, `
		SELECT stock_qty, name FROM shop_items WHERE id = $1
	`, itemID).Scan(&current, &name)
	if probeErr != nil {
		if errors.Is(probeErr, sql.ErrNoRows) {
			return 0, domain.ErrItemNotFound
		}
		return 0, fmt.Errorf("probe item stock: %w", probeErr)
	}

	return 0, domain.NewInsufficientStockError(domain.StockShortage{
		ItemID:    itemID,
		ItemName:  name,
		Requested: -delta,
		Available: current,
	})
}

var _ domain.InventoryLedger = (*inventoryLedger)(nil)
