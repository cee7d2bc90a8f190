package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

type checkoutRepository struct {
	db *sql.DB
}

// NewCheckoutRepository создаёт PostgreSQL-реализацию CheckoutRepository.
// Заказ, позиции, списания остатков, очистка корзины и outbox-события
// фиксируются одной транзакцией: при любой ошибке ни одно изменение
// не сохраняется.
func NewCheckoutRepository(store *Store) domain.CheckoutRepository {
	return &checkoutRepository{db: store.DB()}
}

func (r *checkoutRepository) CommitOrder(order domain.Order, events ...domain.OutboxMessage) (domain.CheckoutResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	stockLevels := make(map[string]int32, len(order.Lines))

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shop_orders (
				id, user_id, status, total_minor, customer_name, payment_token, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			order.ID, order.UserID, string(order.Status), order.TotalMinor,
			order.CustomerName, order.PaymentToken, order.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrOrderExists
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for _, line := range order.Lines {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_lines (
					id, order_id, item_id, qty, price_minor, created_at
				) VALUES ($1,$2,$3,$4,$5,$6)
			`,
				line.ID, order.ID, line.ItemID, line.Qty, line.PriceMinor, line.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}

			// Авторитетное списание: то же условное обновление, что и в ledger,
			// но внутри общей транзакции заказа.
			var newStock int32
			err := tx.QueryRowContext(ctx, `
				UPDATE shop_items
				SET stock_qty = stock_qty - $2,
				    updated_at = NOW()
				WHERE id = $1
				  AND active
				  AND stock_qty >= $2
				RETURNING stock_qty
			`, line.ItemID, line.Qty).Scan(&newStock)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return r.shortageError(ctx, tx, line)
				}
				return fmt.Errorf("decrement stock: %w", err)
			}
			stockLevels[line.ItemID] = newStock
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM cart_lines WHERE user_id = $1
		`, order.UserID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		// Событие заказа пишется в outbox той же транзакцией: между
		// фиксацией заказа и постановкой события потерь не бывает.
		now := time.Now().UTC()
		for _, event := range events {
			if event.ID == "" {
				event.ID = uuid.NewString()
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO outbox_messages (
					id, aggregate_type, aggregate_id, event_type, payload,
					status, attempt_count, created_at, updated_at
				) VALUES ($1,$2,$3,$4,$5,'pending',0,$6,$7)
			`,
				event.ID, event.AggregateType, event.AggregateID, event.EventType, event.Payload, now, now,
			); err != nil {
				return fmt.Errorf("enqueue order event: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return domain.CheckoutResult{}, err
	}

	return domain.CheckoutResult{Order: order, StockLevels: stockLevels}, nil
}

// shortageError формирует InsufficientStockError по несработавшему списанию.
// Выполняется в той же транзакции перед её откатом, чтобы сообщить покупателю
// актуальный остаток.
func (r *checkoutRepository) shortageError(ctx context.Context, tx *sql.Tx, line domain.OrderLine) error {
	var (
		current int32
		name    string
		active  bool
	)
	err := tx.QueryRowContext(ctx, `
		SELECT stock_qty, name, active FROM shop_items WHERE id = $1
	`, line.ItemID).Scan(&current, &name, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrItemNotFound
		}
		return fmt.Errorf("probe item stock: %w", err)
	}
	if !active {
		return domain.ErrItemInactive
	}

	return domain.NewInsufficientStockError(domain.StockShortage{
		ItemID:    line.ItemID,
		ItemName:  name,
		Requested: line.Qty,
		Available: current,
	})
}

var _ domain.CheckoutRepository = (*checkoutRepository)(nil)
