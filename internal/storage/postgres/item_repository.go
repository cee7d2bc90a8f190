package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository создаёт PostgreSQL-реализацию ItemRepository.
func NewItemRepository(store *Store) domain.ItemRepository {
	return &itemRepository{db: store.DB()}
}

func (r *itemRepository) Create(item domain.Item) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shop_items (
			id, name, description, price_minor, stock_qty, category, image_url, active, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		item.ID, item.Name, item.Description, item.PriceMinor, item.StockQty,
		item.Category, item.ImageURL, item.Active, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrItemExists
		}
		return fmt.Errorf("insert item: %w", err)
	}

	return nil
}

func (r *itemRepository) Get(id string) (domain.Item, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	item, err := scanItem(r.db.QueryRowContext(ctx, `
		SELECT id, name, description, price_minor, stock_qty, category, image_url, active, created_at, updated_at
		FROM shop_items
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("select item: %w", err)
	}

	return item, nil
}

func (r *itemRepository) List(includeInactive bool) ([]domain.Item, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, name, description, price_minor, stock_qty, category, image_url, active, created_at, updated_at
		FROM shop_items
	`
	if !includeInactive {
		query += " WHERE active"
	}
	// Витрина отсортирована по категории и названию, как и раньше.
	query += " ORDER BY category, name"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item rows: %w", err)
	}

	return items, nil
}

func (r *itemRepository) Update(id string, patch domain.ItemPatch) (domain.Item, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	item, err := scanItem(r.db.QueryRowContext(ctx, `
		UPDATE shop_items
		SET name = $1,
		    description = $2,
		    price_minor = $3,
		    stock_qty = $4,
		    category = $5,
		    image_url = $6,
		    updated_at = $7
		WHERE id = $8
		RETURNING id, name, description, price_minor, stock_qty, category, image_url, active, created_at, updated_at
	`,
		patch.Name, patch.Description, patch.PriceMinor, patch.StockQty,
		patch.Category, patch.ImageURL, time.Now().UTC(), id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("update item: %w", err)
	}

	return item, nil
}

func (r *itemRepository) SetActive(id string, active bool) (domain.Item, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	item, err := scanItem(r.db.QueryRowContext(ctx, `
		UPDATE shop_items
		SET active = $1,
		    updated_at = $2
		WHERE id = $3
		RETURNING id, name, description, price_minor, stock_qty, category, image_url, active, created_at, updated_at
	`, active, time.Now().UTC(), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("set item active: %w", err)
	}

	return item, nil
}

func (r *itemRepository) HardDelete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		// Строки корзин товар не удерживают: они вычищаются той же транзакцией,
		// иначе FK от cart_lines не даст удалить товар без истории заказов.
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM cart_lines WHERE item_id = $1
		`, id); err != nil {
			return fmt.Errorf("clear cart references: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM shop_items
			WHERE id = $1
			  AND NOT EXISTS (
				SELECT 1 FROM order_lines WHERE item_id = $1
			  )
		`, id)
		if err != nil {
			// FK от order_lines сработает, если позиция появится между проверкой и удалением.
			if isForeignKeyViolation(err) {
				return domain.ErrItemHasOrderHistory
			}
			return fmt.Errorf("delete item: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			var found string
			err := tx.QueryRowContext(ctx, `SELECT id FROM shop_items WHERE id = $1`, id).Scan(&found)
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrItemNotFound
			}
			if err != nil {
				return fmt.Errorf("check item exists: %w", err)
			}
			return domain.ErrItemHasOrderHistory
		}

		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var item domain.Item
	err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.PriceMinor, &item.StockQty,
		&item.Category, &item.ImageURL, &item.Active, &item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

var _ domain.ItemRepository = (*itemRepository)(nil)
