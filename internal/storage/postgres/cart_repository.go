package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

const cartEntryColumns = `
	c.id, c.user_id, c.item_id, c.qty, c.added_at,
	i.id, i.name, i.description, i.price_minor, i.stock_qty, i.category, i.image_url, i.active, i.created_at, i.updated_at
`

func (r *cartRepository) ListByUser(userID string) ([]domain.CartEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+cartEntryColumns+`
		FROM cart_lines c
		JOIN shop_items i ON c.item_id = i.id
		WHERE c.user_id = $1
		ORDER BY c.added_at DESC, c.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.CartEntry, 0)
	for rows.Next() {
		entry, err := scanCartEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart rows: %w", err)
	}

	return entries, nil
}

func (r *cartRepository) GetLine(userID, lineID string) (domain.CartEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	entry, err := scanCartEntry(r.db.QueryRowContext(ctx, `
		SELECT `+cartEntryColumns+`
		FROM cart_lines c
		JOIN shop_items i ON c.item_id = i.id
		WHERE c.id = $1 AND c.user_id = $2
	`, lineID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CartEntry{}, domain.ErrCartLineNotFound
		}
		return domain.CartEntry{}, fmt.Errorf("select cart line: %w", err)
	}

	return entry, nil
}

func (r *cartRepository) FindByItem(userID, itemID string) (domain.CartLine, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var line domain.CartLine
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, item_id, qty, added_at
		FROM cart_lines
		WHERE user_id = $1 AND item_id = $2
	`, userID, itemID).Scan(&line.ID, &line.UserID, &line.ItemID, &line.Qty, &line.AddedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CartLine{}, domain.ErrCartLineNotFound
		}
		return domain.CartLine{}, fmt.Errorf("find cart line by item: %w", err)
	}

	return line, nil
}

func (r *cartRepository) Upsert(line domain.CartLine) (domain.CartLine, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// Уникальный индекс по (user_id, item_id) гарантирует одну строку на пару.
	// Повторное добавление прибавляет количество прямо в UPDATE, поэтому
	// конкурентные добавления не перетирают друг друга; id строки сохраняется.
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO cart_lines (id, user_id, item_id, qty, added_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (user_id, item_id)
		DO UPDATE SET qty = cart_lines.qty + EXCLUDED.qty
		RETURNING id, qty, added_at
	`,
		line.ID, line.UserID, line.ItemID, line.Qty, line.AddedAt,
	).Scan(&line.ID, &line.Qty, &line.AddedAt)
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("upsert cart line: %w", err)
	}

	return line, nil
}

func (r *cartRepository) SetQty(userID, lineID string, qty int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_lines
		SET qty = $1
		WHERE id = $2 AND user_id = $3
	`, qty, lineID, userID)
	if err != nil {
		return fmt.Errorf("update cart line qty: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartLineNotFound
	}

	return nil
}

func (r *cartRepository) Remove(userID, lineID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_lines
		WHERE id = $1 AND user_id = $2
	`, lineID, userID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartLineNotFound
	}

	return nil
}

func (r *cartRepository) Clear(userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	return nil
}

func scanCartEntry(row rowScanner) (domain.CartEntry, error) {
	var entry domain.CartEntry
	err := row.Scan(
		&entry.Line.ID, &entry.Line.UserID, &entry.Line.ItemID, &entry.Line.Qty, &entry.Line.AddedAt,
		&entry.Item.ID, &entry.Item.Name, &entry.Item.Description, &entry.Item.PriceMinor, &entry.Item.StockQty,
		&entry.Item.Category, &entry.Item.ImageURL, &entry.Item.Active, &entry.Item.CreatedAt, &entry.Item.UpdatedAt,
	)
	return entry, err
}

var _ domain.CartRepository = (*cartRepository)(nil)
