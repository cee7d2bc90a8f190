package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

type notificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создаёт PostgreSQL-реализацию NotificationRepository.
func NewNotificationRepository(store *Store) domain.NotificationRepository {
	return &notificationRepository{db: store.DB()}
}

func (r *notificationRepository) Create(n domain.LowStockNotification) (domain.LowStockNotification, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO low_stock_notifications (
			id, item_id, stock_level, is_read, created_at
		) VALUES ($1,$2,$3,$4,$5)
	`,
		n.ID, n.ItemID, n.StockLevel, n.Read, n.CreatedAt,
	)
	if err != nil {
		return domain.LowStockNotification{}, fmt.Errorf("insert low stock notification: %w", err)
	}

	return n, nil
}

func (r *notificationRepository) ListUnread() ([]domain.LowStockNotification, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT n.id, n.item_id, i.name, n.stock_level, n.is_read, n.created_at
		FROM low_stock_notifications n
		JOIN shop_items i ON n.item_id = i.id
		WHERE NOT n.is_read
		ORDER BY n.created_at DESC, n.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	defer rows.Close()

	result := make([]domain.LowStockNotification, 0)
	for rows.Next() {
		var n domain.LowStockNotification
		if err := rows.Scan(&n.ID, &n.ItemID, &n.ItemName, &n.StockLevel, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification rows: %w", err)
	}

	return result, nil
}

func (r *notificationRepository) MarkRead(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE low_stock_notifications
		SET is_read = TRUE
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotificationNotFound
	}

	return nil
}

func (r *notificationRepository) MarkAllRead() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE low_stock_notifications
		SET is_read = TRUE
		WHERE NOT is_read
	`)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return int(affected), nil
}

func (r *notificationRepository) DeleteReadBefore(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		res sql.Result
		err error
	)

	if limit > 0 {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM low_stock_notifications
			WHERE id IN (
				SELECT id
				FROM low_stock_notifications
				WHERE is_read AND created_at <= $1
				ORDER BY created_at ASC
				LIMIT $2
			)
		`, before, limit)
	} else {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM low_stock_notifications
			WHERE is_read AND created_at <= $1
		`, before)
	}
	if err != nil {
		return 0, fmt.Errorf("delete read notifications: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("notification rows affected: %w", err)
	}

	return int(affected), nil
}

var _ domain.NotificationRepository = (*notificationRepository)(nil)
