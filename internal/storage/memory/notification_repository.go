package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

type notificationRepositoryInMemory struct {
	store *Store
}

// NewNotificationRepository возвращает in-memory реализацию NotificationRepository.
func NewNotificationRepository(store *Store) domain.NotificationRepository {
	return &notificationRepositoryInMemory{store: store}
}

func (r *notificationRepositoryInMemory) Create(n domain.LowStockNotification) (domain.LowStockNotification, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	r.store.notifications[n.ID] = n
	return n, nil
}

func (r *notificationRepositoryInMemory) ListUnread() ([]domain.LowStockNotification, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.LowStockNotification, 0)
	for _, n := range r.store.notifications {
		if n.Read {
			continue
		}
		if item, ok := r.store.items[n.ItemID]; ok {
			n.ItemName = item.Name
		}
		result = append(result, n)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

func (r *notificationRepositoryInMemory) MarkRead(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	n, ok := r.store.notifications[id]
	if !ok {
		return domain.ErrNotificationNotFound
	}

	n.Read = true
	r.store.notifications[id] = n
	return nil
}

func (r *notificationRepositoryInMemory) MarkAllRead() (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	count := 0
	for id, n := range r.store.notifications {
		if n.Read {
			continue
		}
		n.Read = true
		r.store.notifications[id] = n
		count++
	}

	return count, nil
}

func (r *notificationRepositoryInMemory) DeleteReadBefore(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	candidates := make([]domain.LowStockNotification, 0)
	for _, n := range r.store.notifications {
		if n.Read && !n.CreatedAt.After(before) {
			candidates = append(candidates, n)
		}
	}

	// Удаляем самые старые первыми, как и batch-удаление в PostgreSQL.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	for _, n := range candidates {
		delete(r.store.notifications, n.ID)
	}

	return len(candidates), nil
}

var _ domain.NotificationRepository = (*notificationRepositoryInMemory)(nil)
