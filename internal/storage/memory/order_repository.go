package memory

import (
	"sort"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

type orderRepositoryInMemory struct {
	store *Store
}

// NewOrderRepository возвращает in-memory реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{store: store}
}

func (r *orderRepositoryInMemory) Get(id, userID string) (domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	order, ok := r.store.orders[id]
	if !ok || order.UserID != userID {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	return r.withItemNames(order), nil
}

func (r *orderRepositoryInMemory) ListByUser(userID string, limit int) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.store.orders {
		if order.UserID != userID {
			continue
		}
		result = append(result, r.withItemNames(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// withItemNames подставляет актуальные названия товаров в позиции заказа.
func (r *orderRepositoryInMemory) withItemNames(order domain.Order) domain.Order {
	lines := make([]domain.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	for i := range lines {
		if item, ok := r.store.items[lines[i].ItemID]; ok {
			lines[i].ItemName = item.Name
		}
	}
	order.Lines = lines
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
