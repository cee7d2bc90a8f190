package memory

import (
	"sort"
	"time"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

type itemRepositoryInMemory struct {
	store *Store
}

// NewItemRepository возвращает in-memory реализацию ItemRepository.
func NewItemRepository(store *Store) domain.ItemRepository {
	return &itemRepositoryInMemory{store: store}
}

func (r *itemRepositoryInMemory) Create(item domain.Item) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.items[item.ID]; exists {
		return domain.ErrItemExists
	}
	r.store.items[item.ID] = item
	return nil
}

func (r *itemRepositoryInMemory) Get(id string) (domain.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (r *itemRepositoryInMemory) List(includeInactive bool) ([]domain.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Item, 0, len(r.store.items))
	for _, item := range r.store.items {
		if !includeInactive && !item.Active {
			continue
		}
		result = append(result, item)
	}

	// Витрина отсортирована по категории и названию, как и в PostgreSQL.
	sort.Slice(result, func(i, j int) bool {
		if result[i].Category != result[j].Category {
			return result[i].Category < result[j].Category
		}
		return result[i].Name < result[j].Name
	})

	return result, nil
}

func (r *itemRepositoryInMemory) Update(id string, patch domain.ItemPatch) (domain.Item, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}

	item.Name = patch.Name
	item.Description = patch.Description
	item.PriceMinor = patch.PriceMinor
	item.StockQty = patch.StockQty
	item.Category = patch.Category
	item.ImageURL = patch.ImageURL
	item.UpdatedAt = time.Now().UTC()

	r.store.items[id] = item
	return item, nil
}

func (r *itemRepositoryInMemory) SetActive(id string, active bool) (domain.Item, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}

	item.Active = active
	item.UpdatedAt = time.Now().UTC()

	r.store.items[id] = item
	return item, nil
}

func (r *itemRepositoryInMemory) HardDelete(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.items[id]; !ok {
		return domain.ErrItemNotFound
	}

	// Товар с историей заказов удалять нельзя: строки заказов ссылаются на него.
	for _, order := range r.store.orders {
		for _, line := range order.Lines {
			if line.ItemID == id {
				return domain.ErrItemHasOrderHistory
			}
		}
	}

	// Вместе с товаром уходят и ссылающиеся на него строки корзин:
	// висячих строк без товара остаться не должно.
	for lineID, line := range r.store.cartLines {
		if line.ItemID == id {
			delete(r.store.cartLines, lineID)
		}
	}

	delete(r.store.items, id)
	return nil
}

var _ domain.ItemRepository = (*itemRepositoryInMemory)(nil)
