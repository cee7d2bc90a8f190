package memory

import (
	"sort"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

type cartRepositoryInMemory struct {
	store *Store
}

// NewCartRepository возвращает in-memory реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepositoryInMemory{store: store}
}

func (r *cartRepositoryInMemory) ListByUser(userID string) ([]domain.CartEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.CartEntry, 0)
	for _, line := range r.store.cartLines {
		if line.UserID != userID {
			continue
		}
		item, ok := r.store.items[line.ItemID]
		if !ok {
			continue
		}
		result = append(result, domain.CartEntry{Line: line, Item: item})
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Line.AddedAt.Equal(result[j].Line.AddedAt) {
			return result[i].Line.AddedAt.After(result[j].Line.AddedAt)
		}
		return result[i].Line.ID > result[j].Line.ID
	})

	return result, nil
}

func (r *cartRepositoryInMemory) GetLine(userID, lineID string) (domain.CartEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	line, ok := r.store.cartLines[lineID]
	if !ok || line.UserID != userID {
		return domain.CartEntry{}, domain.ErrCartLineNotFound
	}
	item, ok := r.store.items[line.ItemID]
	if !ok {
		return domain.CartEntry{}, domain.ErrCartLineNotFound
	}

	return domain.CartEntry{Line: line, Item: item}, nil
}

func (r *cartRepositoryInMemory) FindByItem(userID, itemID string) (domain.CartLine, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, line := range r.store.cartLines {
		if line.UserID == userID && line.ItemID == itemID {
			return line, nil
		}
	}

	return domain.CartLine{}, domain.ErrCartLineNotFound
}

func (r *cartRepositoryInMemory) Upsert(line domain.CartLine) (domain.CartLine, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	// Повторное добавление того же товара прибавляет количество к
	// существующей строке под общей блокировкой, поэтому конкурентные
	// добавления не теряются. Исходная строка и момент её появления
	// в корзине сохраняются.
	for id, existing := range r.store.cartLines {
		if existing.UserID == line.UserID && existing.ItemID == line.ItemID {
			existing.Qty += line.Qty
			r.store.cartLines[id] = existing
			return existing, nil
		}
	}

	r.store.cartLines[line.ID] = line
	return line, nil
}

func (r *cartRepositoryInMemory) SetQty(userID, lineID string, qty int32) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	line, ok := r.store.cartLines[lineID]
	if !ok || line.UserID != userID {
		return domain.ErrCartLineNotFound
	}

	line.Qty = qty
	r.store.cartLines[lineID] = line
	return nil
}

func (r *cartRepositoryInMemory) Remove(userID, lineID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	line, ok := r.store.cartLines[lineID]
	if !ok || line.UserID != userID {
		return domain.ErrCartLineNotFound
	}

	delete(r.store.cartLines, lineID)
	return nil
}

func (r *cartRepositoryInMemory) Clear(userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, line := range r.store.cartLines {
		if line.UserID == userID {
			delete(r.store.cartLines, id)
		}
	}

	return nil
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
