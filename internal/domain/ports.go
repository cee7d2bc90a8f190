package domain

import (
	"context"
	"time"
)

// Identity — личность вызывающего, поставляемая внешним провайдером
// аутентификации. Ядро доверяет ей как есть и ролевую политику сверх
// "management-операции требуют staff" не навязывает.
type Identity struct {
	UserID string
	Role   string
}

// IsStaff сообщает, относится ли роль к персоналу клиники.
func (id Identity) IsStaff() bool {
	return id.Role == RoleReceptionist || id.Role == RoleAdmin
}

const (
	RoleReceptionist = "Receptionist"
	RoleAdmin        = "Admin"
)

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// StockCache — опциональный горячий кэш остатков для advisory-проверок
// корзины и витрины. Авторитетным источником остаётся InventoryLedger.
type StockCache interface {
	// GetStock возвращает закэшированный остаток; ok=false при промахе.
	GetStock(ctx context.Context, itemID string) (qty int32, ok bool, err error)
	// SetStock записывает остаток после изменения через ledger.
	SetStock(ctx context.Context, itemID string, qty int32) error
	// Forget сбрасывает счётчик товара (при удалении/деактивации).
	Forget(ctx context.Context, itemID string) error
}

// StockObserver получает уведомления об изменении остатка товара.
// Вызывается после фиксации изменения; ошибка наблюдателя не должна
// влиять на исход самой операции.
type StockObserver interface {
	StockChanged(itemID, itemName string, level int32)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
