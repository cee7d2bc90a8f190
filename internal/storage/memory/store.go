package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

// Store хранит все данные магазина в памяти под общим мьютексом.
// Общая блокировка нужна, чтобы оформление заказа меняло товары,
// корзину и заказы атомарно, как это делает транзакция в PostgreSQL.
type Store struct {
	mu sync.RWMutex

	items         map[string]domain.Item
	cartLines     map[string]domain.CartLine
	orders        map[string]domain.Order
	notifications map[string]domain.LowStockNotification
	outbox        map[string]*outboxRecord
	outboxSeq     int64
}

type outboxRecord struct {
	msg       domain.OutboxMessage
	status    string
	attempts  int
	seq       int64
	createdAt time.Time
}

// NewStore возвращает пустое in-memory хранилище для локальной разработки и тестов.
func NewStore() *Store {
	return &Store{
		items:         make(map[string]domain.Item),
		cartLines:     make(map[string]domain.CartLine),
		orders:        make(map[string]domain.Order),
		notifications: make(map[string]domain.LowStockNotification),
		outbox:        make(map[string]*outboxRecord),
	}
}
