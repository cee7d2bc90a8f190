package kafka

// EventType определяет тип события магазина
type EventType string

const (
	// События заказов
	EventTypeOrderCompleted EventType = "shop.order.completed"

	// События товаров и остатков
	EventTypeStockLow        EventType = "shop.stock.low"
	EventTypeItemDeactivated EventType = "shop.item.deactivated"
)

// Topics для Kafka
const (
	TopicShopEvents      = "clinicshop.shop.events"
	TopicDeadLetterQueue = "clinicshop.dlq" // Dead Letter Queue для failed messages
)
