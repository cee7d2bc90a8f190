package domain

import "time"

// CartLine — одна строка корзины: пара (пользователь, товар) с желаемым количеством.
// На пару приходится не более одной строки; повторное добавление того же
// товара увеличивает количество существующей строки.
type CartLine struct {
	ID     string
	UserID string
	ItemID string
	// Qty — желаемое количество. Инвариант: >= 1; ноль выражается удалением строки.
	Qty     int32
	AddedAt time.Time
}

// CartEntry — строка корзины вместе с текущим состоянием товара.
// Используется для выдачи корзины наружу и для проверок остатка при checkout.
type CartEntry struct {
	Line CartLine
	Item Item
}

// Subtotal возвращает стоимость строки по текущей цене товара.
func (e CartEntry) Subtotal() int64 {
	return int64(e.Line.Qty) * e.Item.PriceMinor
}
