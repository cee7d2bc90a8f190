package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствующего названия товара.
	ErrItemNameRequired = errors.New("item name is required")
	// Ошибка отрицательной цены товара.
	ErrPriceNegative = errors.New("item price must be non-negative")
	// Ошибка отрицательного остатка товара.
	ErrStockNegative = errors.New("item stock must be non-negative")
	// Ошибка некорректного количества в корзине или заказе (< 1).
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")
	// Ошибка отсутствующего имени покупателя при оформлении заказа.
	ErrCustomerNameRequired = errors.New("customer name is required")
	// Ошибка отсутствующего платёжного токена при оформлении заказа.
	ErrPaymentTokenRequired = errors.New("payment token is required")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order total does not match lines sum")
	// ErrItemNotFound возвращается, если товар не найден в каталоге.
	ErrItemNotFound = errors.New("item not found")
	// ErrItemInactive возвращается при попытке положить в корзину снятый с продажи товар.
	ErrItemInactive = errors.New("item is inactive")
	// ErrItemHasOrderHistory — конфликт: товар с историей заказов нельзя удалить физически.
	// Вызывающая сторона должна использовать деактивацию (soft delete).
	ErrItemHasOrderHistory = errors.New("item has order history, deactivate it instead")
	// ErrItemExists сигнализирует о конфликте идентификаторов при создании товара.
	ErrItemExists = errors.New("item already exists")
	// ErrCartLineNotFound возвращается, если строка корзины не найдена у пользователя.
	ErrCartLineNotFound = errors.New("cart line not found")
	// ErrEmptyCart возвращается при оформлении заказа с пустой корзиной.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrOrderNotFound возвращается, если заказ не найден или принадлежит другому пользователю.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists сигнализирует о конфликте идентификаторов при создании заказа.
	ErrOrderExists = errors.New("order already exists")
	// ErrNotificationNotFound возвращается, если уведомление не найдено.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrInsufficientStock — авторитетный отказ: запрошенное количество превышает остаток.
	// Конкретные позиции и доступные остатки несёт InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// StockShortage описывает одну позицию, по которой не хватило остатка.
type StockShortage struct {
	ItemID    string
	ItemName  string
	Requested int32
	Available int32
}

// InsufficientStockError перечисляет все позиции с нехваткой остатка,
// чтобы покупатель мог скорректировать количество по каждой из них.
type InsufficientStockError struct {
	Shortages []StockShortage
}

// Error форматирует нехватку в человекочитаемое сообщение по каждой позиции.
func (e *InsufficientStockError) Error() string {
	if len(e.Shortages) == 0 {
		return ErrInsufficientStock.Error()
	}
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		name := s.ItemName
		if name == "" {
			name = s.ItemID
		}
		parts = append(parts, fmt.Sprintf("insufficient stock for %s: requested %d, only %d available", name, s.Requested, s.Available))
	}
	return strings.Join(parts, "; ")
}

// Is делает ошибку совместимой с errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NewInsufficientStockError создаёт типизированную ошибку нехватки остатка.
func NewInsufficientStockError(shortages ...StockShortage) *InsufficientStockError {
	return &InsufficientStockError{Shortages: shortages}
}

// IsInsufficientStock проверяет, является ли ошибка нехваткой остатка.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}

// IsNotFound проверяет, относится ли ошибка к классу "не найдено".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrCartLineNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrNotificationNotFound)
}

// IsValidation проверяет, относится ли ошибка к классу некорректного ввода.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrUserRequired,
		ErrItemNameRequired,
		ErrPriceNegative,
		ErrStockNegative,
		ErrQuantityInvalid,
		ErrCustomerNameRequired,
		ErrPaymentTokenRequired,
		ErrAmountMismatch,
		ErrItemInactive,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict проверяет, относится ли ошибка к классу конфликтов состояния.
func IsConflict(err error) bool {
	return errors.Is(err, ErrItemHasOrderHistory) ||
		errors.Is(err, ErrItemExists) ||
		errors.Is(err, ErrOrderExists)
}
