package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus описывает статус заказа. Оформление заказа создаёт его сразу
// в терминальном статусе: промежуточных состояний (pending/authorized) в
// этой системе нет, платёжный токен принимается как непрозрачный ввод.
type OrderStatus string

const (
	// OrderStatusCompleted — заказ оформлен, остатки списаны.
	OrderStatusCompleted OrderStatus = "Completed"
)

// OrderLine представляет одну позицию заказа. Неизменяема после создания.
type OrderLine struct {
	ID      string
	OrderID string
	ItemID  string
	// ItemName заполняется при чтении из каталога; не хранится в самой позиции.
	ItemName string
	Qty      int32
	// PriceMinor — цена за единицу, зафиксированная в момент покупки.
	// Последующие изменения цены товара на неё не влияют.
	PriceMinor int64
	CreatedAt  time.Time
}

// Order агрегирует оформленный заказ и его позиции. Неизменяем после создания.
type Order struct {
	ID     string
	UserID string
	Status OrderStatus
	// TotalMinor — сумма позиций (qty * price) в минимальных денежных единицах.
	TotalMinor   int64
	CustomerName string
	// PaymentToken — непрозрачный платёжный реквизит; не валидируется сверх наличия.
	PaymentToken string
	Lines        []OrderLine
	CreatedAt    time.Time
}

// Summary возвращает краткое описание состава заказа вида "2x Bandage, 1x Syringe".
func (o *Order) Summary() string {
	parts := make([]string, 0, len(o.Lines))
	for _, line := range o.Lines {
		name := line.ItemName
		if name == "" {
			name = line.ItemID
		}
		parts = append(parts, fmt.Sprintf("%dx %s", line.Qty, name))
	}
	return strings.Join(parts, ", ")
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if o.CustomerName == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if o.PaymentToken == "" {
		errs = append(errs, ErrPaymentTokenRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrEmptyCart)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	var calc int64
	for _, line := range o.Lines {
		if line.Qty <= 0 {
			errs = append(errs, ErrQuantityInvalid)
		}
		if line.PriceMinor < 0 {
			errs = append(errs, ErrPriceNegative)
		}
		calc += int64(line.Qty) * line.PriceMinor
	}
	if calc != o.TotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
