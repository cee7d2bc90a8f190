package domain

import "time"

// LowStockNotification — уведомление персоналу о падении остатка товара
// до порога или ниже. Создаётся нотификатором после списания, изменяется
// только флагом прочтения.
type LowStockNotification struct {
	ID     string
	ItemID string
	// ItemName заполняется при чтении из каталога.
	ItemName string
	// StockLevel — остаток на момент срабатывания.
	StockLevel int32
	Read       bool
	CreatedAt  time.Time
}
