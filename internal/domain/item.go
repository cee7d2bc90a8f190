package domain

import "time"

// Item — товар аптечной витрины клиники.
type Item struct {
	ID          string
	Name        string
	Description string
	// PriceMinor — цена за единицу в минимальных денежных единицах (например, центы).
	PriceMinor int64
	// StockQty — текущий остаток. Инвариант: никогда не отрицателен.
	StockQty int32
	Category string
	ImageURL string
	// Active — товар виден покупателям. Деактивация заменяет физическое
	// удаление для товаров с историей заказов (soft delete).
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemPatch описывает изменяемые staff-ом поля товара.
type ItemPatch struct {
	Name        string
	Description string
	PriceMinor  int64
	StockQty    int32
	Category    string
	ImageURL    string
}

// ValidateInvariants проверяет базовые инварианты товара и возвращает список замечаний.
func (i *Item) ValidateInvariants() []error {
	var errs []error

	if i.Name == "" {
		errs = append(errs, ErrItemNameRequired)
	}
	if i.PriceMinor < 0 {
		errs = append(errs, ErrPriceNegative)
	}
	if i.StockQty < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}

// Validate проверяет патч перед применением к товару.
func (p *ItemPatch) Validate() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrItemNameRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrPriceNegative)
	}
	if p.StockQty < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}
