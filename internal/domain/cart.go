package domain

import "time"

// CartLine — одна позиция корзины. ProductID — слабая ссылка: товар может
// быть удалён из каталога независимо от корзины.
type CartLine struct {
	ProductID string
	Qty       int32
	// PriceMinor — цена за единицу, снятая при последнем сохранении/валидации.
	PriceMinor int64
}

// Cart — рабочий набор покупок пользователя до checkout. На пользователя
// существует не более одной живой корзины; при синхронизации она
// перезаписывается целиком, при checkout — удаляется.
type Cart struct {
	ID        string
	UserID    string
	Lines     []CartLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalMinor возвращает сумму по сохранённым ценам позиций.
func (c *Cart) TotalMinor() int64 {
	var total int64
	for _, line := range c.Lines {
		total += int64(line.Qty) * line.PriceMinor
	}
	return total
}

// Adjustment — пользовательское предупреждение о корректировке позиции
// при сверке корзины с каталогом. Это не ошибка: корзина уже починена.
type Adjustment string

const (
	// AdjustmentPriceUpdated — цена позиции обновлена до актуальной каталожной.
	AdjustmentPriceUpdated Adjustment = "price updated"
	// AdjustmentQtyClamped — количество урезано до доступного остатка.
	AdjustmentQtyClamped Adjustment = "quantity adjusted to stock"
)

// CartLineView — позиция корзины в ответе клиенту вместе с актуальными
// данными товара и корректировкой, если она была.
type CartLineView struct {
	Product       Product
	Qty           int32
	PriceMinor    int64
	SubtotalMinor int64
	Adjustment    Adjustment
}

// CartView — представление корзины после сверки с каталогом.
type CartView struct {
	ID         string
	Lines      []CartLineView
	TotalMinor int64
}
