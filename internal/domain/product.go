package domain

// Product — позиция каталога. Каталогом владеет внешняя подсистема;
// ядро читает цену и управляет остатком только через StockLedger.
type Product struct {
	ID         string
	Name       string
	PriceMinor int64
	// Stock — авторитетный счётчик доступного количества, всегда >= 0.
	Stock int32
}
