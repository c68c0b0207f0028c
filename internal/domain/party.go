package domain

// Address — адрес из адресной книги пользователя.
type Address struct {
	ID     string
	UserID string
	Street string
	City   string
	State  string
	Zip    string
}

// PaymentMethod — сохранённый способ оплаты. Платёж моделируется как
// непрозрачная, заранее провалидированная ссылка; интеграции с платёжным
// шлюзом здесь нет.
type PaymentMethod struct {
	ID          string
	UserID      string
	Type        string
	Description string
}

// User — данные клиента, снимаемые в снапшот заказа при checkout.
type User struct {
	ID          string
	DisplayName string
	TaxID       string
	Phone       string
	Email       string
}
