package domain

import "time"

type OrderStatus string

const (
	OrderStatusPendingApproval OrderStatus = "Pendiente de Aprobación"
	OrderStatusReceived        OrderStatus = "Recibido"
	OrderStatusInDevelopment   OrderStatus = "En Desarrollo"
	OrderStatusDispatched      OrderStatus = "Despachado"
	OrderStatusInTransit       OrderStatus = "En Envío"
	OrderStatusDelivered       OrderStatus = "Entregado"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPendingApproval, OrderStatusReceived, OrderStatusInDevelopment,
		OrderStatusDispatched, OrderStatusInTransit, OrderStatusDelivered:
		return true
	}
	return false
}

type CustomerInfo struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Message    string `json:"message,omitempty"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Department string `json:"department"`
	Country    string `json:"country"`
	MapsLink   string `json:"mapsLink,omitempty"`
}

// PaymentProof references an uploaded transfer receipt. Storing the file
// itself is handled elsewhere.
type PaymentProof struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	URL         string `json:"url,omitempty"`
}

func (p *PaymentProof) Present() bool {
	return p != nil && (p.FileName != "" || p.URL != "")
}

type OrderItem struct {
	Equipment       EquipmentItem `json:"equipment"`
	Quantity        int           `json:"quantity"`
	PriceAtPurchase int64         `json:"priceAtPurchase,omitempty"`
	Customization
}

// UnitPrice prefers the price frozen at purchase time and falls back to the
// current catalog price when it was never recorded.
func (i OrderItem) UnitPrice() int64 {
	if i.PriceAtPurchase > 0 {
		return i.PriceAtPurchase
	}
	if i.Equipment.Price < 0 {
		return 0
	}
	return i.Equipment.Price
}

type Order struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	RequestID     string           `json:"requestId"`
	CustomerInfo  CustomerInfo     `json:"customerInfo"`
	Items         []OrderItem      `json:"items"`
	PaymentMethod PaymentMethod    `json:"paymentMethod"`
	Financials    *OrderFinancials `json:"financials,omitempty"`
	PaymentProof  *PaymentProof    `json:"paymentProof,omitempty"`
	Status        OrderStatus      `json:"status"`
	StatusNote    string           `json:"statusNote,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// ShortID is the six-character reference shown to customers.
func (o Order) ShortID() string {
	if len(o.ID) <= 6 {
		return o.ID
	}
	return o.ID[len(o.ID)-6:]
}

// OrderItemsFromCart freezes the current catalog price on every line.
func OrderItemsFromCart(lines CartSnapshot) []OrderItem {
	items := make([]OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, OrderItem{
			Equipment:       line.Equipment,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.Equipment.Price,
			Customization:   line.Customization,
		})
	}
	return items
}
