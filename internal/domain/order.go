package domain

import (
	"time"
)

const EventOrderConfirmed = "order.confirmed"

type OrderItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

func (i OrderItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

type Order struct {
	ID        int64
	UserID    int64
	Items     []OrderItem
	Total     int64
	CreatedAt time.Time
}

// OrderSnapshot captures the cart at confirmation time with live prices.
func OrderSnapshot(userID int64, rows []CartRow) *Order {
	order := &Order{
		UserID: userID,
		Items:  make([]OrderItem, 0, len(rows)),
	}
	for _, r := range rows {
		order.Items = append(order.Items, OrderItem{
			ProductID: r.ProductID,
			Name:      r.Name,
			Variant:   r.Variant,
			Quantity:  r.Quantity,
			UnitPrice: r.Price,
		})
		order.Total += r.Subtotal()
	}
	return order
}

// OutboxEvent is an order event waiting to be published.
type OutboxEvent struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type Stats struct {
	Users       int
	Orders      int
	Revenue     int64
	TopProducts []ProductTally
}

type ProductTally struct {
	Name     string
	Quantity int
}
