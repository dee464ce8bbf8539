package model

import "time"

// Order is the shop order snapshot the offset service works from.
type Order struct {
	OrderID         string      `json:"order_id"`
	Paid            bool        `json:"paid"`
	OffsetPurchased bool        `json:"offset_purchased"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"created_at"`
}

// OrderItem is a line item; Position keeps the order the shop stored them in.
type OrderItem struct {
	Position  int    `json:"position"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// FindProduct returns the first item carrying productID.
func (o *Order) FindProduct(productID string) (OrderItem, bool) {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return OrderItem{}, false
}
