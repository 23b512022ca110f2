package models

import "time"

// Order statuses. Cash orders start pending; card orders start confirmed.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// OrderItem is a point-in-time snapshot of a purchased line.
type OrderItem struct {
	ProductID   string  `json:"productId" bson:"productid"`
	ProductName string  `json:"productName" bson:"productName"`
	Quantity    int     `json:"quantity" bson:"quantity"`
	Unit        string  `json:"unit,omitempty" bson:"unit,omitempty"`
	Price       float64 `json:"price" bson:"price"`
	Total       float64 `json:"total" bson:"total"`
}

// Order is created exactly once per successful checkout, at confirmation
// time. All items belong to a single farmer.
type Order struct {
	OrderID         string      `json:"orderId" bson:"orderId"`
	CustomerID      string      `json:"customerId" bson:"customerId"`
	FarmerID        string      `json:"farmerId" bson:"farmerId"`
	Items           []OrderItem `json:"items" bson:"items"`
	TotalAmount     float64     `json:"totalAmount" bson:"totalAmount"`
	Status          string      `json:"status" bson:"status"`
	ShippingAddress string      `json:"shippingAddress" bson:"shippingAddress"`
	PaymentMethod   string      `json:"paymentMethod" bson:"paymentMethod"` // "cash" or "card"
	PaymentIntentID string      `json:"paymentIntentId,omitempty" bson:"paymentIntentId,omitempty"`
	CreatedAt       time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt" bson:"updatedAt"`
}
