package models

import "time"

// Product is a farmer's listing. Quantity is the authoritative stock counter;
// IsAvailable must go false whenever Quantity reaches zero.
type Product struct {
	ProductID   string    `json:"productId" bson:"productid"`
	FarmerID    string    `json:"farmerId" bson:"farmerid"`
	FarmName    string    `json:"farmName,omitempty" bson:"farmName,omitempty"`
	Name        string    `json:"name" bson:"name"`
	Category    string    `json:"category,omitempty" bson:"category,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Price       float64   `json:"price" bson:"price"` // unit price, INR
	Quantity    int       `json:"quantity" bson:"quantity"`
	Unit        string    `json:"unit" bson:"unit"` // e.g. "kg", "dozen", "bunch"
	IsAvailable bool      `json:"isAvailable" bson:"isAvailable"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}
