package models

import "time"

// CartLine is a snapshot taken at add-to-cart time; it is not re-synced with
// the product until checkout re-validates it.
type CartLine struct {
	ProductID string  `json:"productId" bson:"productid"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"` // unit price snapshot
	Quantity  int     `json:"quantity" bson:"quantity"`
	Unit      string  `json:"unit,omitempty" bson:"unit,omitempty"`
	FarmerID  string  `json:"farmerId,omitempty" bson:"farmerid,omitempty"`
}

// Cart holds all lines for one user; one cart document per user.
type Cart struct {
	UserID    string     `json:"userId" bson:"userId"`
	Items     []CartLine `json:"items" bson:"items"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Total sums price × quantity across lines.
func (c *Cart) Total() float64 {
	var total float64
	for _, line := range c.Items {
		total += line.Price * float64(line.Quantity)
	}
	return total
}
