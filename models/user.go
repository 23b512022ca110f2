package models

import "time"

// User is a marketplace account; farmers are users carrying the "farmer" role.
type User struct {
	UserID       string    `json:"userId" bson:"userid"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         []string  `json:"role" bson:"role"` // "customer", "farmer"
	FarmName     string    `json:"farmName,omitempty" bson:"farmName,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}
