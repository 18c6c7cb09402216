package customers

import "time"

// Customer is a phone-keyed identity.
type Customer struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Address       *string   `json:"address"`
	Symptoms      *string   `json:"symptoms"`
	SocialName    *string   `json:"socialName"`
	ContactMethod *string   `json:"contactMethod"`
	OrderCount    int       `json:"orderCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UpsertInput is the customer part of an order or an imported row. Blank
// optional fields leave the stored value untouched.
type UpsertInput struct {
	Name          string
	Phone         string
	Address       string
	Symptoms      string
	SocialName    string
	ContactMethod string
}
