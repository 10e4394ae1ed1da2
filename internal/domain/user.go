package domain

import "time"

// User is the customer account a reservation is booked under.
// Accounts are found or created by email at checkout.
type User struct {
	ID        string
	Name      string
	Surname   string
	Email     string
	Phone     string
	CreatedAt time.Time
}
