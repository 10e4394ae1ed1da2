package domain

import "time"

// BusLeg is a ground connection from an airport's city terminal.
type BusLeg struct {
	ID          string    `json:"id"`
	Operator    string    `json:"operator"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartureAt time.Time `json:"departure_at"`
	ArrivalAt   time.Time `json:"arrival_at"`
	Price       int64     `json:"price"`
	SeatsLeft   int       `json:"seats_left"`
	WaitLabel   string    `json:"wait_label,omitempty"`
}
