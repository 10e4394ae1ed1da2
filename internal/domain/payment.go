package domain

import "time"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Processor identifies an external payment gateway.
type Processor string

const (
	ProcessorStripe      Processor = "stripe"
	ProcessorMercadoPago Processor = "mercadopago"
	ProcessorPayPal      Processor = "paypal"
	ProcessorMock        Processor = "mock"
)

// Valid reports whether p is a known processor.
func (p Processor) Valid() bool {
	switch p {
	case ProcessorStripe, ProcessorMercadoPago, ProcessorPayPal, ProcessorMock:
		return true
	}
	return false
}

// Payment represents a payment attempt for a reservation.
type Payment struct {
	ID            string
	ReservationID string
	Processor     Processor
	ExternalID    string
	Amount        int64
	Currency      string
	Status        PaymentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
