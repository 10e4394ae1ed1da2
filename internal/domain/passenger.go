package domain

// Document types accepted for passengers.
const (
	DocumentRUT      = "RUT"
	DocumentDNI      = "DNI"
	DocumentPassport = "Pasaporte"
)

// PassengerProfile is the lead passenger's identity and contact data.
type PassengerProfile struct {
	Name           string `json:"name"`
	Surname        string `json:"surname"`
	BirthDate      string `json:"birth_date"`
	Gender         string `json:"gender"`
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
}
