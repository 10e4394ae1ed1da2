package service

import (
	"fmt"
	"strings"
	"time"

	"airlink/internal/domain"
)

// ReceiptService builds receipts for reservations.
type ReceiptService struct {
	now func() time.Time
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService() *ReceiptService {
	return &ReceiptService{now: time.Now}
}

// GenerateReceipt summarizes a reservation and its payment.
func (s *ReceiptService) GenerateReceipt(res *domain.Reservation) *domain.Receipt {
	receipt := &domain.Receipt{
		ReservationCode: res.Code,
		CustomerEmail:   res.Passenger.Email,
		Lines:           res.Lines,
		Discount:        res.Discount,
		Total:           res.Total,
		Currency:        res.Currency,
		PaymentStatus:   domain.PaymentStatusPending,
		CreatedAt:       s.now(),
	}

	for _, line := range res.Lines {
		if line.Kind != domain.LineDiscount {
			receipt.Subtotal += line.Amount
		}
	}

	if res.Payment != nil {
		receipt.Processor = res.Payment.Processor
		receipt.PaymentStatus = res.Payment.Status
		if res.Payment.Status == domain.PaymentStatusConfirmed {
			receipt.PaidAt = res.Payment.UpdatedAt
		}
	}

	return receipt
}

// FormatReceipt formats the receipt as plain text (for email/print).
func (s *ReceiptService) FormatReceipt(receipt *domain.Receipt) string {
	var b strings.Builder

	b.WriteString("=====================================\n")
	b.WriteString("        AIRLINK RECEIPT\n")
	b.WriteString("=====================================\n")
	fmt.Fprintf(&b, "Reservation: %s\n", receipt.ReservationCode)
	fmt.Fprintf(&b, "Customer:    %s\n", receipt.CustomerEmail)
	fmt.Fprintf(&b, "Date:        %s\n\n", receipt.CreatedAt.Format("Jan 02, 2006 3:04 PM"))

	b.WriteString("ITEMS\n")
	b.WriteString("-------------------------------------\n")
	for _, line := range receipt.Lines {
		fmt.Fprintf(&b, "%-26s %10s\n", truncate(line.Description, 26), formatMoney(line.Amount))
	}
	b.WriteString("-------------------------------------\n")
	fmt.Fprintf(&b, "%-26s %10s\n", "SUBTOTAL", formatMoney(receipt.Subtotal))
	if receipt.Discount > 0 {
		fmt.Fprintf(&b, "%-26s %10s\n", "DISCOUNT", formatMoney(-receipt.Discount))
	}
	fmt.Fprintf(&b, "%-26s %10s %s\n\n", "TOTAL", formatMoney(receipt.Total), receipt.Currency)

	b.WriteString("PAYMENT\n")
	b.WriteString("-------------------------------------\n")
	fmt.Fprintf(&b, "Method: %s\n", receipt.Processor)
	fmt.Fprintf(&b, "Status: %s\n", receipt.PaymentStatus)
	b.WriteString("=====================================\n")
	b.WriteString("     Thank you for flying with us!\n")
	b.WriteString("=====================================\n")

	return b.String()
}

// formatMoney renders CLP with dot thousands separators, e.g. 58.000.
func formatMoney(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var out []byte
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, digits[i])
	}
	return sign + "$" + string(out)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
