package service

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"airlink/internal/domain"
)

// Genders accepted on the passenger form.
var Genders = []string{"Masculino", "Femenino", "Otro"}

// DisposableEmailDomains are rejected for the contact email.
var DisposableEmailDomains = map[string]bool{
	"mailinator.com":    true,
	"10minutemail.com":  true,
	"guerrillamail.com": true,
	"tempmail.com":      true,
	"temp-mail.org":     true,
	"yopmail.com":       true,
	"trashmail.com":     true,
	"sharklasers.com":   true,
	"getnada.com":       true,
	"dispostable.com":   true,
}

const (
	minNameLength   = 2
	maxNameLength   = 50
	maxDocLength    = 20
	minPassengerAge = 10 * 24 * time.Hour
	maxPassengerAge = 120
)

var (
	nameRe     = regexp.MustCompile(`^\p{L}+(?:[ '\-]\p{L}+)*$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe    = regexp.MustCompile(`^(\+?56)?[2-9][0-9]{7,8}$`)
	dniRe      = regexp.MustCompile(`^[0-9]{7,8}$`)
	passportRe = regexp.MustCompile(`^[A-Z0-9]{6,12}$`)
	rutRe      = regexp.MustCompile(`^[0-9]{7,8}-?[0-9K]$`)
)

// NormalizePassenger trims fields and canonicalizes email and document.
func NormalizePassenger(p *domain.PassengerProfile) {
	p.Name = strings.Join(strings.Fields(p.Name), " ")
	p.Surname = strings.Join(strings.Fields(p.Surname), " ")
	p.BirthDate = strings.TrimSpace(p.BirthDate)
	p.Gender = strings.TrimSpace(p.Gender)
	p.DocumentType = strings.TrimSpace(p.DocumentType)
	p.DocumentNumber = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(p.DocumentNumber), ".", ""))
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Phone = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(p.Phone))
}

// ValidatePassenger checks every field and returns the failures per field.
func ValidatePassenger(p *domain.PassengerProfile, today time.Time) ValidationErrors {
	errs := ValidationErrors{}

	validateName(errs, "name", p.Name)
	validateName(errs, "surname", p.Surname)
	validateBirthDate(errs, p.BirthDate, today)

	if !contains(Genders, p.Gender) {
		errs.Add("gender", "must be one of Masculino, Femenino, Otro")
	}

	validateDocument(errs, p.DocumentType, p.DocumentNumber)

	switch {
	case p.Email == "":
		errs.Add("email", "is required")
	case !emailRe.MatchString(p.Email):
		errs.Add("email", "is not a valid email address")
	case DisposableEmailDomains[p.Email[strings.LastIndex(p.Email, "@")+1:]]:
		errs.Add("email", "disposable email addresses are not accepted")
	}

	switch {
	case p.Phone == "":
		errs.Add("phone", "is required")
	case !phoneRe.MatchString(p.Phone):
		errs.Add("phone", "is not a valid Chilean phone number")
	}

	return errs
}

func validateName(errs ValidationErrors, field, value string) {
	if value == "" {
		errs.Add(field, "is required")
		return
	}
	if n := utf8.RuneCountInString(value); n < minNameLength || n > maxNameLength {
		errs.Add(field, "must be between 2 and 50 characters")
	}
	if !nameRe.MatchString(value) {
		errs.Add(field, "must contain only letters")
	}
}

func validateBirthDate(errs ValidationErrors, value string, today time.Time) {
	if value == "" {
		errs.Add("birth_date", "is required")
		return
	}
	birth, err := time.ParseInLocation("2006-01-02", value, today.Location())
	if err != nil {
		errs.Add("birth_date", "must be a date formatted YYYY-MM-DD")
		return
	}

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	switch {
	case !birth.Before(day):
		errs.Add("birth_date", "must be in the past")
	case day.Sub(birth) < minPassengerAge:
		errs.Add("birth_date", "passenger must be at least 10 days old")
	case birth.AddDate(maxPassengerAge, 0, 0).Before(day):
		errs.Add("birth_date", "is not a valid age")
	}
}

func validateDocument(errs ValidationErrors, docType, number string) {
	switch docType {
	case domain.DocumentRUT, domain.DocumentDNI, domain.DocumentPassport:
	default:
		errs.Add("document_type", "must be one of RUT, DNI, Pasaporte")
		return
	}

	if number == "" {
		errs.Add("document_number", "is required")
		return
	}
	if len(number) > maxDocLength {
		errs.Add("document_number", "must be at most 20 characters")
		return
	}

	switch docType {
	case domain.DocumentRUT:
		if !ValidRUT(number) {
			errs.Add("document_number", "is not a valid RUT")
		}
	case domain.DocumentDNI:
		if !dniRe.MatchString(number) {
			errs.Add("document_number", "DNI must have 7 or 8 digits")
		}
	case domain.DocumentPassport:
		if !passportRe.MatchString(number) {
			errs.Add("document_number", "passport must have 6 to 12 letters or digits")
		}
	}
}

// ValidRUT checks a Chilean RUT and its modulo-11 check digit.
// Dots are ignored and the hyphen is optional.
func ValidRUT(rut string) bool {
	rut = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(rut), ".", ""))
	if !rutRe.MatchString(rut) {
		return false
	}
	rut = strings.ReplaceAll(rut, "-", "")
	body, dv := rut[:len(rut)-1], rut[len(rut)-1]

	sum, factor := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}

	var expected byte
	switch r := 11 - sum%11; r {
	case 11:
		expected = '0'
	case 10:
		expected = 'K'
	default:
		expected = byte('0' + r)
	}
	return dv == expected
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// PassengerService stores the lead passenger of a checkout.
type PassengerService struct {
	sessions *SessionService
	guards   *GuardService
	now      func() time.Time
}

// NewPassengerService creates a new PassengerService.
func NewPassengerService(sessions *SessionService, guards *GuardService) *PassengerService {
	return &PassengerService{sessions: sessions, guards: guards, now: time.Now}
}

// Save validates and stores the passenger profile.
func (s *PassengerService) Save(ctx context.Context, sessionID string, profile domain.PassengerProfile) (*domain.PassengerProfile, error) {
	session, err := s.sessions.LoadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.guards.Require(ctx, session, domain.StagePassenger); err != nil {
		return nil, err
	}

	NormalizePassenger(&profile)
	if errs := ValidatePassenger(&profile, s.now()); !errs.Empty() {
		return nil, errs
	}

	if err := s.sessions.SavePassenger(ctx, session, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
