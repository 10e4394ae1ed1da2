package service

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"airlink/internal/domain"
	"airlink/internal/redis"
	"airlink/internal/repository"
)

const (
	maxPassengers    = 9
	defaultStripDays = 7
	maxStripDays     = 31
	searchDateLayout = "2006-01-02"
)

var airportRe = regexp.MustCompile(`^[A-Z]{3}$`)

// NormalizeSearch upper-cases codes and fills the trip type.
func NormalizeSearch(c *domain.SearchCriteria) {
	c.Origin = strings.ToUpper(strings.TrimSpace(c.Origin))
	c.Destination = strings.ToUpper(strings.TrimSpace(c.Destination))
	c.DepartureDate = strings.TrimSpace(c.DepartureDate)
	c.ReturnDate = strings.TrimSpace(c.ReturnDate)
	c.CabinClass = strings.ToLower(strings.TrimSpace(c.CabinClass))
	c.TripType = domain.TripType(strings.ToUpper(strings.TrimSpace(string(c.TripType))))

	if c.TripType == "" {
		c.TripType = domain.TripTypeOneWay
		if c.ReturnDate != "" {
			c.TripType = domain.TripTypeRoundTrip
		}
	}
	if c.Passengers == 0 {
		c.Passengers = 1
	}
}

// ValidateSearch checks the criteria against today's date.
func ValidateSearch(c *domain.SearchCriteria, today time.Time) ValidationErrors {
	errs := ValidationErrors{}

	if !airportRe.MatchString(c.Origin) {
		errs.Add("origin", "must be a 3-letter airport code")
	}
	if !airportRe.MatchString(c.Destination) {
		errs.Add("destination", "must be a 3-letter airport code")
	}
	if c.Origin != "" && c.Origin == c.Destination {
		errs.Add("destination", "must differ from origin")
	}

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	departure, err := time.Parse(searchDateLayout, c.DepartureDate)
	if err != nil {
		errs.Add("departure_date", "must be a date formatted YYYY-MM-DD")
	} else if departure.Before(day) {
		errs.Add("departure_date", "must not be in the past")
	}

	switch c.TripType {
	case domain.TripTypeOneWay:
		if c.ReturnDate != "" {
			errs.Add("return_date", "must be empty for a one-way trip")
		}
	case domain.TripTypeRoundTrip:
		ret, err := time.Parse(searchDateLayout, c.ReturnDate)
		if err != nil {
			errs.Add("return_date", "is required for a round trip")
		} else if !departure.IsZero() && ret.Before(departure) {
			errs.Add("return_date", "must not be before the departure date")
		}
	default:
		errs.Add("trip_type", "must be OW or RT")
	}

	if c.Passengers < 1 || c.Passengers > maxPassengers {
		errs.Add("passengers", "must be between 1 and 9")
	}

	return errs
}

// TripOption is a searchable trip with its fares.
type TripOption struct {
	Trip  *domain.Trip   `json:"trip"`
	Fares []*domain.Fare `json:"fares"`
}

// SearchService reads the flight catalogue, through the cache when present.
type SearchService struct {
	tripRepo repository.TripRepository
	cache    redis.CacheStoreInterface
}

// NewSearchService creates a new SearchService. cache may be nil.
func NewSearchService(tripRepo repository.TripRepository, cache redis.CacheStoreInterface) *SearchService {
	return &SearchService{tripRepo: tripRepo, cache: cache}
}

// SearchRequest contains the filters of one direction of a search.
type SearchRequest struct {
	Origin      string
	Destination string
	Date        string
	CabinClass  string
}

// Search returns the trips of a day with their sellable fares.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) ([]TripOption, error) {
	origin := strings.ToUpper(strings.TrimSpace(req.Origin))
	destination := strings.ToUpper(strings.TrimSpace(req.Destination))
	if !airportRe.MatchString(origin) || !airportRe.MatchString(destination) || origin == destination {
		return nil, ErrInvalidSearch
	}
	date, err := time.Parse(searchDateLayout, strings.TrimSpace(req.Date))
	if err != nil {
		return nil, ErrInvalidSearch
	}

	key := redis.SearchCacheKey(origin, destination, req.Date, req.CabinClass)
	var cached []TripOption
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	trips, err := s.tripRepo.Search(ctx, repository.TripSearch{
		Origin:      origin,
		Destination: destination,
		Date:        date,
		CabinClass:  strings.ToLower(strings.TrimSpace(req.CabinClass)),
	})
	if err != nil {
		return nil, err
	}

	options := make([]TripOption, 0, len(trips))
	for _, trip := range trips {
		fares, err := s.tripRepo.ListFares(ctx, trip.ID)
		if err != nil {
			return nil, err
		}
		options = append(options, TripOption{Trip: trip, Fares: fares})
	}

	s.cacheSet(ctx, key, options, redis.SearchCacheTTL)
	return options, nil
}

// Fares returns the fares of a trip, cheapest first.
func (s *SearchService) Fares(ctx context.Context, tripID string) ([]*domain.Fare, error) {
	if strings.TrimSpace(tripID) == "" {
		return nil, ErrInvalidSearch
	}

	key := redis.FareCacheKey(tripID)
	var cached []*domain.Fare
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	if _, err := s.tripRepo.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	fares, err := s.tripRepo.ListFares(ctx, tripID)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, fares, redis.FareCacheTTL)
	return fares, nil
}

// Availability returns the cheapest price per day for a strip starting at from.
func (s *SearchService) Availability(ctx context.Context, origin, destination, from string, days int) ([]domain.DayAvailability, error) {
	origin = strings.ToUpper(strings.TrimSpace(origin))
	destination = strings.ToUpper(strings.TrimSpace(destination))
	if !airportRe.MatchString(origin) || !airportRe.MatchString(destination) {
		return nil, ErrInvalidSearch
	}
	start, err := time.Parse(searchDateLayout, strings.TrimSpace(from))
	if err != nil {
		return nil, ErrInvalidSearch
	}
	if days <= 0 {
		days = defaultStripDays
	}
	if days > maxStripDays {
		days = maxStripDays
	}

	prices, err := s.tripRepo.MinPricesByDay(ctx, origin, destination, start, days)
	if err != nil {
		return nil, err
	}

	strip := make([]domain.DayAvailability, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(searchDateLayout)
		price, ok := prices[date]
		strip[i] = domain.DayAvailability{Date: date, MinPrice: price, Available: ok}
	}
	return strip, nil
}

func (s *SearchService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.GetJSON(ctx, key, dst)
	if err != nil {
		log.Printf("search cache read failed key=%s err=%v", key, err)
		return false
	}
	return hit
}

func (s *SearchService) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, value, ttl); err != nil {
		log.Printf("search cache write failed key=%s err=%v", key, err)
	}
}
