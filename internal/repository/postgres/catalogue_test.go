package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airlink/internal/domain"
	"airlink/internal/repository"
)

func TestTripRepository_SearchBoundsTheDay(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	day := time.Date(2025, 11, 18, 15, 30, 0, 0, time.UTC)
	dep := time.Date(2025, 11, 18, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM trips").
		WithArgs("SCL", "LIM",
			time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC),
			"").
		WillReturnRows(sqlmock.NewRows([]string{"id", "flight_code", "carrier", "origin", "destination", "cabin_class", "departure_at", "arrival_at"}).
			AddRow("trip-1", "LA100", "AirLink", "SCL", "LIM", "economy", dep, dep.Add(3*time.Hour)))

	repo := NewTripRepository(db)
	trips, err := repo.Search(context.Background(), repository.TripSearch{Origin: "SCL", Destination: "LIM", Date: day})

	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "LA100", trips[0].FlightCode)
	assert.Equal(t, 3*time.Hour, trips[0].Duration())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripRepository_GetFareNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM fares WHERE trip_id = \\$1 AND id = \\$2").
		WithArgs("trip-1", "fare-x").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewTripRepository(db)
	_, err = repo.GetFare(context.Background(), "trip-1", "fare-x")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSeatRepository_BookedSeats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM reservation_seats").
		WithArgs("trip-1").
		WillReturnRows(sqlmock.NewRows([]string{"seat_code"}).AddRow("1A").AddRow("12C"))

	repo := NewSeatRepository(db)
	booked, err := repo.BookedSeats(context.Background(), "trip-1")

	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"1A": true, "12C": true}, booked)
}

func TestCouponRepository_GetByCodeUppercases(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("FROM coupons WHERE code = \\$1").
		WithArgs("VERANO10").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "description", "type", "value", "max_uses", "uses", "starts_at", "ends_at", "active"}).
			AddRow("coupon-1", "VERANO10", nil, "porcentaje", 10, 100, 3, now.Add(-time.Hour), now.Add(time.Hour), true))

	repo := NewCouponRepository(db)
	coupon, err := repo.GetByCode(context.Background(), " verano10 ")

	require.NoError(t, err)
	assert.Equal(t, domain.CouponTypePercentage, coupon.Type)
	assert.Equal(t, int64(10), coupon.Value)
	assert.Empty(t, coupon.Description)
}
