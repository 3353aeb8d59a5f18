package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureTravel(priceCents int64, totalSeats int) *Travel {
	return &Travel{
		ID:         uuid.New(),
		Slug:       "norway-fjords",
		Name:       "Norway fjords cruise",
		PriceCents: priceCents,
		TotalSeats: totalSeats,
	}
}

func TestNewBooking(t *testing.T) {
	travel := fixtureTravel(129900, 20)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	b := NewBooking(travel, 4, "alice@example.com", 15*time.Minute, now)

	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, travel.ID, b.TravelID)
	assert.Equal(t, "alice@example.com", b.Email)
	assert.Equal(t, 4, b.Seats)
	assert.Equal(t, int64(519600), b.TotalAmountCents)
	assert.Equal(t, BookingStatusPending, b.Status)
	require.NotNil(t, b.ExpiresAt)
	assert.Equal(t, now.Add(15*time.Minute), *b.ExpiresAt)
	assert.Equal(t, now, b.CreatedAt)
}

func TestBooking_Expired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Minute)

	testCases := []struct {
		name    string
		booking Booking
		want    bool
	}{
		{"pending past deadline", Booking{Status: BookingStatusPending, ExpiresAt: &past}, true},
		{"pending within deadline", Booking{Status: BookingStatusPending, ExpiresAt: &future}, false},
		{"confirmed never expires", Booking{Status: BookingStatusConfirmed}, false},
		{"cancelled never expires", Booking{Status: BookingStatusCancelled}, false},
		{"already expired is stable", Booking{Status: BookingStatusExpired}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.booking.Expired(now))
		})
	}
}

func TestBooking_RemainingSeconds(t *testing.T) {
	now := time.Now()

	t.Run("counts down whole seconds", func(t *testing.T) {
		expires := now.Add(90*time.Second + 500*time.Millisecond)
		b := Booking{Status: BookingStatusPending, ExpiresAt: &expires}

		got := b.RemainingSeconds(now)
		require.NotNil(t, got)
		assert.Equal(t, int64(90), *got)
	})

	t.Run("lapsed hold floors at zero", func(t *testing.T) {
		expires := now.Add(-time.Hour)
		b := Booking{Status: BookingStatusPending, ExpiresAt: &expires}

		got := b.RemainingSeconds(now)
		require.NotNil(t, got)
		assert.Equal(t, int64(0), *got)
	})

	t.Run("nil for settled bookings", func(t *testing.T) {
		for _, status := range []BookingStatus{BookingStatusConfirmed, BookingStatusCancelled, BookingStatusExpired} {
			b := Booking{Status: status}
			assert.Nil(t, b.RemainingSeconds(now), string(status))
		}
	})
}

func TestAvailableSeats(t *testing.T) {
	assert.Equal(t, 5, AvailableSeats(10, 5))
	assert.Equal(t, 0, AvailableSeats(10, 10))
	// Over-booked data in the store must never surface as a negative count.
	assert.Equal(t, 0, AvailableSeats(10, 12))
}
