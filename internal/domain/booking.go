package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewBooking builds a PENDING hold against the given travel. The expiry
// instant is the hold lease deadline: the booking keeps its seats only while
// the deadline is in the future.
func NewBooking(travel *Travel, seats int, email string, holdDuration time.Duration, now time.Time) Booking {
	expiresAt := now.Add(holdDuration)
	return Booking{
		ID:               uuid.New(),
		TravelID:         travel.ID,
		Email:            email,
		Seats:            seats,
		TotalAmountCents: travel.PriceCents * int64(seats),
		Status:           BookingStatusPending,
		ExpiresAt:        &expiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Expired reports whether a pending hold has lapsed at the given instant. Only
// PENDING bookings carry an expiry; every other status is stable.
func (b *Booking) Expired(now time.Time) bool {
	return b.Status == BookingStatusPending && b.ExpiresAt != nil && b.ExpiresAt.Before(now)
}

// RemainingSeconds returns the whole seconds left on the hold, floored at
// zero. A hold that lapsed but has not been swept yet reports 0, never a
// negative value. nil for non-PENDING bookings.
func (b *Booking) RemainingSeconds(now time.Time) *int64 {
	if b.Status != BookingStatusPending || b.ExpiresAt == nil {
		return nil
	}
	secs := int64(b.ExpiresAt.Sub(now) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &secs
}

// AvailableSeats clamps capacity minus booked seats at zero.
func AvailableSeats(totalSeats, bookedSeats int) int {
	available := totalSeats - bookedSeats
	if available < 0 {
		return 0
	}
	return available
}
