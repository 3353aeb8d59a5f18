package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alpe89/booking-poc/internal/domain"
	"github.com/alpe89/booking-poc/internal/payment"
	"github.com/google/uuid"
)

// Store is the transactional port the reservation engine drives. WithinTx runs
// fn inside a single database transaction; an error from fn rolls the whole
// transaction back, leaving seat state untouched.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx StoreTx) error) error
	GetTravel(ctx context.Context, id uuid.UUID) (*domain.Travel, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	ActiveSeats(ctx context.Context, travelID uuid.UUID, now time.Time) (int, error)
}

// StoreTx is the slice of the store visible inside a transaction.
type StoreTx interface {
	// TravelForUpdate takes the exclusive row lock that serializes
	// reservations for one travel. Reservations on other travels do not
	// block.
	TravelForUpdate(ctx context.Context, id uuid.UUID) (*domain.Travel, error)
	// ActiveSeats sums seats over CONFIRMED bookings and PENDING bookings
	// whose expiry is strictly after now, observing the lock holder's state.
	ActiveSeats(ctx context.Context, travelID uuid.UUID, now time.Time) (int, error)
	InsertBooking(ctx context.Context, b *domain.Booking) error
	// ConfirmBooking transitions PENDING to CONFIRMED and clears the expiry;
	// it fails with a Conflict if the booking is no longer PENDING.
	ConfirmBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	// CancelBooking transitions PENDING to CANCELLED; Conflict otherwise.
	CancelBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	// MarkExpired transitions PENDING to EXPIRED. A no-op when another
	// writer already moved the booking on.
	MarkExpired(ctx context.Context, id uuid.UUID) error
	InsertPayment(ctx context.Context, p *domain.Payment) error
	InsertEvent(ctx context.Context, evt Event) error
	// ExpireOverdue bulk-moves every overdue PENDING booking to EXPIRED and
	// returns the bookings it touched.
	ExpireOverdue(ctx context.Context, now time.Time) ([]domain.Booking, error)
}

// PaymentGateway settles a charge after an opaque async delay. No inputs in
// this scope: the payment method is validated upstream to the single
// supported literal.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context) (payment.Result, error)
}

// AuditLogger records booking lifecycle transitions, best effort, after
// commit.
type AuditLogger interface {
	LogBooking(ctx context.Context, action string, b *domain.Booking) error
}

const (
	EventBookingReserved  = "booking.reserved"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingExpired   = "booking.expired"
)

// Event is a lifecycle record written to the outbox in the same transaction
// as the booking mutation it describes.
type Event struct {
	ID        uuid.UUID
	Type      string
	BookingID uuid.UUID
	Payload   []byte
}

func NewEvent(eventType string, b *domain.Booking) Event {
	payload, _ := json.Marshal(map[string]interface{}{
		"booking_id": b.ID,
		"travel_id":  b.TravelID,
		"status":     b.Status,
		"seats":      b.Seats,
	})
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		BookingID: b.ID,
		Payload:   payload,
	}
}
