package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
)

type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Travel is the catalog entry a booking reserves seats against. The
// reservation engine treats it as read-only: TotalSeats never changes after
// creation, availability is always derived from booking rows.
type Travel struct {
	ID           uuid.UUID
	Slug         string
	Name         string
	Description  string
	StartingDate time.Time
	EndingDate   time.Time
	PriceCents   int64
	Moods        map[string]int
	TotalSeats   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Booking rows are never deleted; cancelled and expired bookings stay behind
// as the audit trail for payments.
type Booking struct {
	ID               uuid.UUID
	TravelID         uuid.UUID
	Email            string
	Seats            int
	TotalAmountCents int64
	Status           BookingStatus
	ExpiresAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Payment is write-once, created together with the CONFIRMED transition.
type Payment struct {
	ID            uuid.UUID
	BookingID     uuid.UUID
	AmountCents   int64
	Status        PaymentStatus
	TransactionID string
	ErrorCode     *string
	CardLast4     string
	CreatedAt     time.Time
}
