package booking

import (
	"context"
	"time"

	"github.com/alpe89/booking-poc/internal/domain"
	"github.com/alpe89/booking-poc/internal/observability"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// PaymentMethodFake is the only payment method this deployment accepts.
const PaymentMethodFake = "fake"

// Config holds the engine knobs. Injected at construction, never global.
type Config struct {
	HoldDuration       time.Duration
	MaxSeatsPerBooking int
}

// Service is the seat reservation engine. It owns the invariant that booked
// seats never exceed a travel's capacity under concurrent access.
type Service struct {
	store    Store
	payments PaymentGateway
	audit    AuditLogger
	cfg      Config
	log      observability.Logger
}

func NewService(store Store, payments PaymentGateway, audit AuditLogger, cfg Config, log observability.Logger) *Service {
	return &Service{
		store:    store,
		payments: payments,
		audit:    audit,
		cfg:      cfg,
		log:      log,
	}
}

type ReserveInput struct {
	TravelID uuid.UUID
	Seats    int
	Email    string
}

// Reserve creates a PENDING hold. The seat-count check and the insert happen
// under the travel's row lock inside one transaction, so concurrent
// reservations can never together oversell the travel.
func (s *Service) Reserve(ctx context.Context, in ReserveInput) (*domain.Booking, error) {
	if in.Seats < 1 || in.Seats > s.cfg.MaxSeatsPerBooking {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "seats must be between 1 and %d", s.cfg.MaxSeatsPerBooking)
	}
	if in.Email == "" {
		return nil, errors.Wrap(domain.ErrInvalidInput, "email is required")
	}

	var booking *domain.Booking
	err := s.store.WithinTx(ctx, func(tx StoreTx) error {
		travel, err := tx.TravelForUpdate(ctx, in.TravelID)
		if err != nil {
			return err
		}

		now := time.Now()
		booked, err := tx.ActiveSeats(ctx, in.TravelID, now)
		if err != nil {
			return err
		}

		available := domain.AvailableSeats(travel.TotalSeats, booked)
		if available < in.Seats {
			return &domain.InsufficientSeatsError{Available: available, Requested: in.Seats}
		}

		b := domain.NewBooking(travel, in.Seats, in.Email, s.cfg.HoldDuration, now)
		if err := tx.InsertBooking(ctx, &b); err != nil {
			return err
		}
		if err := tx.InsertEvent(ctx, NewEvent(EventBookingReserved, &b)); err != nil {
			return err
		}
		booking = &b
		return nil
	})
	if err != nil {
		if errors.HasType(err, (*domain.InsufficientSeatsError)(nil)) {
			observability.SeatConflicts.Inc()
			observability.ReservationsTotal.WithLabelValues("conflict").Inc()
		} else {
			observability.ReservationsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	observability.ReservationsTotal.WithLabelValues("reserved").Inc()
	s.auditLog(ctx, EventBookingReserved, booking)
	return booking, nil
}

type Receipt struct {
	TransactionID string
	Status        string
}

type ConfirmResult struct {
	Booking *domain.Booking
	Receipt Receipt
}

// Confirm settles payment for a PENDING hold and flips it to CONFIRMED. The
// payment call happens outside any inventory lock: the hold already owns its
// seats, so settlement does not touch the seat count.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, paymentMethod string) (*ConfirmResult, error) {
	if paymentMethod != PaymentMethodFake {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "unsupported payment method %q", paymentMethod)
	}

	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingStatusPending {
		return nil, errors.Wrapf(domain.ErrConflict, "booking is %s, only PENDING bookings can be confirmed", b.Status)
	}

	if b.Expired(time.Now()) {
		// A request past the deadline must never confirm, sweep or no
		// sweep. The EXPIRED write is persisted even though the call
		// itself fails.
		s.expireLazily(ctx, b)
		return nil, errors.Wrap(domain.ErrConflict, "hold expired")
	}

	start := time.Now()
	res, err := s.payments.ProcessPayment(ctx)
	observability.PaymentDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if !res.Success {
		// The hold stays PENDING and keeps its seats until natural
		// expiry or a retry.
		return nil, errors.Wrapf(domain.ErrInvalidInput, "payment failed: %s", res.ErrorCode)
	}

	pay := &domain.Payment{
		ID:            uuid.New(),
		BookingID:     id,
		AmountCents:   b.TotalAmountCents,
		Status:        domain.PaymentStatusSuccess,
		TransactionID: res.TransactionID,
		CardLast4:     "FAKE",
		CreatedAt:     time.Now(),
	}

	var confirmed *domain.Booking
	err = s.store.WithinTx(ctx, func(tx StoreTx) error {
		cb, err := tx.ConfirmBooking(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.InsertPayment(ctx, pay); err != nil {
			return err
		}
		if err := tx.InsertEvent(ctx, NewEvent(EventBookingConfirmed, cb)); err != nil {
			return err
		}
		confirmed = cb
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditLog(ctx, EventBookingConfirmed, confirmed)
	return &ConfirmResult{
		Booking: confirmed,
		Receipt: Receipt{TransactionID: res.TransactionID, Status: "completed"},
	}, nil
}

func (s *Service) expireLazily(ctx context.Context, b *domain.Booking) {
	err := s.store.WithinTx(ctx, func(tx StoreTx) error {
		if err := tx.MarkExpired(ctx, b.ID); err != nil {
			return err
		}
		expired := *b
		expired.Status = domain.BookingStatusExpired
		expired.ExpiresAt = nil
		return tx.InsertEvent(ctx, NewEvent(EventBookingExpired, &expired))
	})
	if err != nil {
		s.log.WithField("booking_id", b.ID.String()).Error("failed to persist lazy expiry", err)
		return
	}
	s.auditLog(ctx, EventBookingExpired, b)
}

// Cancel releases a hold. Seats free up with no counter to update: the
// availability computation simply stops counting a CANCELLED booking.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingStatusPending {
		return nil, errors.Wrapf(domain.ErrConflict, "only PENDING bookings can be cancelled, this booking is %s", b.Status)
	}

	var cancelled *domain.Booking
	err = s.store.WithinTx(ctx, func(tx StoreTx) error {
		cb, err := tx.CancelBooking(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.InsertEvent(ctx, NewEvent(EventBookingCancelled, cb)); err != nil {
			return err
		}
		cancelled = cb
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditLog(ctx, EventBookingCancelled, cancelled)
	return cancelled, nil
}

type Details struct {
	Booking          *domain.Booking
	RemainingSeconds *int64
}

func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*Details, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Details{Booking: b, RemainingSeconds: b.RemainingSeconds(time.Now())}, nil
}

// AvailableSeats evaluates the availability formula without the inventory
// lock. The snapshot may be slightly stale; Reserve is the sole gate that
// enforces the capacity bound.
func (s *Service) AvailableSeats(ctx context.Context, travelID uuid.UUID) (int, error) {
	travel, err := s.store.GetTravel(ctx, travelID)
	if err != nil {
		return 0, err
	}
	booked, err := s.store.ActiveSeats(ctx, travelID, time.Now())
	if err != nil {
		return 0, err
	}
	return domain.AvailableSeats(travel.TotalSeats, booked), nil
}

// ExpireOverdue is the periodic sweep. It is a backstop keeping stored status
// eventually consistent for reporting; the lazy check in Confirm and the
// time-bounded availability filter are the primary enforcement.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	var expired []domain.Booking
	err := s.store.WithinTx(ctx, func(tx StoreTx) error {
		var err error
		expired, err = tx.ExpireOverdue(ctx, time.Now())
		if err != nil {
			return err
		}
		for i := range expired {
			if err := tx.InsertEvent(ctx, NewEvent(EventBookingExpired, &expired[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	observability.SweepExpired.Add(float64(len(expired)))
	for i := range expired {
		s.auditLog(ctx, EventBookingExpired, &expired[i])
	}
	return len(expired), nil
}

func (s *Service) auditLog(ctx context.Context, action string, b *domain.Booking) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogBooking(ctx, action, b); err != nil {
		s.log.WithField("booking_id", b.ID.String()).Warn("audit log write failed", err)
	}
}
