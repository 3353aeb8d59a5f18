package postgres

import (
	"context"
	"time"

	"github.com/alpe89/booking-poc/internal/booking"
	"github.com/alpe89/booking-poc/internal/domain"
	"github.com/alpe89/booking-poc/internal/travel"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const serializationFailureCode = "40001"

// Repository implements the reservation engine's Store and the catalog's
// Store against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the row mapping
// below is shared between transactional and plain reads.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// WithinTx runs fn in a serializable transaction. Serialization aborts
// surface as domain.ErrSerializationFailure so callers can report a retryable
// conflict.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx booking.StoreTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"); err != nil {
		return err
	}

	if err := fn(&storeTx{tx: tx}); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}
	return nil
}

const travelColumns = `id, slug, name, description, starting_date, ending_date, price_cents, moods, total_seats, created_at, updated_at`

func scanTravel(row pgx.Row) (*domain.Travel, error) {
	var t domain.Travel
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Description, &t.StartingDate, &t.EndingDate,
		&t.PriceCents, &t.Moods, &t.TotalSeats, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const bookingColumns = `id, travel_id, email, seats, total_amount_cents, status, expires_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.TravelID, &b.Email, &b.Seats, &b.TotalAmountCents,
		&b.Status, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func getTravel(ctx context.Context, q querier, id uuid.UUID) (*domain.Travel, error) {
	t, err := scanTravel(q.QueryRow(ctx, `SELECT `+travelColumns+` FROM travels WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrNotFound, "no travel found with id '%s'", id)
	}
	return t, err
}

func activeSeats(ctx context.Context, q querier, travelID uuid.UUID, now time.Time) (int, error) {
	var booked int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(seats), 0)
		FROM bookings
		WHERE travel_id = $1
		  AND (status = 'CONFIRMED' OR (status = 'PENDING' AND expires_at > $2))
	`, travelID, now).Scan(&booked)
	return booked, err
}

func (r *Repository) GetTravel(ctx context.Context, id uuid.UUID) (*domain.Travel, error) {
	return getTravel(ctx, r.pool, id)
}

func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrNotFound, "no booking found with id '%s'", id)
	}
	return b, err
}

func (r *Repository) ActiveSeats(ctx context.Context, travelID uuid.UUID, now time.Time) (int, error) {
	return activeSeats(ctx, r.pool, travelID, now)
}

func (r *Repository) ListTravels(ctx context.Context, offset, limit int) ([]domain.Travel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+travelColumns+` FROM travels
		ORDER BY starting_date ASC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	travels := make([]domain.Travel, 0)
	for rows.Next() {
		t, err := scanTravel(rows)
		if err != nil {
			return nil, err
		}
		travels = append(travels, *t)
	}
	return travels, rows.Err()
}

func (r *Repository) CountTravels(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM travels`).Scan(&total)
	return total, err
}

func (r *Repository) GetTravelBySlug(ctx context.Context, slug string) (*domain.Travel, error) {
	t, err := scanTravel(r.pool.QueryRow(ctx, `SELECT `+travelColumns+` FROM travels WHERE slug = $1`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrNotFound, "no travel found with slug '%s'", slug)
	}
	return t, err
}

// InsertTravel seeds catalog rows; the engine itself never writes travels.
func (r *Repository) InsertTravel(ctx context.Context, t *domain.Travel) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO travels (id, slug, name, description, starting_date, ending_date, price_cents, moods, total_seats)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.Slug, t.Name, t.Description, t.StartingDate, t.EndingDate, t.PriceCents, t.Moods, t.TotalSeats)
	return err
}

type storeTx struct {
	tx pgx.Tx
}

func (s *storeTx) TravelForUpdate(ctx context.Context, id uuid.UUID) (*domain.Travel, error) {
	t, err := scanTravel(s.tx.QueryRow(ctx, `SELECT `+travelColumns+` FROM travels WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrNotFound, "no travel found with id '%s'", id)
	}
	return t, err
}

func (s *storeTx) ActiveSeats(ctx context.Context, travelID uuid.UUID, now time.Time) (int, error) {
	return activeSeats(ctx, s.tx, travelID, now)
}

func (s *storeTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO bookings (id, travel_id, email, seats, total_amount_cents, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, b.ID, b.TravelID, b.Email, b.Seats, b.TotalAmountCents, b.Status, b.ExpiresAt, b.CreatedAt, b.UpdatedAt)
	return err
}

func (s *storeTx) ConfirmBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, err := scanBooking(s.tx.QueryRow(ctx, `
		UPDATE bookings SET status = 'CONFIRMED', expires_at = NULL, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+bookingColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(domain.ErrConflict, "booking is no longer pending")
	}
	return b, err
}

func (s *storeTx) CancelBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, err := scanBooking(s.tx.QueryRow(ctx, `
		UPDATE bookings SET status = 'CANCELLED', expires_at = NULL, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+bookingColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(domain.ErrConflict, "booking is no longer pending")
	}
	return b, err
}

func (s *storeTx) MarkExpired(ctx context.Context, id uuid.UUID) error {
	// RowsAffected 0 means another writer got there first; that is fine.
	_, err := s.tx.Exec(ctx, `
		UPDATE bookings SET status = 'EXPIRED', expires_at = NULL, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
	`, id)
	return err
}

func (s *storeTx) InsertPayment(ctx context.Context, p *domain.Payment) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO payments (id, booking_id, amount_cents, status, transaction_id, error_code, card_last4, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.BookingID, p.AmountCents, p.Status, p.TransactionID, p.ErrorCode, p.CardLast4, p.CreatedAt)
	return err
}

func (s *storeTx) InsertEvent(ctx context.Context, evt booking.Event) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, 'booking', $2, $3, $4, 'NEW', $5)
	`, evt.ID, evt.BookingID, evt.Type, evt.Payload, evt.ID.String())
	return err
}

func (s *storeTx) ExpireOverdue(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	rows, err := s.tx.Query(ctx, `
		UPDATE bookings SET status = 'EXPIRED', expires_at = NULL, updated_at = now()
		WHERE status = 'PENDING' AND expires_at <= $1
		RETURNING `+bookingColumns, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *b)
	}
	return expired, rows.Err()
}

var _ booking.Store = (*Repository)(nil)
var _ booking.StoreTx = (*storeTx)(nil)
var _ travel.Store = (*Repository)(nil)
