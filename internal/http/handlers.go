package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/alpe89/booking-poc/internal/booking"
	"github.com/alpe89/booking-poc/internal/domain"
	"github.com/alpe89/booking-poc/internal/idempotency"
	"github.com/alpe89/booking-poc/internal/observability"
	"github.com/alpe89/booking-poc/internal/travel"
	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// BookingEngine is the slice of the reservation engine the REST layer calls.
type BookingEngine interface {
	Reserve(ctx context.Context, in booking.ReserveInput) (*domain.Booking, error)
	Confirm(ctx context.Context, id uuid.UUID, paymentMethod string) (*booking.ConfirmResult, error)
	Cancel(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	FindByID(ctx context.Context, id uuid.UUID) (*booking.Details, error)
}

type TravelCatalog interface {
	List(ctx context.Context, page, limit int) (*travel.Page, error)
	GetBySlug(ctx context.Context, slug string) (*travel.Details, error)
}

type Handlers struct {
	engine  BookingEngine
	catalog TravelCatalog
	idemp   *idempotency.Store
	logger  observability.Logger
}

func NewHandlers(engine BookingEngine, catalog TravelCatalog, idemp *idempotency.Store, logger observability.Logger) *Handlers {
	return &Handlers{engine: engine, catalog: catalog, idemp: idemp, logger: logger}
}

type bookingPayload struct {
	ID          uuid.UUID  `json:"id"`
	TravelID    uuid.UUID  `json:"travel_id"`
	Email       string     `json:"email"`
	Seats       int        `json:"seats"`
	AmountCents int64      `json:"total_amount_cents"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toBookingPayload(b *domain.Booking) bookingPayload {
	return bookingPayload{
		ID:          b.ID,
		TravelID:    b.TravelID,
		Email:       b.Email,
		Seats:       b.Seats,
		AmountCents: b.TotalAmountCents,
		Status:      string(b.Status),
		ExpiresAt:   b.ExpiresAt,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

type travelPayload struct {
	ID           uuid.UUID      `json:"id"`
	Slug         string         `json:"slug"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	StartingDate time.Time      `json:"starting_date"`
	EndingDate   time.Time      `json:"ending_date"`
	PriceCents   int64          `json:"price_cents"`
	Moods        map[string]int `json:"moods"`
	TotalSeats   int            `json:"total_seats"`
}

func toTravelPayload(t *domain.Travel) travelPayload {
	return travelPayload{
		ID:           t.ID,
		Slug:         t.Slug,
		Name:         t.Name,
		Description:  t.Description,
		StartingDate: t.StartingDate,
		EndingDate:   t.EndingDate,
		PriceCents:   t.PriceCents,
		Moods:        t.Moods,
		TotalSeats:   t.TotalSeats,
	}
}

func (h *Handlers) ReserveBooking(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if replayed := h.replayIdempotent(w, r, key); replayed {
		return
	}

	var req struct {
		TravelID uuid.UUID `json:"travel_id"`
		Seats    int       `json:"seats"`
		Email    string    `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFault(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	b, err := h.engine.Reserve(r.Context(), booking.ReserveInput{
		TravelID: req.TravelID,
		Seats:    req.Seats,
		Email:    req.Email,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"data":       toBookingPayload(b),
		"expires_at": b.ExpiresAt.Format(time.RFC3339),
	}
	h.writeJSON(w, http.StatusCreated, resp, key)
}

func (h *Handlers) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	key := r.Header.Get("Idempotency-Key")
	if replayed := h.replayIdempotent(w, r, key); replayed {
		return
	}

	var req struct {
		PaymentMethod string `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFault(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.engine.Confirm(r.Context(), id, req.PaymentMethod)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"data": toBookingPayload(result.Booking),
		"payment": map[string]interface{}{
			"transaction_id": result.Receipt.TransactionID,
			"status":         result.Receipt.Status,
		},
	}
	h.writeJSON(w, http.StatusCreated, resp, key)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	b, err := h.engine.Cancel(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"data":    toBookingPayload(b),
		"message": "booking cancelled successfully",
	}
	h.writeJSON(w, http.StatusOK, resp, "")
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	details, err := h.engine.FindByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"data":           toBookingPayload(details.Booking),
		"remaining_time": details.RemainingSeconds,
	}
	h.writeJSON(w, http.StatusOK, resp, "")
}

func (h *Handlers) ListTravels(w http.ResponseWriter, r *http.Request) {
	page, ok := parseQueryInt(w, r, "page", 1)
	if !ok {
		return
	}
	limit, ok := parseQueryInt(w, r, "limit", travel.DefaultPageLimit)
	if !ok {
		return
	}

	p, err := h.catalog.List(r.Context(), page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	travels := make([]travelPayload, 0, len(p.Travels))
	for i := range p.Travels {
		travels = append(travels, toTravelPayload(&p.Travels[i]))
	}
	resp := map[string]interface{}{
		"data":  travels,
		"total": p.Total,
		"page":  p.Page,
		"limit": p.Limit,
	}
	h.writeJSON(w, http.StatusOK, resp, "")
}

func (h *Handlers) GetTravelBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	details, err := h.catalog.GetBySlug(r.Context(), slug)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"data":            toTravelPayload(details.Travel),
		"available_seats": details.AvailableSeats,
	}
	h.writeJSON(w, http.StatusOK, resp, "")
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFault(w, http.StatusBadRequest, "invalid booking id", err.Error())
		return uuid.UUID{}, false
	}
	return id, true
}

func parseQueryInt(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeFault(w, http.StatusBadRequest, "invalid "+name+" parameter", err.Error())
		return 0, false
	}
	return n, true
}

func (h *Handlers) replayIdempotent(w http.ResponseWriter, r *http.Request, key string) bool {
	if h.idemp == nil || key == "" {
		return false
	}
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		h.logger.Warn("idempotency lookup failed", err)
		return false
	}
	if existing == nil {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(existing.Status)
	w.Write(existing.Body)
	return true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body interface{}, idempKey string) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)

	if h.idemp != nil && idempKey != "" {
		if err := h.idemp.Set(context.WithoutCancel(context.Background()), idempKey, idempotency.Response{Status: status, Body: data}); err != nil {
			h.logger.Warn("idempotency store failed", err)
		}
	}
}

// writeError maps the engine's fault kinds onto HTTP statuses: NotFound 404,
// Conflict 409, invalid input 400, serialization aborts 409 (retryable).
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	var seatsErr *domain.InsufficientSeatsError
	switch {
	case errors.As(err, &seatsErr):
		writeJSONRaw(w, http.StatusConflict, map[string]interface{}{
			"error":           "Not enough seats available",
			"message":         seatsErr.Error(),
			"available_seats": seatsErr.Available,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeFault(w, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, domain.ErrSerializationFailure):
		writeFault(w, http.StatusConflict, "conflict", "concurrent update, try again")
	case errors.Is(err, domain.ErrConflict):
		writeFault(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeFault(w, http.StatusBadRequest, "bad request", err.Error())
	default:
		h.logger.Error("request failed", err)
		writeFault(w, http.StatusInternalServerError, "internal error", "unexpected error")
	}
}

func writeFault(w http.ResponseWriter, status int, kind, message string) {
	writeJSONRaw(w, status, map[string]interface{}{
		"error":   kind,
		"message": message,
	})
}

func writeJSONRaw(w http.ResponseWriter, status int, body interface{}) {
	data, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
