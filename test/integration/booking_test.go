package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alpe89/booking-poc/internal/adapters/postgres"
	redisadapter "github.com/alpe89/booking-poc/internal/adapters/redis"
	"github.com/alpe89/booking-poc/internal/booking"
	"github.com/alpe89/booking-poc/internal/domain"
	httphandler "github.com/alpe89/booking-poc/internal/http"
	"github.com/alpe89/booking-poc/internal/idempotency"
	"github.com/alpe89/booking-poc/internal/observability"
	"github.com/alpe89/booking-poc/internal/payment"
	"github.com/alpe89/booking-poc/internal/rateLimit"
	"github.com/alpe89/booking-poc/internal/travel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schema = `
	CREATE TABLE IF NOT EXISTS travels (
		id UUID PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		starting_date TIMESTAMPTZ NOT NULL,
		ending_date TIMESTAMPTZ NOT NULL,
		price_cents BIGINT NOT NULL,
		moods JSONB NOT NULL DEFAULT '{}',
		total_seats INT NOT NULL CHECK (total_seats >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		travel_id UUID NOT NULL REFERENCES travels (id),
		email TEXT NOT NULL,
		seats INT NOT NULL CHECK (seats > 0),
		total_amount_cents BIGINT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('PENDING', 'CONFIRMED', 'CANCELLED', 'EXPIRED')),
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK ((status = 'PENDING') = (expires_at IS NOT NULL))
	);
	CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		booking_id UUID NOT NULL REFERENCES bookings (id),
		amount_cents BIGINT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('SUCCESS', 'FAILED')),
		transaction_id TEXT NOT NULL,
		error_code TEXT,
		card_last4 TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id UUID NOT NULL,
		event_type TEXT NOT NULL,
		payload_json JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT NOT NULL CHECK (status IN ('NEW', 'PUBLISHED')),
		dedupe_key TEXT NOT NULL
	);
`

func TestIntegration_ReserveConfirmFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "booking",
				"POSTGRES_PASSWORD": "booking",
				"POSTGRES_DB":       "booking",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer pgContainer.Terminate(ctx)

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer redisContainer.Terminate(ctx)

	pgHost, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}
	redisHost, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, "postgres://booking:booking@"+pgHost+":"+pgPort.Port()+"/booking?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}
	repo := postgres.NewRepository(pool)

	redisCli := redisclient.NewClient(&redisclient.Options{Addr: redisHost + ":" + redisPort.Port()})
	defer redisCli.Close()

	logger := observability.NewLogger()
	cache := redisadapter.NewCache(redisCli, 30*time.Second)
	idemp := idempotency.NewStore(redisCli, time.Hour)
	rl := rateLimit.NewRateLimiter(redisCli)

	engine := booking.NewService(repo, payment.NewGatewayWithDelay(0, 0), nil, booking.Config{
		HoldDuration:       15 * time.Minute,
		MaxSeatsPerBooking: 5,
	}, logger)
	catalog := travel.NewService(repo, cache, logger)

	handlers := httphandler.NewHandlers(engine, catalog, idemp, logger)
	srv := httptest.NewServer(httphandler.SetupRouter(handlers, logger, rl))
	defer srv.Close()

	seeded := &domain.Travel{
		ID:           uuid.New(),
		Slug:         "amalfi-coast",
		Name:         "Amalfi coast week",
		StartingDate: time.Now().Add(60 * 24 * time.Hour),
		EndingDate:   time.Now().Add(67 * 24 * time.Hour),
		PriceCents:   119900,
		Moods:        map[string]int{"relax": 9, "culture": 7},
		TotalSeats:   5,
	}
	if err := repo.InsertTravel(ctx, seeded); err != nil {
		t.Fatal(err)
	}

	// Catalog listing and availability before any booking.
	resp, err := http.Get(srv.URL + "/v1/travels/amalfi-coast")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get travel failed: %v, status: %d", err, resp.StatusCode)
	}
	var travelResp struct {
		AvailableSeats int `json:"available_seats"`
	}
	json.NewDecoder(resp.Body).Decode(&travelResp)
	resp.Body.Close()
	if travelResp.AvailableSeats != 5 {
		t.Fatalf("expected 5 seats available, got %d", travelResp.AvailableSeats)
	}

	// Reserve 2 seats with an idempotency key.
	idempKey := uuid.NewString()
	reserveBody, _ := json.Marshal(map[string]interface{}{
		"travel_id": seeded.ID.String(),
		"seats":     2,
		"email":     "alice@example.com",
	})
	req, _ := http.NewRequest("POST", srv.URL+"/v1/bookings", bytes.NewReader(reserveBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempKey)
	resp, err = http.DefaultClient.Do(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("reserve failed: %v, status: %d", err, resp.StatusCode)
	}
	firstBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var reserveResp struct {
		Data struct {
			ID     uuid.UUID `json:"id"`
			Status string    `json:"status"`
		} `json:"data"`
		ExpiresAt string `json:"expires_at"`
	}
	if err := json.Unmarshal(firstBody, &reserveResp); err != nil {
		t.Fatal(err)
	}
	if reserveResp.Data.Status != "PENDING" || reserveResp.ExpiresAt == "" {
		t.Fatalf("expected PENDING hold with expiry, got %+v", reserveResp)
	}

	// Replaying the same idempotency key returns the stored response without
	// taking more seats.
	req, _ = http.NewRequest("POST", srv.URL+"/v1/bookings", bytes.NewReader(reserveBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempKey)
	resp, err = http.DefaultClient.Do(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("replay failed: %v, status: %d", err, resp.StatusCode)
	}
	replayBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.Equal(firstBody, replayBody) {
		t.Error("expected the replay to return the stored response")
	}

	available, err := engine.AvailableSeats(ctx, seeded.ID)
	if err != nil {
		t.Fatal(err)
	}
	if available != 3 {
		t.Fatalf("expected 3 seats after one 2-seat hold, got %d", available)
	}

	// Oversell attempt beyond the remaining seats.
	overBody, _ := json.Marshal(map[string]interface{}{
		"travel_id": seeded.ID.String(),
		"seats":     4,
		"email":     "bob@example.com",
	})
	resp, err = http.Post(srv.URL+"/v1/bookings", "application/json", bytes.NewReader(overBody))
	if err != nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for oversell, got: %v, status: %d", err, resp.StatusCode)
	}
	var conflictResp struct {
		AvailableSeats int `json:"available_seats"`
	}
	json.NewDecoder(resp.Body).Decode(&conflictResp)
	resp.Body.Close()
	if conflictResp.AvailableSeats != 3 {
		t.Errorf("expected the conflict to report 3 available seats, got %d", conflictResp.AvailableSeats)
	}

	// Confirm the hold with the fake payment method.
	confirmBody, _ := json.Marshal(map[string]interface{}{"payment_method": "fake"})
	resp, err = http.Post(srv.URL+"/v1/bookings/"+reserveResp.Data.ID.String()+"/confirm", "application/json", bytes.NewReader(confirmBody))
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("confirm failed: %v, status: %d", err, resp.StatusCode)
	}
	var confirmResp struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
		Payment struct {
			TransactionID string `json:"transaction_id"`
			Status        string `json:"status"`
		} `json:"payment"`
	}
	json.NewDecoder(resp.Body).Decode(&confirmResp)
	resp.Body.Close()
	if confirmResp.Data.Status != "CONFIRMED" || confirmResp.Payment.Status != "completed" {
		t.Fatalf("expected CONFIRMED with completed payment, got %+v", confirmResp)
	}
	if confirmResp.Payment.TransactionID == "" {
		t.Error("expected a transaction id")
	}

	// The booking endpoint reflects the settled state.
	resp, err = http.Get(srv.URL + "/v1/bookings/" + reserveResp.Data.ID.String())
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get booking failed: %v, status: %d", err, resp.StatusCode)
	}
	var getResp struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
		RemainingTime *int64 `json:"remaining_time"`
	}
	json.NewDecoder(resp.Body).Decode(&getResp)
	resp.Body.Close()
	if getResp.Data.Status != "CONFIRMED" {
		t.Errorf("expected CONFIRMED, got %s", getResp.Data.Status)
	}
	if getResp.RemainingTime != nil {
		t.Errorf("expected no countdown on a settled booking, got %d", *getResp.RemainingTime)
	}

	// Confirmed seats stay taken.
	available, err = engine.AvailableSeats(ctx, seeded.ID)
	if err != nil {
		t.Fatal(err)
	}
	if available != 3 {
		t.Errorf("expected 3 seats after confirmation, got %d", available)
	}
}
