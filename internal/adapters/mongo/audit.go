package mongo

import (
	"context"
	"time"

	"github.com/alpe89/booking-poc/internal/domain"
	"github.com/alpe89/booking-poc/internal/observability"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditLogger appends booking lifecycle transitions to a mongo collection.
// The trail is write-once reporting data, never read back by the engine.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("booking_audit"),
		logger: logger,
	}
}

type auditDoc struct {
	ID          uuid.UUID  `bson:"_id"`
	Action      string     `bson:"action"`
	BookingID   uuid.UUID  `bson:"booking_id"`
	TravelID    uuid.UUID  `bson:"travel_id"`
	Email       string     `bson:"email"`
	Seats       int        `bson:"seats"`
	AmountCents int64      `bson:"amount_cents"`
	Status      string     `bson:"status"`
	ExpiresAt   *time.Time `bson:"expires_at,omitempty"`
	Timestamp   time.Time  `bson:"timestamp"`
}

func (a *AuditLogger) LogBooking(ctx context.Context, action string, b *domain.Booking) error {
	doc := auditDoc{
		ID:          uuid.New(),
		Action:      action,
		BookingID:   b.ID,
		TravelID:    b.TravelID,
		Email:       b.Email,
		Seats:       b.Seats,
		AmountCents: b.TotalAmountCents,
		Status:      string(b.Status),
		ExpiresAt:   b.ExpiresAt,
		Timestamp:   time.Now(),
	}
	_, err := a.coll.InsertOne(ctx, doc)
	if err != nil {
		a.logger.Error("failed to insert audit record", err)
		return err
	}
	return nil
}
