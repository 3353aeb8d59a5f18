package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mongoadapter "github.com/alpe89/booking-poc/internal/adapters/mongo"
	"github.com/alpe89/booking-poc/internal/adapters/postgres"
	"github.com/alpe89/booking-poc/internal/booking"
	"github.com/alpe89/booking-poc/internal/config"
	"github.com/alpe89/booking-poc/internal/observability"
	"github.com/alpe89/booking-poc/internal/payment"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()
	observability.InitMetrics()

	pool, err := pgxpool.New(context.Background(), cfg.PGDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)

	var audit booking.AuditLogger
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		audit = mongoadapter.NewAuditLogger(mongoClient.Database("booking"), logger)
	}

	engine := booking.NewService(repo, payment.NewGateway(), audit, booking.Config{
		HoldDuration:       cfg.HoldDuration,
		MaxSeatsPerBooking: cfg.MaxSeatsPerBooking,
	}, logger)

	worker := NewSweepWorker(engine, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, cfg.SweepInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down expiry worker")
}

// SweepWorker periodically moves overdue PENDING holds to EXPIRED. The sweep
// is a reporting backstop: correctness does not depend on it running, only
// stored statuses do.
type SweepWorker struct {
	engine *booking.Service
	logger observability.Logger
}

func NewSweepWorker(engine *booking.Service, logger observability.Logger) *SweepWorker {
	return &SweepWorker{engine: engine, logger: logger}
}

func (w *SweepWorker) Run(ctx context.Context, interval time.Duration) {
	w.logger.WithField("interval", interval.String()).Info("expiry worker started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SweepWorker) sweep(ctx context.Context) {
	count, err := w.engine.ExpireOverdue(ctx)
	if err != nil {
		w.logger.Error("expiry sweep failed", err)
		return
	}
	if count > 0 {
		w.logger.WithField("count", count).Info("marked expired bookings")
	}
}
