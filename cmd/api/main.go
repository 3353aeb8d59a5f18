package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mongoadapter "github.com/alpe89/booking-poc/internal/adapters/mongo"
	"github.com/alpe89/booking-poc/internal/adapters/postgres"
	redisadapter "github.com/alpe89/booking-poc/internal/adapters/redis"
	"github.com/alpe89/booking-poc/internal/booking"
	"github.com/alpe89/booking-poc/internal/config"
	httphandler "github.com/alpe89/booking-poc/internal/http"
	"github.com/alpe89/booking-poc/internal/idempotency"
	"github.com/alpe89/booking-poc/internal/observability"
	"github.com/alpe89/booking-poc/internal/payment"
	"github.com/alpe89/booking-poc/internal/rateLimit"
	"github.com/alpe89/booking-poc/internal/travel"
	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

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

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	cache := redisadapter.NewCache(redisClient, cfg.CatalogCacheTTL)
	idemp := idempotency.NewStore(redisClient, cfg.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(redisClient)

	engine := booking.NewService(repo, payment.NewGateway(), audit, booking.Config{
		HoldDuration:       cfg.HoldDuration,
		MaxSeatsPerBooking: cfg.MaxSeatsPerBooking,
	}, logger)
	catalog := travel.NewService(repo, cache, logger)

	handlers := httphandler.NewHandlers(engine, catalog, idemp, logger)
	r := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	logger.WithField("addr", cfg.HTTPAddr).Info("api started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	logger.Info("server exiting")
}
