package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"louage/internal/app"
	"louage/internal/config"
	"louage/internal/handler"
	"louage/internal/rabbitmq"
	internalRedis "louage/internal/redis"
	"louage/internal/repository"
	"louage/internal/repository/memory"
	"louage/internal/repository/postgres"
	"louage/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	var db *sql.DB
	if cfg.Storage.Driver == "postgres" {
		db, err = app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()
		log.Println("Connected to PostgreSQL")
	} else {
		log.Println("Using in-memory storage")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Connected to Redis")
	}

	var amqpConn *amqp.Connection
	if cfg.RabbitMQ.Enabled {
		amqpConn, err = app.NewRabbitMQConnection(cfg.RabbitMQ)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer amqpConn.Close()
		log.Println("Connected to RabbitMQ")
	}

	// Wire dependencies.
	server, notifications := wireServer(db, redisClient, amqpConn, nrApp, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	// Let in-flight pushes finish before the broker connections close.
	notifications.Close()

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server together with
// the dispatcher that must be closed on shutdown.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	amqpConn *amqp.Connection,
	nrApp *newrelic.Application,
	cfg *config.Config,
) (*http.Server, *service.NotificationDispatcher) {
	// Initialize repositories.
	var (
		repos repository.Repos
		tx    repository.Transactor
		users repository.UserRepository
	)
	if db != nil {
		repos = repository.Repos{
			Trips:    postgres.NewTripRepository(db),
			Bookings: postgres.NewBookingRepository(db),
		}
		tx = postgres.NewTransactor(db)
		users = postgres.NewUserRepository(db)
	} else {
		store := memory.NewStore()
		repos = repository.Repos{Trips: store.Trips(), Bookings: store.Bookings()}
		tx = store
		users = store.Users()
	}

	// Trip locks span processes only when they share Redis.
	var locker service.TripLocker = service.NewLocalTripLocker()
	if redisClient != nil {
		locker = service.NewDistributedTripLocker(internalRedis.NewLockStore(redisClient), service.DistributedLockConfig{
			TTL:        cfg.Booking.LockTTL,
			Retries:    cfg.Booking.LockRetries,
			RetryDelay: cfg.Booking.LockRetryDelay,
		})
	}

	var pusher service.Pusher
	switch {
	case amqpConn != nil:
		publisher, err := rabbitmq.NewNotificationPublisher(amqpConn, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatalf("failed to set up notification exchange: %v", err)
		}
		pusher = publisher
	case redisClient != nil:
		pusher = internalRedis.NewNotificationPublisher(redisClient)
	}

	var nameCache internalRedis.NameCacheInterface
	if redisClient != nil {
		nameCache = internalRedis.NewCacheStore(redisClient)
	}

	// Initialize services.
	notifications := service.NewNotificationDispatcher(pusher, cfg.Booking.PushTimeout)
	ledger := service.NewBookingLedger(repos, tx, locker)
	directory := service.NewUserDirectory(users, nameCache)
	bookingService := service.NewBookingService(ledger, notifications, directory)
	cancellation := service.NewCancellationWorkflow(ledger, notifications)
	tripService := service.NewTripService(repos.Trips, ledger, notifications, cfg.Booking.PunctualityGrace)
	receiptService := service.NewReceiptService(ledger)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:         handler.NewTripHandler(tripService, bookingService, cancellation),
		BookingHandler:      handler.NewBookingHandler(bookingService, cancellation, receiptService),
		UserHandler:         handler.NewUserHandler(directory, tripService, cfg.Auth.JWTSecret),
		NotificationHandler: handler.NewNotificationHandler(notifications),
		PricingHandler:      handler.NewPricingHandler(tripService),
		RedisClient:         redisClient,
		NewRelicApp:         nrApp,
		JWTSecret:           cfg.Auth.JWTSecret,
		AllowedOrigins:      cfg.CORS.AllowedOrigins,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, notifications
}
