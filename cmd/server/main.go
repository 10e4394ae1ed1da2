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
	"github.com/redis/go-redis/v9"

	"airlink/internal/app"
	"airlink/internal/config"
	"airlink/internal/events"
	"airlink/internal/flow"
	"airlink/internal/handler"
	"airlink/internal/middleware"
	"airlink/internal/payments"
	internalRedis "airlink/internal/redis"
	"airlink/internal/repository/postgres"
	"airlink/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.Checkout.SessionSecret == config.DefaultSessionSecret {
		log.Println("WARNING: checkout tokens are signed with the default development secret")
	}

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
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Domain events go to RabbitMQ when enabled, to the log otherwise.
	var publisher events.Publisher = events.NewLogPublisher()
	if cfg.AMQP.Enabled {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Printf("failed to connect to RabbitMQ, logging events instead: %v", err)
		} else {
			defer amqpPublisher.Close()
			publisher = amqpPublisher
			log.Printf("Publishing events to exchange %s", cfg.AMQP.Exchange)
		}
	}

	// Wire dependencies.
	server := wireServer(db, redisClient, nrApp, publisher, cfg)

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
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, publisher events.Publisher, cfg *config.Config) *http.Server {
	// Initialize Redis stores.
	flowStore := flow.NewStore(internalRedis.NewKVStore(redisClient), cfg.Checkout.FlowTTL)
	seatHolds := internalRedis.NewSeatHoldStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	tripRepo := postgres.NewTripRepository(db)
	seatRepo := postgres.NewSeatRepository(db)
	busRepo := postgres.NewBusRepository(db)
	couponRepo := postgres.NewCouponRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)

	// Seat inventory and ground connections can run without stored data.
	var inventory service.SeatInventoryProvider = service.NewDBSeatInventory(seatRepo)
	if cfg.Checkout.SeatInventory == "mock" {
		inventory = service.NewMockSeatInventory(cfg.Checkout.SeatRows, cfg.Checkout.SeatAvailability)
	}
	var ground service.GroundConnectionProvider = busRepo
	if cfg.Checkout.GroundConnections == "static" {
		ground = service.NewStaticGroundConnections(service.DefaultStaticRoutes)
	}

	// Initialize services.
	sessionService := service.NewSessionService(flowStore)
	guardService := service.NewGuardService(sessionService)
	searchService := service.NewSearchService(tripRepo, cacheStore)
	seatService := service.NewSeatService(sessionService, guardService, inventory, seatHolds, cfg.Checkout.SeatRows, cfg.Checkout.FlowTTL)
	checkoutService := service.NewCheckoutService(sessionService, guardService, tripRepo, seatService)
	busService := service.NewBusService(sessionService, guardService, ground, cfg.Checkout.BusArrivalBuffer)
	couponService := service.NewCouponService(couponRepo, sessionService, guardService, cacheStore, cfg.Checkout.MinTotalAfterCoupon)
	passengerService := service.NewPassengerService(sessionService, guardService)
	importService := service.NewLegacyImportService(checkoutService, seatService, sessionService, tripRepo)
	notificationService := service.NewNotificationService(publisher)
	receiptService := service.NewReceiptService()
	paymentService := service.NewPaymentService(
		sessionService,
		guardService,
		couponService,
		seatService,
		reservationRepo,
		paymentRepo,
		newProcessors(cfg.Payments),
		notificationService,
		receiptService,
		service.PaymentURLs{FrontendURL: cfg.Checkout.FrontendURL, APIBaseURL: cfg.Checkout.APIBaseURL},
	)

	tokens := middleware.NewSessionTokens(cfg.Checkout.SessionSecret, cfg.Checkout.FlowTTL)

	// Initialize handlers.
	flightHandler := handler.NewFlightHandler(searchService)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, guardService, seatService, busService, passengerService, importService, tokens)
	couponHandler := handler.NewCouponHandler(couponService)
	paymentHandler := handler.NewPaymentHandler(paymentService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		FlightHandler:   flightHandler,
		CheckoutHandler: checkoutHandler,
		CouponHandler:   couponHandler,
		PaymentHandler:  paymentHandler,
		SessionTokens:   tokens,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// newProcessors registers the configured gateways. The mock gateway accepts
// unauthenticated webhooks, so it is only available when it replaces the real ones.
func newProcessors(cfg config.PaymentsConfig) payments.Registry {
	if cfg.UseMock {
		log.Println("Payments: mock gateway only")
		return payments.NewRegistry(payments.NewMockPSP())
	}

	client := payments.NewHTTPClient(cfg.HTTPTimeout)
	var processors []payments.Processor
	switch {
	case cfg.StripeSecretKey != "" && cfg.WebhookSecret == "":
		log.Println("Payments: stripe disabled, PAYMENTS_WEBHOOK_SECRET is not set")
	case cfg.StripeSecretKey != "":
		processors = append(processors, payments.NewStripe(client, cfg.StripeBaseURL, cfg.StripeSecretKey, cfg.WebhookSecret))
	}
	if cfg.MercadoPagoToken != "" {
		processors = append(processors, payments.NewMercadoPago(client, cfg.MercadoPagoURL, cfg.MercadoPagoToken))
	}
	if cfg.PayPalClientID != "" {
		processors = append(processors, payments.NewPayPal(client, cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalSecret, cfg.USDConversionRate))
	}
	if len(processors) == 0 {
		log.Println("Payments: no gateway configured")
	}
	return payments.NewRegistry(processors...)
}
