package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/vapealley/internal/auth"
	"github.com/fjod/vapealley/internal/cart"
	"github.com/fjod/vapealley/internal/catalog"
	"github.com/fjod/vapealley/internal/checkout"
	"github.com/fjod/vapealley/internal/config"
	"github.com/fjod/vapealley/internal/db"
	"github.com/fjod/vapealley/internal/discount"
	"github.com/fjod/vapealley/internal/domain"
	h "github.com/fjod/vapealley/internal/http"
	"github.com/fjod/vapealley/internal/logger"
	"github.com/fjod/vapealley/internal/notify"
	"github.com/fjod/vapealley/internal/order"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	// accept and forward W3C trace context so log lines carry the caller's trace id
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoDB, err := db.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return err
	}
	defer mongoDB.Client().Disconnect(context.Background())
	log.Info("connected to MongoDB", "database", cfg.MongoDBName)

	productRepo := catalog.NewMongoRepository(mongoDB)
	cartRepo := cart.NewMongoRepository(mongoDB)
	orderRepo := order.NewMongoRepository(mongoDB)
	for _, indexed := range []interface {
		CreateIndexes(ctx context.Context) error
	}{productRepo, cartRepo, orderRepo} {
		if err := indexed.CreateIndexes(ctx); err != nil {
			return err
		}
	}

	categoryDocs := catalog.NewMongoDocuments[domain.Category](mongoDB, "categories", "value")
	brandDocs := catalog.NewMongoDocuments[domain.Brand](mongoDB, "brands")
	reviewDocs := catalog.NewMongoDocuments[domain.Review](mongoDB, "reviews")
	if err := categoryDocs.CreateIndexes(ctx); err != nil {
		return err
	}
	if err := brandDocs.CreateIndexes(ctx); err != nil {
		return err
	}
	if err := reviewDocs.CreateIndexes(ctx, mongo.IndexModel{Keys: bson.D{{Key: "product_id", Value: 1}}}); err != nil {
		return err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// the cart falls back to MongoDB while Redis is down
		log.Warn("redis unavailable", "addr", cfg.RedisAddr, "error", err)
	}

	creds := &checkout.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Postgres.MigrationsPath,
	}
	ledger, err := checkout.NewRepository(creds)
	if err != nil {
		return err
	}
	defer ledger.Close()
	if err := ledger.RunMigrations(creds); err != nil {
		return err
	}
	log.Info("database migrations completed")

	catalogService := catalog.NewService(productRepo)
	cartService := cart.NewService(cartRepo, cart.NewRedisCache(redisClient), productRepo, log)
	discountEngine := discount.NewEngine(productRepo, log)
	orderService := order.NewService(orderRepo, productRepo, ledger, db.NewTransactor(mongoDB.Client()), log)

	publisher := checkout.NewOutboxPublisher(ledger, orderService, cfg.OrderTopic, log, cfg.KafkaBrokers...)
	poller := cart.NewPoller(cartRepo, cart.NewRedisCache(redisClient), cfg.OrderTopic, log, cfg.KafkaBrokers...)
	notifier := notify.NewConsumer(
		notify.NewWhatsAppClient(cfg.WhapiURL, cfg.WhapiToken, log),
		cfg.OrderTopic, log, cfg.KafkaBrokers...,
	)
	orderLimiter := h.NewRateLimiter(cfg.OrderRateRPS, cfg.OrderRateBurst)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var wg sync.WaitGroup
	for _, worker := range []func(context.Context){publisher.Run, poller.Run, notifier.Run, orderLimiter.Cleanup} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(workerCtx)
		}()
	}

	router := h.NewRouter(h.RouterConfig{
		Products: h.NewProductHandler(catalogService, cfg.RequestTimeout, log),
		References: h.NewReferenceHandler(
			catalog.NewCategoryService(categoryDocs),
			catalog.NewBrandService(brandDocs, categoryDocs),
			catalog.NewReviewService(reviewDocs, productRepo),
			cfg.RequestTimeout, log,
		),
		Carts:     h.NewCartHandler(cartService, cfg.RequestTimeout, log),
		Discounts: h.NewDiscountHandler(discountEngine, cfg.RequestTimeout, log),
		Orders:    h.NewOrdersHandler(orderService, cfg.RequestTimeout, log),
		Health: h.NewHealthHandler(map[string]h.Pinger{
			"mongo": h.PingFunc(func(ctx context.Context) error {
				return mongoDB.Client().Ping(ctx, nil)
			}),
			"redis": h.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
			"postgres": ledger,
		}, 2*time.Second),
		Authenticator:  h.NewAuthenticator(auth.NewVerifier(cfg.JWTSecret)),
		OrderLimiter:   orderLimiter,
		TrustProxy:     cfg.TrustProxy,
		UploadsDir:     cfg.UploadsDir,
		MaxBodySize:    cfg.MaxRequestBodySize,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("storefront starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err = <-serverErr:
		log.Error("server error", "error", err)
	}

	log.Info("shutting down storefront...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("server forced to shutdown", "error", shutdownErr)
	}

	stopWorkers()
	wg.Wait()
	publisher.Close()
	poller.Close()
	notifier.Close()

	log.Info("storefront stopped")
	return err
}
