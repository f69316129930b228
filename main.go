package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ms-marketplace/internal/analytics"
	"ms-marketplace/internal/analytics/analytics_api"
	"ms-marketplace/internal/auth"
	catalog_db "ms-marketplace/internal/catalog/db"
	"ms-marketplace/internal/chat"
	"ms-marketplace/internal/chat/chat_api"
	chat_db "ms-marketplace/internal/chat/db"
	"ms-marketplace/internal/config"
	"ms-marketplace/internal/countdown"
	"ms-marketplace/internal/countdown/countdown_api"
	"ms-marketplace/internal/database/migrations"
	"ms-marketplace/internal/kafka"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/order"
	order_db "ms-marketplace/internal/order/db"
	"ms-marketplace/internal/order/order_api"
	rediswrap "ms-marketplace/internal/order/redis"
	"ms-marketplace/internal/payment"
	"ms-marketplace/internal/pricing"
	pricing_db "ms-marketplace/internal/pricing/db"
	"ms-marketplace/internal/pricing/pricing_api"
	"ms-marketplace/internal/receipt"
	"ms-marketplace/internal/sse"
	"ms-marketplace/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}

	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, cfg.Redis.DB))
	return bunDB, redisClient
}

// newVerifier prefers the OIDC issuer and falls back to a shared HS256 secret.
func newVerifier(ctx context.Context, cfg config.AuthConfig, logger *logger.Logger) auth.Verifier {
	if cfg.OIDCIssuer != "" {
		v, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
		if err != nil {
			logger.Fatal("AUTH", fmt.Sprintf("Failed to create OIDC verifier: %v", err))
		}
		logger.Info("AUTH", fmt.Sprintf("Verifying tokens against OIDC issuer %s", cfg.OIDCIssuer))
		return v
	}
	if cfg.JWTSecret != "" {
		logger.Info("AUTH", "Verifying HS256 tokens with shared secret")
		return &auth.HMACVerifier{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer}
	}
	logger.Fatal("CONFIG", "Neither OIDC_ISSUER nor JWT_SECRET is set")
	return nil
}

func main() {
	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Marketplace Service initialization")

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	var background sync.WaitGroup
	goBackground := func(fn func()) {
		background.Add(1)
		go func() {
			defer background.Done()
			fn()
		}()
	}

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Database.SeedData {
		runner := migrations.NewRunner(bunDB.DB, migrations.MigrateOptions{
			MigrationsDir: cfg.Database.MigrationsDir,
			SeedData:      true,
		}, log)
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
		_ = runner.Close()
	}

	// --- Kafka ---
	var publisher interface {
		Publish(ctx context.Context, topic, key string, value interface{}) error
	} = kafka.NopPublisher{}
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers, log)
		publisher = producer
		log.Info("KAFKA", "Kafka producer initialized successfully")
	} else {
		log.Warn("KAFKA", "Kafka disabled, events will not be published")
	}

	// --- Chat ---
	chatEvents := sse.NewChatEventEmitter()
	bridge := chat.NewRedisBridge(redisClient, utils.NewInstanceID(), chatEvents, log)
	broadcaster := &chat.Broadcaster{Hub: chatEvents, Relay: bridge, Logger: log}
	chatService := chat.NewService(&chat_db.ChatDB{Bun: bunDB}, broadcaster, publisher,
		cfg.Kafka.Topics.ChatMentioned, cfg.Chat.TypingIdle, log)
	inbox := &chat.MentionInbox{Client: redisClient}

	goBackground(func() {
		if err := bridge.Run(ctx, nil); err != nil {
			log.Error("REDIS", fmt.Sprintf("Chat bridge stopped: %v", err))
		}
	})

	var mentionConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		mentionConsumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.ChatMentioned, cfg.Kafka.GroupID, log)
		goBackground(func() {
			mentionConsumer.Start(ctx, kafka.JSONHandler(inbox.HandleMention))
		})
	}

	// --- Orders ---
	gateway, err := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, log)
	if err != nil {
		log.Fatal("STRIPE", err.Error())
	}
	couponBook := pricing.NewCouponBook(&pricing_db.CouponDB{Bun: bunDB})
	orderService := order.NewOrderService(
		&order_db.OrderDB{Bun: bunDB},
		&catalog_db.CourseDB{Bun: bunDB},
		couponBook,
		rediswrap.NewEnrollmentLock(redisClient, cfg.Order.EnrollmentLockTTL, log),
		gateway,
		publisher,
		order.Topics{
			Created:   cfg.Kafka.Topics.OrderCreated,
			Completed: cfg.Kafka.Topics.OrderCompleted,
			Cancelled: cfg.Kafka.Topics.OrderCancelled,
		},
		cfg.Stripe.Currency,
		log,
	)

	log.Info("REDIS", "Starting enrollment lock expiry subscription")
	goBackground(func() {
		if err := rediswrap.WatchExpiredLocks(ctx, redisClient, cfg.Redis.DB, log, orderService.ExpireEnrollment, nil); err != nil {
			log.Error("REDIS", fmt.Sprintf("Lock expiry watcher stopped: %v", err))
		}
	})

	// --- Countdowns ---
	timers := countdown.NewTimers(
		countdown.New(&countdown.RedisStore{Client: redisClient}),
		countdown.DefaultDefinitions(cfg.Countdown.OTP, cfg.Countdown.Resend)...,
	)

	orderHandler := order_api.NewHandler(orderService, receipt.NewQRGenerator(cfg.Order.ReceiptSecret), log)
	pricingHandler := pricing_api.NewHandler(orderService, log)
	chatHandler := chat_api.NewHandler(chatService, chatEvents, inbox, log)
	countdownHandler := &countdown_api.Handler{Timers: timers, Logger: log}
	analyticsHandler := analytics_api.NewHandler(analytics.NewService(analytics.NewDB(bunDB)), log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteSuccess(w, http.StatusOK, "ok", nil)
	})

	verifier := newVerifier(ctx, cfg.Auth, log)
	r.Route("/api", func(r chi.Router) {
		// --- Public Routes ---
		orderHandler.RegisterPublicRoutes(r)
		log.Info("ROUTER", "Payment webhook registered at /api/payments/webhook")

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier, log))
			log.Info("AUTH", "JWT middleware applied to protected API routes")

			pricingHandler.RegisterRoutes(r)
			orderHandler.RegisterRoutes(r)
			chatHandler.RegisterRoutes(r)
			countdownHandler.RegisterRoutes(r)
			analyticsHandler.RegisterRoutes(r)
			log.Info("ROUTER", "Checkout, order, chat, countdown and analytics routes registered under /api")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Marketplace Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}

	chatService.Close(ctxShutdown)
	stopBackground()
	background.Wait()

	if mentionConsumer != nil {
		_ = mentionConsumer.Close()
	}
	if producer != nil {
		_ = producer.Close()
	}
	log.Info("HTTP", "✅ Marketplace Service shutdown complete")
}
