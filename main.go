package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"shopfront/internal/config"
	"shopfront/internal/database"
	"shopfront/internal/events"
	"shopfront/internal/logging"
	"shopfront/internal/media"
	"shopfront/internal/models"
	"shopfront/internal/realtime"
	"shopfront/internal/repositories"
	"shopfront/internal/server"
	"shopfront/internal/services"
	"shopfront/pkg/rabbitmq"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// --- Configuration ---
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]server.HealthCheck)

	// --- Storage ---
	productRepo, userRepo, addressRepo, db := openStores(cfg, logger)
	if db != nil {
		defer database.Close(db)
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	// --- Real-time fan-out ---
	// Size updates reach websocket clients through Redis when configured so
	// that every instance sees every purchase; otherwise through RabbitMQ, and
	// as a last resort directly through the in-process hub.
	hub := realtime.NewHub(logger, 0)
	var publishers events.Fanout
	liveRelayed := false

	if cfg.RedisURL != "" {
		redisClient, err := realtime.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }

		publishers = append(publishers, realtime.NewRedisPublisher(redisClient))
		go relayFromRedis(ctx, redisClient, hub, logger)
		liveRelayed = true
	}

	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize RabbitMQ client", zap.Error(err))
		}
		defer mqClient.Close()

		publishers = append(publishers, mqClient)
		if !liveRelayed {
			go func() {
				err := mqClient.Consume(ctx, "#", func(routingKey string, body []byte) error {
					return hub.Forward(routingKey, body)
				})
				if err != nil {
					logger.Error("RabbitMQ consumer stopped", zap.Error(err))
				}
			}()
			liveRelayed = true
		}
	}

	if !liveRelayed {
		publishers = append(publishers, hub)
	}

	// --- Media ---
	uploader := newUploader(ctx, cfg, logger)

	// --- Initialize Services ---
	inventoryService := services.NewInventoryService(productRepo, publishers, logger,
		services.WithStoreTimeout(cfg.StoreTimeout),
		services.WithPublishTimeout(cfg.PublishTimeout),
	)
	productService := services.NewProductService(productRepo, uploader, logger, cfg.StoreTimeout)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, cfg.StoreTimeout)
	addressService := services.NewAddressService(addressRepo, logger, cfg.StoreTimeout)

	if cfg.DBDriver == "memory" {
		seedProducts(ctx, productRepo, logger)
	}

	// --- Initialize Fiber App ---
	app := server.New(server.Deps{
		Logger:      logger,
		Products:    productService,
		Inventory:   inventoryService,
		Auth:        authService,
		Addresses:   addressService,
		Hub:         hub,
		CORSOrigins: cfg.CORSOrigins,
		Checks:      checks,
	})

	// --- Start HTTP Server ---
	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := app.Listen(cfg.AppPort); err != nil {
			logger.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	logger.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Error during Fiber shutdown", zap.Error(err))
	}
	logger.Info("Server gracefully stopped")
}

// openStores selects the repositories for cfg.DBDriver. db is nil for the
// in-memory store.
func openStores(cfg *config.Config, logger *zap.Logger) (repositories.ProductRepository, repositories.UserRepository, repositories.AddressRepository, *gorm.DB) {
	if cfg.DBDriver == "memory" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return repositories.NewMemoryProductRepository(),
			repositories.NewMemoryUserRepository(),
			repositories.NewMemoryAddressRepository(),
			nil
	}

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	return repositories.NewGORMProductRepository(db),
		repositories.NewGORMUserRepository(db),
		repositories.NewGORMAddressRepository(db),
		db
}

func newUploader(ctx context.Context, cfg *config.Config, logger *zap.Logger) media.Uploader {
	switch cfg.MediaProvider {
	case "cloudinary":
		up, err := media.NewCloudinaryUploader(cfg.CloudinaryURL)
		if err != nil {
			logger.Fatal("Failed to initialize Cloudinary", zap.Error(err))
		}
		return media.NewBreakerUploader("cloudinary", up, logger)
	case "minio":
		up, err := media.NewMinIOUploader(ctx, media.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			logger.Fatal("Failed to initialize MinIO", zap.Error(err))
		}
		return media.NewBreakerUploader("minio", up, logger)
	case "", "none":
		return media.Passthrough{}
	}
	logger.Fatal("Unknown media provider", zap.String("provider", cfg.MediaProvider))
	return nil
}

// relayFromRedis keeps the Redis relay running, reconnecting after errors.
func relayFromRedis(ctx context.Context, client *redis.Client, hub *realtime.Hub, logger *zap.Logger) {
	for {
		err := realtime.Relay(ctx, client, hub, logger)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("Redis relay interrupted, retrying", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

// seedProducts populates the in-memory catalog with a few products.
func seedProducts(ctx context.Context, repo repositories.ProductRepository, logger *zap.Logger) {
	products := []models.Product{
		{Title: "Classic Shirt", Brand: "Acme", Image: "https://picsum.photos/seed/shirt/600", Sizes: models.DefaultSizes()},
		{Title: "Denim Jacket", Brand: "Acme", Image: "https://picsum.photos/seed/jacket/600", Sizes: models.DefaultSizes()},
		{Title: "Canvas Sneakers", Brand: "Stride", Image: "https://picsum.photos/seed/sneakers/600", Sizes: []models.SizeEntry{
			{Name: "40", Quantity: 5}, {Name: "41", Quantity: 5}, {Name: "42", Quantity: 0},
		}},
	}

	for i := range products {
		p := &products[i]
		p.Thumbnails = []string{p.Image}
		p.Description = []string{}
		if err := repo.Create(ctx, p); err != nil {
			logger.Warn("Error seeding product", zap.String("title", p.Title), zap.Error(err))
			continue
		}
		logger.Info("Seeded product", zap.String("title", p.Title), zap.String("id", p.ID))
	}
}
