// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the server.
type Config struct {
	AppEnv   string
	AppPort  string
	LogLevel string

	DBDriver     string // postgres, sqlite or memory
	DatabaseDSN  string
	StoreTimeout time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	RedisURL         string
	RabbitMQURL      string
	RabbitMQExchange string
	PublishTimeout   time.Duration

	MediaProvider  string // none, cloudinary or minio
	CloudinaryURL  string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	CORSOrigins string
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "memory")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=shopfront port=5432 sslmode=disable")
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "inventory.events")
	v.SetDefault("PUBLISH_TIMEOUT", "2s")
	v.SetDefault("MEDIA_PROVIDER", "none")
	v.SetDefault("CLOUDINARY_URL", "")
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "products")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("CORS_ORIGINS", "*")
}

// Load reads the .env file if there is one, then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	port := v.GetString("APP_PORT")
	if port != "" && !strings.Contains(port, ":") {
		port = ":" + port
	}

	return &Config{
		AppEnv:   v.GetString("APP_ENV"),
		AppPort:  port,
		LogLevel: v.GetString("LOG_LEVEL"),

		DBDriver:     strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:  v.GetString("DATABASE_DSN"),
		StoreTimeout: v.GetDuration("STORE_TIMEOUT"),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTTTL:    v.GetDuration("JWT_TTL"),

		RedisURL:         v.GetString("REDIS_URL"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQExchange: v.GetString("RABBITMQ_EXCHANGE"),
		PublishTimeout:   v.GetDuration("PUBLISH_TIMEOUT"),

		MediaProvider:  strings.ToLower(v.GetString("MEDIA_PROVIDER")),
		CloudinaryURL:  v.GetString("CLOUDINARY_URL"),
		MinIOEndpoint:  v.GetString("MINIO_ENDPOINT"),
		MinIOAccessKey: v.GetString("MINIO_ACCESS_KEY"),
		MinIOSecretKey: v.GetString("MINIO_SECRET_KEY"),
		MinIOBucket:    v.GetString("MINIO_BUCKET"),
		MinIOUseSSL:    v.GetBool("MINIO_USE_SSL"),

		CORSOrigins: v.GetString("CORS_ORIGINS"),
	}
}
