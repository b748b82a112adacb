package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Server              ServerConfig
	Database            DatabaseConfig
	Redis               RedisConfig
	Kafka               KafkaConfig
	ListingService      ServiceConfig
	UserService         ServiceConfig
	NotificationService ServiceConfig
	Auth                AuthConfig
	Razorpay            RazorpayConfig
	Cashfree            CashfreeConfig
	UPI                 UPIConfig
	RateLimit           RateLimitConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers     []string
	OrdersTopic string
}

type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

type AuthConfig struct {
	JWTSecret string
}

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

type CashfreeConfig struct {
	AppID         string
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	APIVersion    string
}

type UPIConfig struct {
	// VPA is the merchant payee handle encoded into UPI deep links.
	VPA       string
	PayeeName string
}

type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "nearbuy"),
			Password:     getEnvString("DB_PASSWORD", "nearbuy"),
			Name:         getEnvString("DB_NAME", "nearbuy_orders"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_TTL", 300)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvStringSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrdersTopic: getEnvString("KAFKA_ORDERS_TOPIC", "marketplace.orders"),
		},
		ListingService: ServiceConfig{
			BaseURL: getEnvString("LISTING_SERVICE_URL", "http://localhost:8081"),
			Timeout: time.Duration(getEnvInt("LISTING_SERVICE_TIMEOUT", 10)) * time.Second,
			APIKey:  getEnvString("LISTING_SERVICE_API_KEY", ""),
		},
		UserService: ServiceConfig{
			BaseURL: getEnvString("USER_SERVICE_URL", "http://localhost:8082"),
			Timeout: time.Duration(getEnvInt("USER_SERVICE_TIMEOUT", 10)) * time.Second,
			APIKey:  getEnvString("USER_SERVICE_API_KEY", ""),
		},
		NotificationService: ServiceConfig{
			BaseURL: getEnvString("NOTIFICATION_SERVICE_URL", "http://localhost:8083"),
			Timeout: time.Duration(getEnvInt("NOTIFICATION_SERVICE_TIMEOUT", 10)) * time.Second,
			APIKey:  getEnvString("NOTIFICATION_SERVICE_API_KEY", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnvString("JWT_SECRET", ""),
		},
		Razorpay: RazorpayConfig{
			KeyID:         getEnvString("RAZORPAY_KEY_ID", ""),
			KeySecret:     getEnvString("RAZORPAY_KEY_SECRET", ""),
			WebhookSecret: getEnvString("RAZORPAY_WEBHOOK_SECRET", ""),
		},
		Cashfree: CashfreeConfig{
			AppID:         getEnvString("CASHFREE_APP_ID", ""),
			SecretKey:     getEnvString("CASHFREE_SECRET_KEY", ""),
			WebhookSecret: getEnvString("CASHFREE_WEBHOOK_SECRET", ""),
			BaseURL:       getEnvString("CASHFREE_BASE_URL", "https://api.cashfree.com/pg"),
			APIVersion:    getEnvString("CASHFREE_API_VERSION", "2023-08-01"),
		},
		UPI: UPIConfig{
			VPA:       getEnvString("UPI_MERCHANT_VPA", ""),
			PayeeName: getEnvString("UPI_PAYEE_NAME", "Nearbuy Seller"),
		},
		RateLimit: RateLimitConfig{
			Window:      time.Duration(getEnvInt("RATE_LIMIT_WINDOW", 60)) * time.Second,
			MaxRequests: getEnvInt("RATE_LIMIT_MAX", 10),
		},
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
