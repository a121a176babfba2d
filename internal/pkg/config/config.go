package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timezone, timeout, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	CORS    CORSConfig
	Log     LogConfig
	JWT     JWTConfig
	Booking BookingConfig
	Payment PaymentConfig
	Worker  WorkerConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"UTC"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
}

type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `envconfig:"REDIS_PASSWORD" default:""`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	Timeout  time.Duration `envconfig:"REDIS_TIMEOUT" default:"500ms"`
}

type KafkaConfig struct {
	Enabled       bool          `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers       []string      `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	PaymentTopic  string        `envconfig:"KAFKA_PAYMENT_TOPIC" default:"payment-events"`
	PaymentDLQ    string        `envconfig:"KAFKA_PAYMENT_DLQ" default:"payment-events-dlq"`
	GroupID       string        `envconfig:"KAFKA_GROUP_ID" default:"roombook-payments"`
	MaxRetries    int           `envconfig:"KAFKA_MAX_RETRIES" default:"3"`
	MaxWait       time.Duration `envconfig:"KAFKA_MAX_WAIT" default:"1s"`
	CommitEvery   time.Duration `envconfig:"KAFKA_COMMIT_INTERVAL" default:"0s"`
	FetchBackoff  time.Duration `envconfig:"KAFKA_FETCH_BACKOFF" default:"1s"`
	ConsumerBytes int           `envconfig:"KAFKA_CONSUMER_MAX_BYTES" default:"1048576"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"UTC"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"0"`
}

type JWTConfig struct {
	Secret   string `envconfig:"JWT_SECRET" required:"true"`
	Duration string `envconfig:"JWT_DURATION" default:"24h"`
}

type BookingConfig struct {
	HoldTimeout          time.Duration `envconfig:"BOOKING_HOLD_TIMEOUT" default:"15m"`
	MaxExtensions        int           `envconfig:"BOOKING_MAX_EXTENSIONS" default:"2"`
	MaxExtensionMinutes  int           `envconfig:"BOOKING_MAX_EXTENSION_MINUTES" default:"30"`
	TaxRate              float64       `envconfig:"BOOKING_TAX_RATE" default:"0.11"`
	ServiceFeeRate       float64       `envconfig:"BOOKING_SERVICE_FEE_RATE" default:"0.05"`
	Currency             string        `envconfig:"BOOKING_CURRENCY" default:"IDR"`
	LedgerHorizonDays    int           `envconfig:"LEDGER_HORIZON_DAYS" default:"90"`
	LedgerTTL            time.Duration `envconfig:"LEDGER_TTL" default:"48h"`
	PriceCacheValidity   time.Duration `envconfig:"PRICE_CACHE_VALIDITY" default:"168h"`
	PriceCacheWindowDays int           `envconfig:"PRICE_CACHE_WINDOW_DAYS" default:"90"`
}

type PaymentConfig struct {
	BaseURL       string        `envconfig:"PAYMENT_BASE_URL" default:"https://api.xendit.co"`
	SecretKey     string        `envconfig:"PAYMENT_SECRET_KEY" required:"true"`
	CallbackToken string        `envconfig:"PAYMENT_CALLBACK_TOKEN" required:"true"`
	WebhookSecret string        `envconfig:"PAYMENT_WEBHOOK_SECRET" default:""`
	Timeout       time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"10s"`
	SuccessURL    string        `envconfig:"PAYMENT_SUCCESS_URL" default:""`
	FailureURL    string        `envconfig:"PAYMENT_FAILURE_URL" default:""`
}

type WorkerConfig struct {
	Enabled                bool          `envconfig:"WORKER_ENABLED" default:"true"`
	ExpiryInterval         time.Duration `envconfig:"WORKER_EXPIRY_INTERVAL" default:"1m"`
	ReconciliationInterval time.Duration `envconfig:"WORKER_RECONCILIATION_INTERVAL" default:"15m"`
	LedgerInterval         time.Duration `envconfig:"WORKER_LEDGER_INTERVAL" default:"1h"`
	BatchSize              int           `envconfig:"WORKER_BATCH_SIZE" default:"100"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "UTC",
			MaxConns: 5,
		},
		Redis: RedisConfig{
			Addr:    "localhost:16379",
			Timeout: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:      "error", // Error level only for tests
			TimeZone:   "UTC",
			TimeFormat: "2006-01-02 15:04:05.000",
		},
		JWT: JWTConfig{
			Secret:   "test-secret",
			Duration: "1h",
		},
		Booking: BookingConfig{
			HoldTimeout:          15 * time.Minute,
			MaxExtensions:        2,
			MaxExtensionMinutes:  30,
			TaxRate:              0.11,
			ServiceFeeRate:       0.05,
			Currency:             "IDR",
			LedgerHorizonDays:    90,
			LedgerTTL:            48 * time.Hour,
			PriceCacheValidity:   7 * 24 * time.Hour,
			PriceCacheWindowDays: 90,
		},
		Payment: PaymentConfig{
			BaseURL:       "http://localhost:18080",
			SecretKey:     "test-key",
			CallbackToken: "test-callback-token",
			WebhookSecret: "test-webhook-secret",
			Timeout:       2 * time.Second,
		},
		Worker: WorkerConfig{
			ExpiryInterval:         time.Minute,
			ReconciliationInterval: 15 * time.Minute,
			LedgerInterval:         time.Hour,
			BatchSize:              100,
		},
	}
}
