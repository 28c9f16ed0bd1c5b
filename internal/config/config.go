package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const devJWTSecret = "default_super_secret_key"

type Config struct {
	HTTP     HTTP
	Logger   Logger
	Postgres Postgres
	JWT      JWT
	Gateway  Gateway
	Events   Events
	Receipt  Receipt
}

type HTTP struct {
	Port          int      `env:"PORT" envDefault:"8080"`
	Mode          string   `env:"GIN_MODE" envDefault:"debug"`
	PublicBaseURL string   `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	AllowOrigins  []string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:5173,http://127.0.0.1:5173"`
}

type Logger struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type Postgres struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"postgres"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN renders the libpq keyword/value connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		p.Host, p.User, p.Password, p.Name, p.Port, p.SSLMode)
}

type JWT struct {
	Secret string `env:"JWT_SECRET" envDefault:"default_super_secret_key"`
}

// Gateway configures the Lean.x bill API.
type Gateway struct {
	APIHost        string        `env:"LEANX_API_HOST" envDefault:"https://api.leanx.io"`
	CollectionUUID string        `env:"LEANX_COLLECTION_UUID"`
	AuthToken      string        `env:"LEANX_AUTH_TOKEN"`
	Timeout        time.Duration `env:"LEANX_TIMEOUT" envDefault:"10s"`
	StatusCacheTTL time.Duration `env:"LEANX_STATUS_CACHE_TTL" envDefault:"10m"`
	WebhookSecret  string        `env:"LEANX_WEBHOOK_SECRET"`
}

type Events struct {
	Backend  string   `env:"EVENTS_BACKEND" envDefault:"memory"`
	Topic    string   `env:"EVENTS_TOPIC" envDefault:"invoices"`
	Brokers  []string `env:"KAFKA_BROKERS"`
	ClientID string   `env:"KAFKA_CLIENT_ID" envDefault:"workshop-api"`
	// Empty means every instance reads every partition, so each API node
	// can fan events out to its own websocket clients.
	ConsumerGroup string `env:"KAFKA_CONSUMER_GROUP"`
}

type Receipt struct {
	RedirectDelay time.Duration `env:"RECEIPT_REDIRECT_DELAY" envDefault:"500ms"`
}

const (
	EventsMemory = "memory"
	EventsKafka  = "kafka"
)

func New(envPath string) (Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.HTTP.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown GIN_MODE %q", c.HTTP.Mode)
	}

	if c.HTTP.Mode == "release" && (c.JWT.Secret == "" || c.JWT.Secret == devJWTSecret) {
		return errors.New("JWT_SECRET must be set in release mode")
	}

	switch c.Events.Backend {
	case EventsMemory:
	case EventsKafka:
		if len(c.Events.Brokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when EVENTS_BACKEND=kafka")
		}
	default:
		return fmt.Errorf("unknown EVENTS_BACKEND %q", c.Events.Backend)
	}

	if c.Receipt.RedirectDelay < 0 {
		return errors.New("RECEIPT_REDIRECT_DELAY must not be negative")
	}

	return nil
}
