package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all the configuration for the application.
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"production"`
	HTTPServer `yaml:"http_server"`
	Database   `yaml:"database"`
	Shortener  `yaml:"shortener"`
	Auth       `yaml:"auth"`
	Cache      `yaml:"cache"`
	Analytics  `yaml:"analytics"`
	RateLimit  `yaml:"rate_limit"`
}

// HTTPServer holds HTTP server specific configuration.
type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Database holds PostgreSQL connection configuration.
type Database struct {
	Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password        string `yaml:"password" env:"DB_PASSWORD" env-default:"postgres"`
	DBName          string `yaml:"name" env:"DB_NAME" env-default:"shortly"`
	SSLMode         string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	Timezone        string `yaml:"timezone" env:"DB_TIMEZONE" env-default:"UTC"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"50"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// Shortener holds short-code and URL handling configuration.
type Shortener struct {
	BaseURL      string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	CodeLength   int    `yaml:"code_length" env:"SHORT_CODE_LENGTH" env-default:"6"`
	CodeCharset  string `yaml:"code_charset" env:"SHORT_CODE_CHARSET" env-default:"abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"`
	CodePrefix   string `yaml:"code_prefix" env:"SHORT_CODE_PREFIX" env-default:""`
	MaxURLLength int    `yaml:"max_url_length" env:"MAX_URL_LENGTH" env-default:"2048"`
	MaxAttempts  int    `yaml:"max_attempts" env:"SHORT_CODE_MAX_ATTEMPTS" env-default:"10"`
}

// Auth holds JWT and password hashing configuration.
type Auth struct {
	JWTSecret            string        `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"change-me-in-production"`
	AccessTokenDuration  time.Duration `yaml:"access_token_duration" env:"ACCESS_TOKEN_DURATION" env-default:"15m"`
	RefreshTokenDuration time.Duration `yaml:"refresh_token_duration" env:"REFRESH_TOKEN_DURATION" env-default:"168h"`
	Issuer               string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"Shortly-Backend"`
}

// Cache holds the optional Redis redirect cache configuration.
type Cache struct {
	Enabled  bool          `yaml:"enabled" env:"CACHE_ENABLED" env-default:"false"`
	Address  string        `yaml:"address" env:"CACHE_ADDRESS" env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"CACHE_PASSWORD" env-default:""`
	DB       int           `yaml:"db" env:"CACHE_DB" env-default:"0"`
	TTL      time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"5m"`
}

// Analytics holds the async access recorder configuration.
type Analytics struct {
	WorkerCount   int           `yaml:"worker_count" env:"ANALYTICS_WORKERS" env-default:"3"`
	BufferSize    int           `yaml:"buffer_size" env:"ANALYTICS_BUFFER_SIZE" env-default:"1000"`
	RetryAttempts int           `yaml:"retry_attempts" env:"ANALYTICS_RETRY_ATTEMPTS" env-default:"3"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"ANALYTICS_RETRY_DELAY" env-default:"1s"`
}

// RateLimit holds per-IP rate limiting configuration.
type RateLimit struct {
	Enabled bool          `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	Window  time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"15m"`
	Max     int           `yaml:"max" env:"RATE_LIMIT_MAX_REQUESTS" env-default:"100"`
}

// MustLoad loads the application configuration.
func MustLoad() *Config {
	// Try to load .env file (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	var cfg Config

	// Check if config file path is specified
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yml" // default path
	}

	// Try to load config file
	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			log.Fatalf("cannot read config: %s", err)
		}
	} else {
		// If config file doesn't exist, use environment variables only
		log.Println("Config file not found, using environment variables only")
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read config from environment: %s", err)
		}
	}

	return &cfg
}
