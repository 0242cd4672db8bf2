package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	APIPort            string        `env:"API_PORT" envDefault:"8080"`
	JWTSecret          string        `env:"JWT_SECRET" envDefault:"defaultsecret"`
	JWTExpirationHours int           `env:"JWT_EXPIRATION_HOURS" envDefault:"72"`
	JWTKey             []byte        `env:"-"`
	JWTExp             time.Duration `env:"-"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"user"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"password"`
	DBName     string `env:"DB_NAME" envDefault:"contest_registry"`
	DBSslMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	DBConnStr  string `env:"-"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ImportQueueName      string `env:"IMPORT_QUEUE_NAME" envDefault:"import_jobs_queue"`
	ImportLockKey        string `env:"IMPORT_LOCK_KEY" envDefault:"import_job_lock"`
	ImportLockTTLSeconds int    `env:"IMPORT_LOCK_TTL_SECONDS" envDefault:"300"`
	RunImportWorker      bool   `env:"RUN_IMPORT_WORKER" envDefault:"true"`
	UploadMaxBytes       int64  `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`

	StatsCacheTTLSeconds int `env:"STATS_CACHE_TTL_SECONDS" envDefault:"60"`

	// Empty disables the search index; contestant search then runs against the database.
	ElasticURL string `env:"ELASTIC_URL"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminFullName string `env:"ADMIN_FULL_NAME" envDefault:"Administrator"`
}

var AppConfig *Config

// Load reads .env (if present) and the process environment into AppConfig.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := Parse()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	AppConfig = cfg
}

// Parse builds a Config from the current environment without touching AppConfig.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.JWTExpirationHours <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", cfg.JWTExpirationHours)
	}

	cfg.JWTKey = []byte(cfg.JWTSecret)
	cfg.JWTExp = time.Duration(cfg.JWTExpirationHours) * time.Hour
	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) ImportLockTTL() time.Duration {
	return time.Duration(c.ImportLockTTLSeconds) * time.Second
}

func (c *Config) StatsCacheTTL() time.Duration {
	return time.Duration(c.StatsCacheTTLSeconds) * time.Second
}
