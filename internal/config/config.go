package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"      // access to environment variables
	"strings" // joining missing keys into one error
	"time"

	"github.com/joho/godotenv" // optional .env file for local development

	"github.com/iliyamo/signal-checkin/internal/database"
	"github.com/iliyamo/signal-checkin/internal/fieldcrypt"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable and is read once at startup.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBDriver string // "mysql" or "sqlite"
	DBUser   string // database username
	DBPass   string // database password (optional)
	DBHost   string // database host address
	DBPort   string // database port number
	DBName   string // database name
	DBPath   string // sqlite file path

	JWTSecret   string // HS256 secret shared with the identity provider
	JWTAudience string // expected "aud" claim

	EncryptionKey  [fieldcrypt.KeySize]byte // decoded ENCRYPTION_KEY
	ServiceRoleKey string                   // shared secret for /internal routes (optional)

	StoreTimeout            time.Duration // per storage attempt
	StoreRetries            int           // attempts on transient storage failure
	EnforceCiphertextFormat bool          // refuse non-ciphertext values in sensitive columns
	ListLimit               int           // max entries per listing

	RabbitMQURL string // empty disables event publishing
	EventLogDir string // where the event consumer appends its audit log
}

// LoadDotenv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from the environment. Every missing required
// variable is reported in a single error.
func Load() (Config, error) {
	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:      envStr("APP_ENV", "dev"),
		Port:     envStr("APP_PORT", "8080"),
		DBDriver: envStr("DB_DRIVER", database.DriverMySQL),

		JWTSecret:   must("JWT_SECRET"),
		JWTAudience: envStr("JWT_AUDIENCE", "authenticated"),

		ServiceRoleKey: os.Getenv("SERVICE_ROLE_KEY"),

		StoreTimeout:            envDur("STORE_TIMEOUT", 5*time.Second),
		StoreRetries:            envInt("STORE_RETRIES", 3),
		EnforceCiphertextFormat: envBool("ENFORCE_CIPHERTEXT_FORMAT", false),
		ListLimit:               envInt("LIST_LIMIT", 90),

		RabbitMQURL: envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		EventLogDir: envStr("EVENT_LOG_DIR", "logs"),
	}

	switch cfg.DBDriver {
	case database.DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = envStr("DB_PORT", "3306")
		cfg.DBName = must("DB_NAME")
	case database.DriverSQLite:
		cfg.DBPath = envStr("DB_PATH", "checkin.db")
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q: want mysql or sqlite", cfg.DBDriver)
	}

	rawKey := must("ENCRYPTION_KEY")
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}

	key, err := fieldcrypt.ParseKey(rawKey)
	if err != nil {
		return Config{}, fmt.Errorf("ENCRYPTION_KEY: %w", err)
	}
	cfg.EncryptionKey = key

	if len(cfg.JWTSecret) < 32 && cfg.IsProd() {
		return Config{}, errors.New("JWT_SECRET must be at least 32 bytes in prod")
	}
	if cfg.StoreRetries < 1 {
		cfg.StoreRetries = 1
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return cfg, nil
}

// IsProd reports whether the service runs in production mode.
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// DSN returns the connection string for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == database.DriverMySQL {
		return database.MySQLDSN(c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
	}
	return database.SQLiteDSN(c.DBPath)
}
