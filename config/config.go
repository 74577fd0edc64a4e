package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Address resolution modes for shipment documents.
const (
	AddressReuseExisting = "reuse_existing"
	AddressBranchRef     = "branch_ref"
	AddressCreateNew     = "create_new"
)

// Slack between the end of a repair and the expiry of its lock.
const lockTTLMargin = 15 * time.Second

var defaultPopularCities = []string{"Київ", "Харків", "Львів", "Дніпро", "Запоріжжя"}

type Config struct {
	Port           string
	DBType         string
	PostgresURL    string
	MongoURL       string
	MongoDatabase  string
	MigrationsPath string

	NovaPoshtaURL     string
	NovaPoshtaTimeout time.Duration
	BreakerFailures   uint32
	BreakerCooldown   time.Duration

	AddressResolutionMode string
	OwnershipMaxPages     int
	PopularCities         []string

	JWTSecret   string
	CORSOrigins []string

	RedisURL      string
	GeoCacheTTL   time.Duration
	LockTTL       time.Duration
	RepairTimeout time.Duration

	R2AccountID string
	R2AccessKey string
	R2SecretKey string
	R2Bucket    string

	LogLevel string
}

// LoadConfig reads .env (if present) and then the process environment.
// Malformed values fall back to their defaults with a warning.
func LoadConfig(logger *zap.Logger) *Config {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using system environment variables")
	}

	l := loader{logger: logger}
	cfg := &Config{
		Port:           l.str("PORT", "8080"),
		DBType:         l.str("DB_TYPE", "postgres"),
		PostgresURL:    os.Getenv("POSTGRES_URL"),
		MongoURL:       os.Getenv("MONGO_URL"),
		MongoDatabase:  l.str("MONGO_DATABASE", "ttnmanager"),
		MigrationsPath: l.str("MIGRATIONS_PATH", "db/migrations"),

		NovaPoshtaURL:     l.str("NOVA_POSHTA_API_URL", "https://api.novaposhta.ua/v2.0/json/"),
		NovaPoshtaTimeout: l.duration("NOVA_POSHTA_TIMEOUT", 15*time.Second),
		BreakerFailures:   uint32(l.integer("NOVA_POSHTA_BREAKER_FAILURES", 5)),
		BreakerCooldown:   l.duration("NOVA_POSHTA_BREAKER_COOLDOWN", 30*time.Second),

		AddressResolutionMode: l.addressMode("ADDRESS_RESOLUTION_MODE"),
		OwnershipMaxPages:     l.integer("OWNERSHIP_MAX_PAGES", 5),
		PopularCities:         l.list("POPULAR_CITIES", defaultPopularCities),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: l.list("CORS_ORIGINS", []string{"*"}),

		RedisURL:    os.Getenv("REDIS_URL"),
		GeoCacheTTL: l.duration("GEO_CACHE_TTL", 10*time.Minute),
		LockTTL:     l.duration("REPAIR_LOCK_TTL", 0),

		R2AccountID: os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKey: os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2Bucket:    os.Getenv("R2_BUCKET"),

		LogLevel: l.str("LOG_LEVEL", "info"),
	}
	cfg.fitRepairLock(logger)
	return cfg
}

// fitRepairLock bounds a repair by its slowest path, OwnershipMaxPages+2 API
// calls at the full timeout, and keeps the lock alive longer than that.
func (c *Config) fitRepairLock(logger *zap.Logger) {
	pages := c.OwnershipMaxPages
	if pages <= 0 {
		pages = 5
	}
	c.RepairTimeout = time.Duration(pages+2) * c.NovaPoshtaTimeout
	minTTL := c.RepairTimeout + lockTTLMargin
	switch {
	case c.LockTTL == 0:
		c.LockTTL = minTTL
	case c.LockTTL < minTTL:
		logger.Warn("REPAIR_LOCK_TTL shorter than the slowest repair, raising it",
			zap.Duration("configured", c.LockTTL),
			zap.Duration("using", minTTL))
		c.LockTTL = minTTL
	}
}

// R2Enabled reports whether TTN archiving is configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKey != "" && c.R2SecretKey != "" && c.R2Bucket != ""
}

type loader struct {
	logger *zap.Logger
}

func (l loader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (l loader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		l.logger.Warn("invalid integer, using default", zap.String("key", key), zap.String("value", v), zap.Int("default", def))
		return def
	}
	return n
}

func (l loader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		l.logger.Warn("invalid duration, using default", zap.String("key", key), zap.String("value", v), zap.Duration("default", def))
		return def
	}
	return d
}

func (l loader) list(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (l loader) addressMode(key string) string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return AddressReuseExisting
	case AddressReuseExisting, AddressBranchRef, AddressCreateNew:
		return v
	}
	l.logger.Warn("unknown address resolution mode, using default", zap.String("value", v))
	return AddressReuseExisting
}
