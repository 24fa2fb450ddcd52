// README: Config loader: optional .env file, then WAYFARER_* environment variables with defaults.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type HTTPConfig struct {
	Addr string
}

type AIConfig struct {
	GeminiKey       string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
}

type ExamplesConfig struct {
	CacheCapacity    int
	ExamplesPerEntry int
	TopK             int
	// Scoring selects the similarity weights: "balanced" or "profile".
	Scoring string
}

type Config struct {
	Env  string
	HTTP HTTPConfig
	DB   struct {
		// Empty DSN keeps history and quota in memory.
		DSN           string
		MigrationsDir string
	}
	Redis struct {
		Addr        string
		SnapshotKey string
	}
	AI       AIConfig
	Examples ExamplesConfig
	Maps     struct {
		APIKey string
	}
	Firebase struct {
		ProjectID       string
		CredentialsFile string
	}
	ResponseCacheTTL time.Duration
	MonthlyRequests  int
	LogFile          string
}

// AuthEnabled reports whether Firebase token verification is configured.
func (c Config) AuthEnabled() bool { return c.Firebase.ProjectID != "" }

func (c Config) IsProduction() bool { return c.Env == "production" }

// Load reads configuration. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	cfg.Env = strings.ToLower(envOrDefault("WAYFARER_ENV", "development"))
	cfg.HTTP.Addr = envOrDefault("WAYFARER_HTTP_ADDR", ":8080")
	cfg.DB.DSN = os.Getenv("WAYFARER_DB_DSN")
	cfg.DB.MigrationsDir = envOrDefault("WAYFARER_MIGRATIONS_DIR", "migrations")
	cfg.Redis.Addr = os.Getenv("WAYFARER_REDIS_ADDR")
	cfg.Redis.SnapshotKey = envOrDefault("WAYFARER_REDIS_SNAPSHOT_KEY", "wayfarer:example-cache")

	cfg.AI.GeminiKey = os.Getenv("GEMINI_API_KEY")
	cfg.AI.Model = envOrDefault("WAYFARER_GEMINI_MODEL", "gemini-2.5-flash")
	cfg.AI.Temperature = envOrDefaultFloat("WAYFARER_TEMPERATURE", 0.3)
	cfg.AI.MaxOutputTokens = envOrDefaultInt("WAYFARER_MAX_OUTPUT_TOKENS", 2048)
	cfg.AI.Timeout = envOrDefaultDuration("WAYFARER_AI_TIMEOUT", 60*time.Second)

	cfg.Examples.CacheCapacity = envOrDefaultInt("WAYFARER_CACHE_CAPACITY", 50)
	cfg.Examples.ExamplesPerEntry = envOrDefaultInt("WAYFARER_CACHE_EXAMPLES", 5)
	cfg.Examples.TopK = envOrDefaultInt("WAYFARER_TOP_K", 3)
	cfg.Examples.Scoring = strings.ToLower(envOrDefault("WAYFARER_SCORING", "balanced"))

	cfg.Maps.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Firebase.ProjectID = os.Getenv("WAYFARER_FIREBASE_PROJECT_ID")
	cfg.Firebase.CredentialsFile = os.Getenv("WAYFARER_FIREBASE_CREDENTIALS")

	cfg.ResponseCacheTTL = envOrDefaultDuration("WAYFARER_RESPONSE_CACHE_TTL", time.Hour)
	cfg.MonthlyRequests = envOrDefaultInt("WAYFARER_MONTHLY_REQUESTS", 0)
	cfg.LogFile = os.Getenv("WAYFARER_LOG_FILE")

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if c.AI.GeminiKey == "" {
		errs = append(errs, errors.New("environment variable GEMINI_API_KEY is required"))
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		errs = append(errs, errors.New("WAYFARER_TEMPERATURE must be within [0,2]"))
	}
	if c.Examples.CacheCapacity <= 0 || c.Examples.ExamplesPerEntry <= 0 || c.Examples.TopK <= 0 {
		errs = append(errs, errors.New("cache capacity, examples per entry and top k must be positive"))
	}
	if c.Examples.Scoring != "balanced" && c.Examples.Scoring != "profile" {
		errs = append(errs, errors.New("WAYFARER_SCORING must be balanced or profile"))
	}
	if c.MonthlyRequests < 0 {
		errs = append(errs, errors.New("WAYFARER_MONTHLY_REQUESTS must not be negative"))
	}
	return errors.Join(errs...)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
