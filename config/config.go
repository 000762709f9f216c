package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	GeminiAPIKey string
	GeminiModel  string
	AITimeoutSec int

	NominatimURL       string
	GeocodeCountry     string
	GeocodeCacheTTLMin int

	RateLimitMs    int
	MaxRetries     int
	MaxPages       int
	PageTimeoutSec int

	DirectoryBaseURL string
	MapsBaseURL      string
	UserAgent        string
	ChromeBin        string

	CSVOutputPath string
	LogLevel      string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "repairers"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "repairers"),
		PostgresDB:       getEnv("POSTGRES_DB", "repairers"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		AITimeoutSec: getEnvInt("AI_TIMEOUT_SEC", 20),

		NominatimURL:       getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		GeocodeCountry:     getEnv("GEOCODE_COUNTRY", "fr"),
		GeocodeCacheTTLMin: getEnvInt("GEOCODE_CACHE_TTL_MIN", 60),

		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 1000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		MaxPages:       getEnvInt("MAX_PAGES", 3),
		PageTimeoutSec: getEnvInt("PAGE_TIMEOUT_SEC", 60),

		DirectoryBaseURL: getEnv("DIRECTORY_BASE_URL", "https://www.pagesjaunes.fr"),
		MapsBaseURL:      getEnv("MAPS_BASE_URL", "https://www.google.com/maps"),
		UserAgent: getEnv("USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		ChromeBin: getEnv("CHROME_BIN", ""),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/processed_repairers.csv"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// RateLimit is the pause enforced between consecutive external calls.
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.RateLimitMs) * time.Millisecond
}

func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSec) * time.Second
}

func (c *Config) PageTimeout() time.Duration {
	return time.Duration(c.PageTimeoutSec) * time.Second
}

func (c *Config) GeocodeCacheTTL() time.Duration {
	return time.Duration(c.GeocodeCacheTTLMin) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
