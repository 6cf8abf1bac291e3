package config

import (
	"log"
	"os"
	"strconv"
	"strings"
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
	DatabaseURL      string
	StorageDriver    string
	MaxRetries       int

	BaseURL        string
	ListArea       string
	ListCategory   string
	UserAgent      string
	AcceptLanguage string
	Locale         string

	ListTimeout      time.Duration
	NavTimeout       time.Duration
	LabelTimeout     time.Duration
	TabSettle        time.Duration
	DelayMin         time.Duration
	DelayMax         time.Duration
	PreferSeedPoster bool

	CSVOutputPath string
	ChromeBin     string
	Headless      bool

	ServerPort int
	LogDev     bool
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "relocal"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "relocal"),
		PostgresDB:       getEnv("POSTGRES_DB", "re_local"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
		MaxRetries:       getEnvInt("MAX_RETRIES", 10),

		BaseURL:        strings.TrimRight(getEnv("BASE_URL", "https://timeticket.co.kr"), "/"),
		ListArea:       getEnv("LIST_AREA", "114"),
		ListCategory:   getEnv("LIST_CATEGORY", "2096r01"),
		UserAgent:      getEnv("USER_AGENT", defaultUserAgent),
		AcceptLanguage: getEnv("ACCEPT_LANGUAGE", "ko,en;q=0.8"),
		Locale:         getEnv("LOCALE", "ko-KR"),

		ListTimeout:      getEnvDuration("LIST_TIMEOUT", 15*time.Second),
		NavTimeout:       getEnvDuration("NAV_TIMEOUT", 30*time.Second),
		LabelTimeout:     getEnvDuration("LABEL_TIMEOUT", 400*time.Millisecond),
		TabSettle:        getEnvDuration("TAB_SETTLE", 300*time.Millisecond),
		DelayMin:         getEnvDuration("DELAY_MIN", 250*time.Millisecond),
		DelayMax:         getEnvDuration("DELAY_MAX", 900*time.Millisecond),
		PreferSeedPoster: getEnvBool("PREFER_SEED_POSTER", false),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/seeds.csv"),
		ChromeBin:     getEnv("CHROME_BIN", ""),
		Headless:      getEnvBool("HEADLESS", true),

		ServerPort: getEnvInt("PORT", 4000),
		LogDev:     getEnvBool("LOG_DEV", true),
	}
}

// DSN returns the PostgreSQL connection string. DATABASE_URL wins when set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// ListURL returns the listing page for the configured area and category codes.
func (c *Config) ListURL() string {
	return c.BaseURL + "/list.php?area=" + c.ListArea + "&category=" + c.ListCategory
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

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("400ms") or bare milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
