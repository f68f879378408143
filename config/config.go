package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const DefaultBaseURL = "https://play.stays.net"

type Config struct {
	Stays     StaysConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	Fetch     FetchConfig
	Snapshot  SnapshotConfig
	Redis     RedisConfig
	Archive   ArchiveConfig
	S3        S3Config
	Proxy     ProxyConfig
	DBPath    string
	LogLevel  string
	LogFile   string
	Env       string
	Platforms *PlatformCatalog
}

// StaysConfig holds the upstream credentials. The env tag names the variable
// reported back when validation fails.
type StaysConfig struct {
	ClientID     string `env:"STAYS_CLIENT_ID" validate:"required"`
	ClientSecret string `env:"STAYS_CLIENT_SECRET" validate:"required"`
	BaseURL      string `env:"STAYS_API_BASE_URL" validate:"required,url"`
	ListingIDs   []string
}

type HTTPConfig struct {
	Addr string
}

type SchedulerConfig struct {
	Interval     time.Duration
	MidnightCron string
}

type FetchConfig struct {
	DaysBack     int
	DaysAhead    int
	BatchSize    int
	DetailDelay  time.Duration
	ListingDelay time.Duration
}

type SnapshotConfig struct {
	Backend string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ArchiveConfig struct {
	DatabaseURL string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

type ProxyConfig struct {
	URL string
}

// ConfigurationError lists the environment variables that are missing or
// unusable. The fetch pipeline never runs while one is present.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required environment variables: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid environment variables: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Stays: StaysConfig{
			ClientID:     os.Getenv("STAYS_CLIENT_ID"),
			ClientSecret: os.Getenv("STAYS_CLIENT_SECRET"),
			BaseURL:      strings.TrimRight(getEnv("STAYS_API_BASE_URL", DefaultBaseURL), "/"),
			ListingIDs:   splitList(os.Getenv("STAYS_LISTING_IDS")),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Scheduler: SchedulerConfig{
			Interval:     getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),
			MidnightCron: getEnv("MIDNIGHT_CRON", "0 0 * * *"),
		},
		Fetch: FetchConfig{
			DaysBack:     getEnvInt("FETCH_DAYS_BACK", 180),
			DaysAhead:    getEnvInt("FETCH_DAYS_AHEAD", 180),
			BatchSize:    getEnvInt("ENRICH_BATCH_SIZE", 10),
			DetailDelay:  time.Duration(getEnvInt("DETAIL_BATCH_DELAY_MS", 500)) * time.Millisecond,
			ListingDelay: time.Duration(getEnvInt("LISTING_BATCH_DELAY_MS", 200)) * time.Millisecond,
		},
		Snapshot: SnapshotConfig{
			Backend: getEnv("SNAPSHOT_BACKEND", "sqlite"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Archive: ArchiveConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			Prefix:          getEnv("S3_PREFIX", "snapshots"),
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("HTTP_PROXY_URL"),
		},
		DBPath:   getEnv("DB_PATH", "observer.db"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "daemon.log"),
		Env:      getEnv("ENV", "development"),
	}

	platforms, err := LoadPlatforms(getEnv("PLATFORMS_FILE", "config/platforms.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Platforms = platforms

	return cfg, nil
}

var validate = validator.New()

// Validate checks the upstream credentials. It returns a *ConfigurationError
// naming every offending variable, or nil.
func (c *StaysConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	cfgErr := &ConfigurationError{}
	t := reflect.TypeOf(*c)
	for _, fe := range verrs {
		name := fe.StructField()
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if env := f.Tag.Get("env"); env != "" {
				name = env
			}
		}
		if fe.Tag() == "required" {
			cfgErr.Missing = append(cfgErr.Missing, name)
		} else {
			cfgErr.Invalid = append(cfgErr.Invalid, name)
		}
	}
	return cfgErr
}

func (c *Config) Validate() error {
	return c.Stays.Validate()
}

// SnapshotKey is the fixed key the persisted booking snapshot lives under.
const SnapshotKey = "stays-observator-booking-data"

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
