package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	SchedulerBackendTimer = "timer"
	SchedulerBackendRiver = "river"
)

type Config struct {
	DatabaseURL   string
	StorageDriver string
	JWTSecretKey  string
	ServerPort    int

	Tournament TournamentConfig
	Catalog    CatalogConfig
	Archive    ArchiveConfig

	CORSAllowedOrigins []string
	// VoteRateLimit is the number of vote requests allowed per member per minute.
	VoteRateLimit int
}

type TournamentConfig struct {
	Weekday            string
	Time               string
	Timezone           *time.Location
	StepTimeout        time.Duration
	ContendersPerMatch int
	RunOnStart         bool
	SchedulerBackend   string
}

type CatalogConfig struct {
	URL            string
	Timeout        time.Duration
	FallbackMovies []int64
}

// ArchiveConfig is optional. Enabled reports whether a bucket is configured.
type ArchiveConfig struct {
	AccountID       string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
	Prefix          string
}

func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// Load reads configuration from the environment. A .env file is loaded
// first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StorageDriver: getEnv("STORAGE_DRIVER", StorageDriverPostgres),
		JWTSecretKey:  os.Getenv("JWT_SECRET_KEY"),
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case StorageDriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q, want %q or %q", cfg.StorageDriver, StorageDriverPostgres, StorageDriverMemory)
	}

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := getInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	if cfg.Tournament, err = loadTournament(); err != nil {
		return nil, err
	}
	if cfg.Tournament.SchedulerBackend == SchedulerBackendRiver && cfg.StorageDriver != StorageDriverPostgres {
		return nil, fmt.Errorf("SCHEDULER_BACKEND=river requires STORAGE_DRIVER=postgres")
	}

	if cfg.Catalog, err = loadCatalog(); err != nil {
		return nil, err
	}
	if cfg.Catalog.URL == "" && len(cfg.Catalog.FallbackMovies) < cfg.Tournament.ContendersPerMatch {
		return nil, fmt.Errorf("either CATALOG_URL or at least %d CATALOG_FALLBACK_MOVIES must be set", cfg.Tournament.ContendersPerMatch)
	}

	cfg.Archive = ArchiveConfig{
		AccountID:       os.Getenv("ARCHIVE_ACCOUNT_ID"),
		Endpoint:        os.Getenv("ARCHIVE_ENDPOINT"),
		Region:          os.Getenv("ARCHIVE_REGION"),
		AccessKeyID:     os.Getenv("ARCHIVE_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("ARCHIVE_SECRET_ACCESS_KEY"),
		Bucket:          os.Getenv("ARCHIVE_BUCKET"),
		PublicBaseURL:   os.Getenv("ARCHIVE_PUBLIC_BASE_URL"),
		Prefix:          getEnv("ARCHIVE_PREFIX", "results"),
	}

	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	if cfg.VoteRateLimit, err = getInt("VOTE_RATE_LIMIT", 30); err != nil {
		return nil, err
	}
	if cfg.VoteRateLimit <= 0 {
		return nil, fmt.Errorf("VOTE_RATE_LIMIT must be positive, got %d", cfg.VoteRateLimit)
	}

	return cfg, nil
}

func loadTournament() (TournamentConfig, error) {
	tc := TournamentConfig{
		Weekday:          getEnv("TOURNAMENT_WEEKDAY", "monday"),
		Time:             getEnv("TOURNAMENT_TIME", "00:00"),
		SchedulerBackend: getEnv("SCHEDULER_BACKEND", SchedulerBackendTimer),
	}

	tzName := getEnv("TOURNAMENT_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return tc, fmt.Errorf("invalid TOURNAMENT_TIMEZONE %q: %w", tzName, err)
	}
	tc.Timezone = loc

	if tc.StepTimeout, err = getDuration("TOURNAMENT_STEP_TIMEOUT", 30*time.Second); err != nil {
		return tc, err
	}
	if tc.ContendersPerMatch, err = getInt("TOURNAMENT_CONTENDERS", 2); err != nil {
		return tc, err
	}
	if tc.ContendersPerMatch < 2 {
		return tc, fmt.Errorf("TOURNAMENT_CONTENDERS must be at least 2, got %d", tc.ContendersPerMatch)
	}
	if tc.RunOnStart, err = getBool("TOURNAMENT_RUN_ON_START", true); err != nil {
		return tc, err
	}

	switch tc.SchedulerBackend {
	case SchedulerBackendTimer, SchedulerBackendRiver:
	default:
		return tc, fmt.Errorf("invalid SCHEDULER_BACKEND %q, want %q or %q", tc.SchedulerBackend, SchedulerBackendTimer, SchedulerBackendRiver)
	}
	return tc, nil
}

func loadCatalog() (CatalogConfig, error) {
	cc := CatalogConfig{URL: os.Getenv("CATALOG_URL")}

	var err error
	if cc.Timeout, err = getDuration("CATALOG_TIMEOUT", 5*time.Second); err != nil {
		return cc, err
	}
	for _, raw := range splitList(os.Getenv("CATALOG_FALLBACK_MOVIES")) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return cc, fmt.Errorf("invalid movie ID %q in CATALOG_FALLBACK_MOVIES", raw)
		}
		cc.FallbackMovies = append(cc.FallbackMovies, id)
	}
	return cc, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
