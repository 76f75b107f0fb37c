package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultSessionSecret is the development placeholder for SESSION_SECRET.
const DefaultSessionSecret = "change-me-in-production-32-bytes!"

type Config struct {
	ListenAddr     string
	DataDir        string
	BaseURL        string
	SessionSecret  string
	LogLevel       string
	MaxUploadBytes int64
	AllowedTypes   []string

	DBBackend  string // "sqlite" or "turso"
	TursoURL   string
	TursoToken string

	BackupRetentionDays     int
	AutoBackupIntervalDays  int
	MaintenanceIntervalMins int
	BackupAsync             bool
	WorkerCount             int

	APIRatePerMin int
	DiskBlockPct  float64

	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Real environment variables win over .env.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config: load .env", "error", err)
	}

	tursoURL := os.Getenv("TURSO_DATABASE_URL")
	backend := "sqlite"
	if tursoURL != "" {
		backend = "turso"
	}

	return &Config{
		ListenAddr:     envOr("LISTEN_ADDR", ":8080"),
		DataDir:        envOr("DATA_DIR", "./data"),
		BaseURL:        strings.TrimRight(envOr("BASE_URL", "http://localhost:8080"), "/"),
		SessionSecret:  envOr("SESSION_SECRET", DefaultSessionSecret),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		MaxUploadBytes: envInt64Or("MAX_UPLOAD_BYTES", 5*1024*1024),
		AllowedTypes:   envListOr("ALLOWED_TYPES", []string{"jpg", "jpeg", "png", "gif"}),

		DBBackend:  envOr("DB_BACKEND", backend),
		TursoURL:   tursoURL,
		TursoToken: os.Getenv("TURSO_AUTH_TOKEN"),

		BackupRetentionDays:     envIntOr("BACKUP_RETENTION_DAYS", 30),
		AutoBackupIntervalDays:  envIntOr("AUTO_BACKUP_INTERVAL_DAYS", 7),
		MaintenanceIntervalMins: envIntOr("MAINTENANCE_INTERVAL_MINS", 60),
		BackupAsync:             envBoolOr("BACKUP_ASYNC", false),
		WorkerCount:             envIntOr("WORKER_COUNT", 1),

		APIRatePerMin: envIntOr("API_RATE_PER_MIN", 120),
		DiskBlockPct:  envFloatOr("DISK_BLOCK_PCT", 1),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3Region:    envOr("S3_REGION", "auto"),
	}
}

// S3Enabled reports whether completed backups should be mirrored off-site.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envListOr(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, strings.TrimPrefix(part, "."))
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
