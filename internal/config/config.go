package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string

	// AllowedOrigins are host patterns accepted on websocket upgrades.
	// Empty accepts any origin.
	AllowedOrigins []string

	JWTSecret  string
	TokenTTL   time.Duration
	AdminToken string

	WeeklyGoalLiters float64
	InvitationTTL    time.Duration

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	S3Endpoint  string
	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string

	BackupPassphrase    string
	BackupHour          int
	BackupRetentionDays int
}

// Load reads an optional .env file and then the CERVES_* environment variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:      getEnv("CERVES_PORT", "8080"),
		DBPath:    getEnv("CERVES_DB_PATH", "cerves.db"),
		LogLevel:  getEnv("CERVES_LOG_LEVEL", "info"),
		LogFormat: getEnv("CERVES_LOG_FORMAT", "text"),

		AllowedOrigins: splitList(os.Getenv("CERVES_ALLOWED_ORIGINS")),

		JWTSecret:  os.Getenv("CERVES_JWT_SECRET"),
		AdminToken: os.Getenv("CERVES_ADMIN_TOKEN"),

		VAPIDPublicKey:  os.Getenv("CERVES_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("CERVES_VAPID_PRIVATE_KEY"),
		VAPIDSubscriber: getEnv("CERVES_VAPID_SUBSCRIBER", "mailto:noreply@cerves.app"),

		S3Endpoint:  os.Getenv("CERVES_S3_ENDPOINT"),
		S3Bucket:    os.Getenv("CERVES_S3_BUCKET"),
		S3Region:    getEnv("CERVES_S3_REGION", "auto"),
		S3AccessKey: os.Getenv("CERVES_S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("CERVES_S3_SECRET_KEY"),

		BackupPassphrase: os.Getenv("CERVES_BACKUP_PASSPHRASE"),
	}

	var err error
	if cfg.TokenTTL, err = getDuration("CERVES_TOKEN_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.InvitationTTL, err = getDuration("CERVES_INVITATION_TTL", 14*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.WeeklyGoalLiters, err = getFloat("CERVES_WEEKLY_GOAL_LITERS", 8.0); err != nil {
		return Config{}, err
	}
	if cfg.BackupHour, err = getInt("CERVES_BACKUP_HOUR", 4); err != nil {
		return Config{}, err
	}
	if cfg.BackupRetentionDays, err = getInt("CERVES_BACKUP_RETENTION_DAYS", 30); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that would leave the server unusable.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("CERVES_JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("CERVES_JWT_SECRET must be at least 16 characters")
	}
	if c.WeeklyGoalLiters <= 0 {
		return errors.New("CERVES_WEEKLY_GOAL_LITERS must be positive")
	}
	if c.BackupHour < 0 || c.BackupHour > 23 {
		return errors.New("CERVES_BACKUP_HOUR must be between 0 and 23")
	}
	return nil
}

// PushEnabled reports whether both VAPID keys are configured.
func (c Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// BackupEnabled reports whether S3 credentials and a passphrase are configured.
func (c Config) BackupEnabled() bool {
	return c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != "" && c.BackupPassphrase != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return f, nil
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
