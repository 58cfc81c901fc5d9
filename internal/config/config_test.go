package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CERVES_JWT_SECRET", "0123456789abcdef0123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DBPath != "cerves.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "cerves.db")
	}
	if cfg.WeeklyGoalLiters != 8.0 {
		t.Errorf("WeeklyGoalLiters = %v, want 8", cfg.WeeklyGoalLiters)
	}
	if cfg.TokenTTL != 30*24*time.Hour {
		t.Errorf("TokenTTL = %v, want 720h", cfg.TokenTTL)
	}
	if cfg.InvitationTTL != 14*24*time.Hour {
		t.Errorf("InvitationTTL = %v, want 336h", cfg.InvitationTTL)
	}
	if cfg.PushEnabled() {
		t.Error("push should be disabled without VAPID keys")
	}
	if cfg.BackupEnabled() {
		t.Error("backup should be disabled without S3 settings")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CERVES_JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("CERVES_PORT", "9000")
	t.Setenv("CERVES_WEEKLY_GOAL_LITERS", "10.5")
	t.Setenv("CERVES_INVITATION_TTL", "48h")
	t.Setenv("CERVES_VAPID_PUBLIC_KEY", "pub")
	t.Setenv("CERVES_VAPID_PRIVATE_KEY", "priv")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9000")
	}
	if cfg.WeeklyGoalLiters != 10.5 {
		t.Errorf("WeeklyGoalLiters = %v, want 10.5", cfg.WeeklyGoalLiters)
	}
	if cfg.InvitationTTL != 48*time.Hour {
		t.Errorf("InvitationTTL = %v, want 48h", cfg.InvitationTTL)
	}
	if !cfg.PushEnabled() {
		t.Error("push should be enabled with both VAPID keys")
	}
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv("CERVES_JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("expected error without JWT secret")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("CERVES_JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("CERVES_TOKEN_TTL", "forever")

	if _, err := Load(); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestValidateBackupHour(t *testing.T) {
	cfg := Config{JWTSecret: "0123456789abcdef0123", WeeklyGoalLiters: 8, BackupHour: 24}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for backup hour 24")
	}
}

func TestLoadAllowedOrigins(t *testing.T) {
	t.Setenv("CERVES_JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("CERVES_ALLOWED_ORIGINS", "cerves.app, *.cerves.app ,,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "cerves.app" || cfg.AllowedOrigins[1] != "*.cerves.app" {
		t.Errorf("AllowedOrigins = %q", cfg.AllowedOrigins)
	}
}
