package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Environment != defaultEnvironment || !cfg.IsDevelopment() {
		t.Fatalf("expected development environment, got %s", cfg.Environment)
	}
	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %d, got %d", defaultPort, cfg.Port)
	}
	if cfg.ShutdownTimeout != defaultShutdownTimeout {
		t.Fatalf("expected default shutdown timeout %s, got %s", defaultShutdownTimeout, cfg.ShutdownTimeout)
	}
	if cfg.MaxMessageBytes != defaultMaxMessageBytes {
		t.Fatalf("expected default message limit %d, got %d", defaultMaxMessageBytes, cfg.MaxMessageBytes)
	}
	if !cfg.HistoryRequiresFriendship {
		t.Fatal("expected history to require friendship by default")
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("expected no allowed origins, got %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "8081")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("HISTORY_REQUIRES_FRIENDSHIP", "false")
	t.Setenv("SHUTDOWN_TIMEOUT", "2s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.IsDevelopment() {
		t.Fatal("expected production environment")
	}
	if cfg.Port != 8081 {
		t.Fatalf("expected port 8081, got %d", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected two trimmed origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.HistoryRequiresFriendship {
		t.Fatal("expected env to disable the history friendship check")
	}
	if cfg.ShutdownTimeout != 2*time.Second {
		t.Fatalf("expected 2s shutdown timeout, got %s", cfg.ShutdownTimeout)
	}
}

func TestLoadConfigFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buddychat.yaml")
	if err := os.WriteFile(path, []byte(`
port: 4000
max_message_bytes: 100
event_burst: 5
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "4001")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 4001 {
		t.Fatalf("expected env override for port, got %d", cfg.Port)
	}
	if cfg.MaxMessageBytes != 100 {
		t.Fatalf("expected message limit from file, got %d", cfg.MaxMessageBytes)
	}
	if cfg.EventBurst != 5 {
		t.Fatalf("expected event burst from file, got %d", cfg.EventBurst)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PORT", "80"},
		{"MAX_MESSAGE_BYTES", "0"},
		{"EVENT_RATE", "-1"},
		{"SHUTDOWN_TIMEOUT", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			t.Setenv(tt.key, tt.value)

			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for missing config file")
		}
	})
}
