package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Setenv("POSTGRES_USER", "haus")
	t.Setenv("POSTGRES_PASSWORD", "haus")
	t.Setenv("POSTGRES_DB", "hausd")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestNewDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Fatalf("server defaults = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != 24 {
		t.Fatalf("token ttl default = %d, want 24", cfg.Auth.TokenTTL)
	}
	if cfg.Platform.DefaultFeeRate != 100 {
		t.Fatalf("fee rate default = %d, want 100", cfg.Platform.DefaultFeeRate)
	}
	if cfg.Platform.ContentBaseURI == "" {
		t.Fatal("content base URI default must not be empty")
	}
}

func TestNewMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	if _, err := New(); err == nil {
		t.Fatal("want error when JWT_SECRET is missing")
	}
}

func TestNewOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PLATFORM_FEE_RATE", "250")
	t.Setenv("TOKEN_TTL_HOURS", "1")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Platform.DefaultFeeRate != 250 {
		t.Fatalf("fee rate = %d, want 250", cfg.Platform.DefaultFeeRate)
	}
	if cfg.Auth.TokenTTL != 1 {
		t.Fatalf("token ttl = %d, want 1", cfg.Auth.TokenTTL)
	}

	if _, err := New(); err != nil {
		t.Fatalf("reload: %v", err)
	}
}

func TestNewInvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "not-a-port")

	if _, err := New(); err == nil {
		t.Fatal("want error for invalid SERVER_PORT")
	}
}
