package walletConsent

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing domain", func(c *Config) { c.Challenge.Domain = " " }, "Domain"},
		{"missing uri", func(c *Config) { c.Challenge.URI = "" }, "URI"},
		{"malformed uri", func(c *Config) { c.Challenge.URI = "not a uri" }, "URI"},
		{"bad version", func(c *Config) { c.Challenge.Version = "2" }, "Version"},
		{"zero chain id", func(c *Config) { c.Challenge.DefaultChainID = 0 }, "DefaultChainID"},
		{"zero nonce ttl", func(c *Config) { c.Challenge.NonceTTL = 0 }, "NonceTTL"},
		{"missing secret", func(c *Config) { c.JWT.Secret = nil }, "Secret"},
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }, "AccessTTL"},
		{"negative leeway", func(c *Config) { c.JWT.Leeway = -1 }, "Leeway"},
		{"no flags", func(c *Config) { c.Flags.Flags = nil }, "Flags"},
		{"empty flag name", func(c *Config) { c.Flags.Flags = []string{"a", " "} }, "empty"},
		{"duplicate flags", func(c *Config) { c.Flags.Flags = []string{"a", "a"} }, "duplicates"},
		{"audit buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }, "BufferSize"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigPresetValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Challenge.Domain = "consents.example.org"
	cfg.Challenge.URI = "https://consents.example.org/auth"
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default preset with required fields should validate, got %v", err)
	}
}

func TestConfigCloneIsolation(t *testing.T) {
	cfg := testConfig()
	clone := cloneConfig(cfg)

	cfg.JWT.Secret[0] ^= 0xFF
	cfg.Flags.Flags[0] = "mutated"

	if clone.JWT.Secret[0] == cfg.JWT.Secret[0] {
		t.Fatal("clone must not share the JWT secret backing array")
	}
	if clone.Flags.Flags[0] == "mutated" {
		t.Fatal("clone must not share the flag slice backing array")
	}
}

func TestBuilderRequiresRedis(t *testing.T) {
	_, err := New().WithConfig(testConfig()).Build()
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected redis requirement error, got %v", err)
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	builder := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithAssetRegistry(&staticRegistry{owners: map[string]string{}})

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderRequiresAssetRegistry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	_, err := New().WithConfig(testConfig()).WithRedis(rdb).Build()
	if err == nil || !strings.Contains(err.Error(), "asset registry") {
		t.Fatalf("expected asset registry requirement error, got %v", err)
	}
}

func TestBuilderFreezesFlagRegistry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, rdb, nil)

	flags := engine.Flags()
	want := []string{"trusted_algorithm_publisher", "trusted_algorithm", "allow_network_access"}
	if len(flags) != len(want) {
		t.Fatalf("expected %d flags, got %d", len(want), len(flags))
	}
	for i, name := range want {
		if flags[i] != name {
			t.Fatalf("flag %d: expected %q, got %q", i, name, flags[i])
		}
	}
}
