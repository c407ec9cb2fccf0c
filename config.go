package walletConsent

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines a public type used by walletConsent APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Challenge ChallengeConfig
	JWT       JWTConfig
	Flags     FlagConfig
	Registry  RegistryConfig
	Store     StoreConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig defines a public type used by walletConsent APIs.
//
// ChallengeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChallengeConfig struct {
	Domain         string
	URI            string
	Statement      string
	Version        string
	DefaultChainID uint64
	NonceTTL       time.Duration
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by walletConsent APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	Secret    []byte
	AccessTTL time.Duration
	Issuer    string
	Audience  string
	Leeway    time.Duration
}

/*
====================================
FLAG CONFIG
====================================
*/

// FlagConfig defines a public type used by walletConsent APIs.
//
// FlagConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type FlagConfig struct {
	// Flags is the ordered, append-only permission flag list. Bit i of every
	// stored mask means Flags[i]; reordering or removing entries corrupts
	// persisted consents.
	Flags []string
}

/*
====================================
REGISTRY CONFIG
====================================
*/

// RegistryConfig defines a public type used by walletConsent APIs.
//
// RegistryConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RegistryConfig struct {
	BaseURL string
	Timeout time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig defines a public type used by walletConsent APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	NoncePrefix    string
	ConsentPrefix  string
	IdentityPrefix string
}

// AuditConfig defines a public type used by walletConsent APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by walletConsent APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration preset.
//
// The returned Config is not valid as-is: Challenge.Domain, Challenge.URI and
// JWT.Secret must still be set by the caller before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Challenge: ChallengeConfig{
			Version:        "1",
			DefaultChainID: 1,
			NonceTTL:       15 * time.Minute,
		},
		JWT: JWTConfig{
			AccessTTL: 30 * time.Minute,
		},
		Flags: FlagConfig{
			Flags: []string{
				"trusted_algorithm_publisher",
				"trusted_algorithm",
				"allow_network_access",
			},
		},
		Registry: RegistryConfig{
			Timeout: 10 * time.Second,
		},
		Store: StoreConfig{
			NoncePrefix:    "wcn",
			ConsentPrefix:  "wcc",
			IdentityPrefix: "wci",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	if len(cfg.Flags.Flags) > 0 {
		out.Flags.Flags = make([]string, len(cfg.Flags.Flags))
		copy(out.Flags.Flags, cfg.Flags.Flags)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Challenge
	if strings.TrimSpace(c.Challenge.Domain) == "" {
		return errors.New("Challenge Domain is required")
	}
	if strings.TrimSpace(c.Challenge.URI) == "" {
		return errors.New("Challenge URI is required")
	}
	if _, err := url.ParseRequestURI(c.Challenge.URI); err != nil {
		return errors.New("Challenge URI must be a valid URI")
	}
	if c.Challenge.Version != "1" {
		return errors.New("Challenge Version must be \"1\"")
	}
	if c.Challenge.DefaultChainID == 0 {
		return errors.New("Challenge DefaultChainID must be > 0")
	}
	if c.Challenge.NonceTTL <= 0 {
		return errors.New("Challenge NonceTTL must be > 0")
	}

	// JWT
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	// Flags
	if len(c.Flags.Flags) == 0 {
		return errors.New("Flags must contain at least one permission flag")
	}
	seen := make(map[string]struct{}, len(c.Flags.Flags))
	for _, flag := range c.Flags.Flags {
		if strings.TrimSpace(flag) == "" {
			return errors.New("Flags must not contain empty names")
		}
		if _, dup := seen[flag]; dup {
			return errors.New("Flags must not contain duplicates")
		}
		seen[flag] = struct{}{}
	}
	if len(c.Flags.Flags) > 64 {
		return errors.New("Flags must not exceed 64 entries")
	}

	// Registry
	if c.Registry.Timeout < 0 {
		return errors.New("Registry Timeout must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
