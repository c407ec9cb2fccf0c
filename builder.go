package walletConsent

import (
	"errors"

	"github.com/MrEthical07/walletConsent/aquarius"
	"github.com/MrEthical07/walletConsent/internal/stores"
	"github.com/MrEthical07/walletConsent/jwt"
	"github.com/MrEthical07/walletConsent/permission"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by walletConsent APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	assets    AssetRegistry
	identity  IdentityProvider
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithAssetRegistry describes the withassetregistry operation and its observable behavior.
//
// WithAssetRegistry may return an error when input validation, dependency calls, or security checks fail.
// WithAssetRegistry does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAssetRegistry(registry AssetRegistry) *Builder {
	b.assets = registry
	return b
}

// WithIdentityProvider describes the withidentityprovider operation and its observable behavior.
//
// WithIdentityProvider may return an error when input validation, dependency calls, or security checks fail.
// WithIdentityProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithIdentityProvider(provider IdentityProvider) *Builder {
	b.identity = provider
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- FLAG REGISTRY --------
	registry := permission.NewRegistry()
	for _, flag := range cfg.Flags.Flags {
		if _, err := registry.Register(flag); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	// -------- ASSET REGISTRY --------
	assets := b.assets
	if assets == nil {
		if cfg.Registry.BaseURL == "" {
			return nil, errors.New("asset registry required: set Registry.BaseURL or inject WithAssetRegistry")
		}
		client, err := aquarius.New(cfg.Registry.BaseURL, cfg.Registry.Timeout)
		if err != nil {
			return nil, err
		}
		assets = client
	}

	// -------- IDENTITY PROVIDER --------
	identity := b.identity
	if identity == nil {
		identity = newRedisIdentityProvider(b.redis, cfg.Store.IdentityPrefix)
	}

	engine := &Engine{
		config:     cfg,
		registry:   registry,
		codec:      permission.NewCodec(registry),
		nonceStore: stores.NewNonceStore(b.redis, cfg.Store.NoncePrefix),
		store:      stores.NewConsentStore(b.redis, cfg.Store.ConsentPrefix),
		identity:   identity,
		assets:     assets,
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL: cfg.JWT.AccessTTL,
		Secret:    cloneBytes(cfg.JWT.Secret),
		Issuer:    cfg.JWT.Issuer,
		Audience:  cfg.JWT.Audience,
		Leeway:    cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
