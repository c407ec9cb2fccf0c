package walletConsent

import (
	"context"
	"time"

	"github.com/MrEthical07/walletConsent/internal/stores"
	"github.com/MrEthical07/walletConsent/jwt"
	"github.com/MrEthical07/walletConsent/permission"
)

// Engine defines a public type used by walletConsent APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config     Config
	registry   *permission.Registry
	codec      *permission.Codec
	nonceStore *stores.NonceStore
	store      *stores.ConsentStore
	identity   IdentityProvider
	assets     AssetRegistry
	jwtManager *jwt.Manager
	audit      *auditDispatcher
	metrics    *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Flags returns the registered permission flag names in bit order.
func (e *Engine) Flags() []string {
	if e == nil || e.registry == nil {
		return nil
	}
	return e.registry.Names()
}

// ValidateToken parses and validates a wallet access token, returning the
// checksummed subject address and chain id.
func (e *Engine) ValidateToken(ctx context.Context, token string) (string, uint64, error) {
	if e == nil || e.jwtManager == nil {
		return "", 0, ErrEngineNotReady
	}
	_ = ctx

	claims, err := e.jwtManager.ParseAccess(token)
	if err != nil {
		return "", 0, ErrTokenInvalid
	}

	return claims.Subject, claims.ChainID, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}
