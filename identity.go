package walletConsent

import (
	"context"
	"time"

	"github.com/MrEthical07/walletConsent/internal/stores"
	"github.com/redis/go-redis/v9"
)

// redisIdentityProvider is the default IdentityProvider, backed by the
// Redis identity store. It is wired automatically when the Builder receives
// no provider.
type redisIdentityProvider struct {
	store *stores.IdentityStore
}

func newRedisIdentityProvider(client redis.UniversalClient, prefix string) *redisIdentityProvider {
	return &redisIdentityProvider{
		store: stores.NewIdentityStore(client, prefix),
	}
}

func (p *redisIdentityProvider) GetOrCreate(ctx context.Context, address string) (Identity, bool, error) {
	record, created, err := p.store.GetOrCreate(ctx, address, time.Now().Unix())
	if err != nil {
		return Identity{}, false, err
	}

	return Identity{
		Address:   record.Address,
		FirstSeen: time.Unix(record.FirstSeen, 0).UTC(),
	}, created, nil
}
