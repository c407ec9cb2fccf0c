package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	walletConsent "github.com/MrEthical07/walletConsent"
	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
)

type wallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func main() {
	var (
		wallets     = flag.Int("wallets", 2000, "number of wallets to generate")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (auth + consent)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *wallets <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "wallets, concurrency, and ops must be > 0")
		os.Exit(2)
	}
	if *wallets < *concurrency {
		fmt.Fprintln(os.Stderr, "wallets must be >= concurrency")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	registry := &syntheticRegistry{}

	cfg := walletConsent.DefaultConfig()
	cfg.Challenge.Domain = "loadtest.local"
	cfg.Challenge.URI = "https://loadtest.local/auth"
	cfg.JWT.Secret = []byte("loadtest-secret-0123456789abcdef")
	cfg.Metrics.Enabled = true

	engine, err := walletConsent.New().
		WithConfig(cfg).
		WithRedis(client).
		WithAssetRegistry(registry).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("generating %d wallets...\n", *wallets)
	startGen := time.Now()
	pool := make([]wallet, *wallets)
	for i := range pool {
		key, err := crypto.GenerateKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "key generation failed: %v\n", err)
			os.Exit(1)
		}
		pool[i] = wallet{
			key:     key,
			address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		}
	}
	registry.pool = pool
	fmt.Printf("generated in %s\n", time.Since(startGen).Round(time.Millisecond))

	authStats := runAuthPhase(ctx, engine, pool, *ops, *concurrency)
	consentStats := runConsentPhase(ctx, engine, pool, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("auth", authStats)
	printStats("consent", consentStats)
}

// runAuthPhase measures the full challenge round trip: issue, sign with the
// wallet key, verify, receive a token.
func runAuthPhase(ctx context.Context, engine *walletConsent.Engine, pool []wallet, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				// Workers own disjoint wallet slices so concurrent challenges
				// for one address never interleave.
				idx := worker + concurrency*r.Intn(1+(len(pool)-1-worker)/concurrency)

				t0 := time.Now()
				err := authRoundTrip(ctx, engine, pool[idx])
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func authRoundTrip(ctx context.Context, engine *walletConsent.Engine, w wallet) error {
	challenge, err := engine.IssueChallenge(ctx, w.address, 1)
	if err != nil {
		return err
	}
	signature, err := signPersonal(challenge.Message, w.key)
	if err != nil {
		return err
	}
	_, err = engine.VerifyChallenge(ctx, w.address, signature)
	return err
}

// runConsentPhase measures consent creation plus the owner response. Each op
// uses a fresh dataset/algorithm DID pair so no two ops collide on the
// pair-uniqueness key.
func runConsentPhase(ctx context.Context, engine *walletConsent.Engine, pool []wallet, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				solicitor := pool[r.Intn(len(pool))]
				ownerIdx := r.Intn(len(pool))

				t0 := time.Now()
				err := consentRoundTrip(ctx, engine, solicitor.address, pool[ownerIdx].address, i, r.Intn(8))
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func consentRoundTrip(ctx context.Context, engine *walletConsent.Engine, solicitor, datasetOwner string, op, grant int) error {
	datasetDID := fmt.Sprintf("did:op:load-ds-%s-%d", datasetOwner, op)
	algorithmDID := fmt.Sprintf("did:op:load-alg-%d", op)

	view, _, err := engine.CreateConsent(ctx, solicitor, datasetDID, algorithmDID, 7, "load test")
	if err != nil {
		return err
	}
	_, err = engine.Respond(ctx, datasetOwner, view.ID, grant, "load test response")
	return err
}

func signPersonal(message string, key *ecdsa.PrivateKey) (string, error) {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	digest := crypto.Keccak256([]byte(prefixed))
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}

// syntheticRegistry maps the generated load-test DIDs back to wallet
// addresses without a metadata cache round trip. Dataset DIDs embed their
// owner address; algorithm DIDs all resolve to the first wallet.
type syntheticRegistry struct {
	pool []wallet
}

func (s *syntheticRegistry) ResolveOwner(_ context.Context, did string) (string, error) {
	const datasetPrefix = "did:op:load-ds-"
	if rest, ok := strings.CutPrefix(did, datasetPrefix); ok && len(rest) >= 42 {
		return rest[:42], nil
	}
	if len(s.pool) > 0 {
		return s.pool[0].address, nil
	}
	return "", fmt.Errorf("asset not found: %s", did)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
