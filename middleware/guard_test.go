package middleware

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	walletConsent "github.com/MrEthical07/walletConsent"
	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
)

const guardTestKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

type emptyRegistry struct{}

func (emptyRegistry) ResolveOwner(context.Context, string) (string, error) {
	return "", context.Canceled
}

func guardTestToken(t *testing.T) (*walletConsent.Engine, string, string) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := walletConsent.Config{
		Challenge: walletConsent.ChallengeConfig{
			Domain:         "consents.example.org",
			URI:            "https://consents.example.org/auth",
			Version:        "1",
			DefaultChainID: 32457,
			NonceTTL:       15 * time.Minute,
		},
		JWT: walletConsent.JWTConfig{
			Secret:    []byte("test-secret-at-least-32-bytes-long!!"),
			AccessTTL: 30 * time.Minute,
		},
		Flags: walletConsent.FlagConfig{
			Flags: []string{"trusted_algorithm"},
		},
	}

	engine, err := walletConsent.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAssetRegistry(emptyRegistry{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	key, err := crypto.HexToECDSA(guardTestKey)
	if err != nil {
		t.Fatalf("HexToECDSA failed: %v", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	ctx := context.Background()
	challenge, err := engine.IssueChallenge(ctx, address, 0)
	if err != nil {
		t.Fatalf("IssueChallenge failed: %v", err)
	}

	prefixed := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(challenge.Message)) + challenge.Message
	sig, err := crypto.Sign(crypto.Keccak256([]byte(prefixed)), key)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	sig[64] += 27

	result, err := engine.VerifyChallenge(ctx, address, "0x"+hex.EncodeToString(sig))
	if err != nil {
		t.Fatalf("VerifyChallenge failed: %v", err)
	}

	return engine, result.AccessToken, address
}

func TestGuardInjectsWallet(t *testing.T) {
	engine, token, address := guardTestToken(t)

	var seen Wallet
	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := WalletFromContext(r.Context())
		if !ok {
			t.Fatal("expected wallet in context")
		}
		seen = wallet
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/consents", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if seen.Address != address || seen.ChainID != 32457 {
		t.Fatalf("unexpected wallet: %+v", seen)
	}
}

func TestGuardRejects(t *testing.T) {
	engine, token, _ := guardTestToken(t)

	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic " + token},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/consents", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}
