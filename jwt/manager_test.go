package jwt

import (
	"testing"
	"time"
)

const testAddress = "0xD999bAaE98AC5246568FD726be8832c49626867D"

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()

	if cfg.Secret == nil {
		cfg.Secret = []byte("0123456789abcdef0123456789abcdef")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 5 * time.Minute
	}

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestNewManagerValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero ttl", Config{Secret: []byte("s")}},
		{"negative ttl", Config{Secret: []byte("s"), AccessTTL: -time.Minute}},
		{"missing secret", Config{AccessTTL: time.Minute}},
		{"excessive leeway", Config{Secret: []byte("s"), AccessTTL: time.Minute, Leeway: 3 * time.Minute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewManager(tt.cfg); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}

func TestCreateAndParseAccess(t *testing.T) {
	m := newTestManager(t, Config{Issuer: "walletConsent", Audience: "consents-api"})

	token, err := m.CreateAccess(testAddress, 32457)
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}

	if claims.Subject != testAddress {
		t.Fatalf("subject = %s, want %s", claims.Subject, testAddress)
	}
	if claims.ChainID != 32457 {
		t.Fatalf("chain id = %d, want 32457", claims.ChainID)
	}
	if claims.Scope != ScopeWalletAuth {
		t.Fatalf("scope = %s, want %s", claims.Scope, ScopeWalletAuth)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
		t.Fatal("token must carry a future expiry")
	}
}

func TestParseAccessRejectsForeignSecret(t *testing.T) {
	issuing := newTestManager(t, Config{Secret: []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")})
	verifying := newTestManager(t, Config{Secret: []byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")})

	token, err := issuing.CreateAccess(testAddress, 1)
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}

	if _, err := verifying.ParseAccess(token); err == nil {
		t.Fatal("token signed with a different secret must not parse")
	}
}

func TestParseAccessRejectsExpired(t *testing.T) {
	m := newTestManager(t, Config{AccessTTL: time.Millisecond})

	token, err := m.CreateAccess(testAddress, 1)
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expired token must not parse")
	}
}

func TestParseAccessRejectsWrongIssuer(t *testing.T) {
	issuing := newTestManager(t, Config{Issuer: "other-service"})
	verifying := newTestManager(t, Config{Issuer: "walletConsent"})

	token, err := issuing.CreateAccess(testAddress, 1)
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}

	if _, err := verifying.ParseAccess(token); err == nil {
		t.Fatal("token with foreign issuer must not parse")
	}
}
