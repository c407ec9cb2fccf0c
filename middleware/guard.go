package middleware

import (
	"context"
	"net/http"
	"strings"

	walletConsent "github.com/MrEthical07/walletConsent"
)

// Wallet is the authenticated identity injected by [Guard].
type Wallet struct {
	Address string
	ChainID uint64
}

type walletContextKey struct{}

func WalletFromContext(ctx context.Context) (Wallet, bool) {
	wallet, ok := ctx.Value(walletContextKey{}).(Wallet)
	return wallet, ok
}

func Guard(engine *walletConsent.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			address, chainID, err := engine.ValidateToken(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), walletContextKey{}, Wallet{
				Address: address,
				ChainID: chainID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
