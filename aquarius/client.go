package aquarius

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrAssetNotFound is returned when the cache has no record of the DID.
	ErrAssetNotFound = errors.New("aquarius: asset not found")
	// ErrNoOwner is returned when the asset record carries no NFT owner.
	ErrNoOwner = errors.New("aquarius: asset has no nft owner")
	// ErrUnavailable is returned for transport failures and non-2xx
	// statuses other than 404.
	ErrUnavailable = errors.New("aquarius: metadata cache unavailable")
)

// Client resolves asset metadata from an Aquarius instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client for the given Aquarius base URL. A zero timeout
// falls back to 10 seconds.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("aquarius: base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("aquarius: invalid base url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: trimmed,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type assetDocument struct {
	NFT struct {
		Owner string `json:"owner"`
	} `json:"nft"`
}

// ResolveOwner returns the NFT owner address recorded for a DID.
func (c *Client) ResolveOwner(ctx context.Context, did string) (string, error) {
	endpoint := c.baseURL + "/api/aquarius/assets/ddo/" + url.PathEscape(did)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrAssetNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var doc assetDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("%w: malformed asset document: %v", ErrUnavailable, err)
	}

	owner := strings.TrimSpace(doc.NFT.Owner)
	if owner == "" {
		return "", ErrNoOwner
	}

	return owner, nil
}
