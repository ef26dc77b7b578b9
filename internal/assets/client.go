// Package assets is a thin client for the external asset-inventory API.
// Responses are cached through a store.Store; the scheduling engine itself
// never calls this package.
package assets

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

	"github.com/rs/zerolog/log"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/store"
)

// ErrNotFound is returned when the inventory system has no record for the
// requested tag.
var ErrNotFound = errors.New("assets: not found")

const defaultTimeout = 10 * time.Second

// Asset is the subset of an inventory hardware record the scheduler cares
// about.
type Asset struct {
	ID        int64  `json:"id"`
	AssetTag  string `json:"asset_tag"`
	Name      string `json:"name"`
	ModelID   int64  `json:"model_id"`
	StatusID  int64  `json:"status_id"`
	Available bool   `json:"available_for_checkout"`
}

// ModelStats aggregates per-model availability as reported by the inventory
// system.
type ModelStats struct {
	ModelID    int64 `json:"model_id"`
	Total      int   `json:"total"`
	Deployable int   `json:"deployable"`
}

// Client calls the inventory API with a bearer token and caches responses.
// Cached data is advisory only; it is never consulted for capacity decisions
// at commit time.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	cache    store.Store
	cacheTTL time.Duration
}

// NewClient validates the base URL and returns a Client. The cache may be
// nil, in which case every call hits the API.
func NewClient(baseURL, token string, cache store.Store, cacheTTL time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("inventory base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid inventory base url: %w", err)
	}
	return &Client{
		baseURL:  baseURL,
		token:    strings.TrimSpace(token),
		http:     &http.Client{Timeout: defaultTimeout},
		cache:    cache,
		cacheTTL: cacheTTL,
	}, nil
}

// AssetByTag fetches one hardware record by its asset tag.
func (c *Client) AssetByTag(ctx context.Context, tag string) (*Asset, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, errors.New("asset tag is required")
	}
	var asset Asset
	if err := c.getJSON(ctx, "/api/v1/hardware/bytag/"+url.PathEscape(tag), "asset:"+tag, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// StatsByModel fetches aggregate availability for one hardware model.
func (c *Client) StatsByModel(ctx context.Context, modelID int64) (*ModelStats, error) {
	if modelID <= 0 {
		return nil, fmt.Errorf("model id must be positive, got %d", modelID)
	}
	var stats ModelStats
	path := fmt.Sprintf("/api/v1/models/%d/stats", modelID)
	if err := c.getJSON(ctx, path, fmt.Sprintf("modelstats:%d", modelID), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// RefreshStatsByModel fetches model stats from the API regardless of cache
// state and stores the fresh copy. Scheduled refreshes use this so they renew
// the cache ahead of expiry instead of reading their own cached data back.
func (c *Client) RefreshStatsByModel(ctx context.Context, modelID int64) (*ModelStats, error) {
	if modelID <= 0 {
		return nil, fmt.Errorf("model id must be positive, got %d", modelID)
	}
	var stats ModelStats
	path := fmt.Sprintf("/api/v1/models/%d/stats", modelID)
	if err := c.fetchJSON(ctx, path, fmt.Sprintf("modelstats:%d", modelID), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// InvalidateAsset drops the cached record for a tag.
func (c *Client) InvalidateAsset(ctx context.Context, tag string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, "asset:"+strings.TrimSpace(tag)); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("tag", tag).Msg("Failed to invalidate cached asset")
	}
}

// getJSON serves from the cache when possible, falling back to the API.
func (c *Client) getJSON(ctx context.Context, path, cacheKey string, dst any) error {
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey); err == nil {
			return json.Unmarshal(cached, dst)
		}
	}
	return c.fetchJSON(ctx, path, cacheKey, dst)
}

// fetchJSON always hits the API and replaces the cached copy.
func (c *Client) fetchJSON(ctx context.Context, path, cacheKey string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build inventory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inventory request %s: %w", path, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return fmt.Errorf("inventory request %s: status %d: %s", path, res.StatusCode, strings.TrimSpace(string(body)))
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read inventory response: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode inventory response: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, raw, c.cacheTTL); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache inventory response")
		}
	}
	return nil
}
