package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/repositories"
	"github.com/desertthunder/cardbox/internal/shared"
)

const (
	cacheKey   = "icon-cache"
	defaultTTL = 24 * time.Hour
)

// entry is the stored cache blob. Icons, embeddings, and hashes are parallel
// slices; the whole blob is replaced on every write.
type entry struct {
	Icons      []models.Icon `json:"icons"`
	Embeddings [][]float64   `json:"embeddings"`
	IconHashes []string      `json:"iconHashes"`
	CachedAt   time.Time     `json:"cachedAt"`
}

// Stats summarizes cache state for display.
type Stats struct {
	HasCache    bool      `json:"hasCache"`
	LastFetched time.Time `json:"lastFetched,omitzero"`
	IconCount   int       `json:"iconCount"`
	Expired     bool      `json:"isExpired"`
}

// IconCache stores the icon catalog with per-icon embeddings and content
// hashes, expiring entries after a TTL.
type IconCache struct {
	store  repositories.Store
	logger *log.Logger
	ttl    time.Duration
}

// New creates an IconCache. A non-positive ttl falls back to 24 hours.
func New(store repositories.Store, ttl time.Duration, logger *log.Logger) *IconCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &IconCache{store: store, logger: logger, ttl: ttl}
}

// hashIcon fingerprints an icon's identifying fields so metadata edits are
// detected without a diff structure.
func hashIcon(icon models.Icon) string {
	fields := append([]string{icon.MediaID, icon.Title}, icon.Tags...)
	return shared.HashFields(fields...)
}

// load reads and decodes the stored entry. Returns nil on miss or corruption.
func (c *IconCache) load() *entry {
	data, err := c.store.Get(cacheKey)
	if err != nil {
		if !errors.Is(err, shared.ErrCacheMiss) {
			c.logger.Warnf("icon cache read failed: %v", err)
		}
		return nil
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warnf("discarding corrupt icon cache: %v", err)
		return nil
	}
	return &e
}

func (c *IconCache) expired(e *entry) bool {
	return time.Since(e.CachedAt) > c.ttl
}

// Cached returns the stored icons and embeddings, or ok=false when the cache
// is absent or expired.
func (c *IconCache) Cached() (icons []models.Icon, embeddings [][]float64, ok bool) {
	e := c.load()
	if e == nil || c.expired(e) {
		return nil, nil, false
	}
	return e.Icons, e.Embeddings, true
}

// SetCached stores icons with their embeddings, stamping content hashes and a
// fresh timestamp. Icon and embedding counts must match.
//
// A storage-quota failure clears the cache and still returns the original
// error, leaving the caller free to retry into the freed space.
func (c *IconCache) SetCached(icons []models.Icon, embeddings [][]float64) error {
	if len(icons) != len(embeddings) {
		return fmt.Errorf("%w: %d icons with %d embeddings", shared.ErrInvalidInput, len(icons), len(embeddings))
	}

	hashes := make([]string, len(icons))
	for i, icon := range icons {
		hashes[i] = hashIcon(icon)
	}

	data, err := json.Marshal(entry{
		Icons:      icons,
		Embeddings: embeddings,
		IconHashes: hashes,
		CachedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal icon cache: %w", err)
	}

	if err := c.store.Set(cacheKey, data); err != nil {
		if errors.Is(err, shared.ErrQuotaExceeded) {
			c.logger.Warn("storage quota exceeded, clearing icon cache")
			if clearErr := c.Clear(); clearErr != nil {
				c.logger.Warnf("failed to clear icon cache: %v", clearErr)
			}
		}
		return err
	}

	c.logger.Debugf("cached %d icons with embeddings", len(icons))
	return nil
}

// ShouldRefresh reports whether the icon catalog needs re-fetching: the cache
// is missing, expired, or current's per-icon hashes differ from the stored
// ones. The comparison is order-sensitive.
func (c *IconCache) ShouldRefresh(current []models.Icon) bool {
	e := c.load()
	if e == nil || c.expired(e) {
		return true
	}
	if current == nil {
		return false
	}

	if len(current) != len(e.IconHashes) {
		return true
	}
	for i, icon := range current {
		if hashIcon(icon) != e.IconHashes[i] {
			return true
		}
	}
	return false
}

// Clear removes the cached entry.
func (c *IconCache) Clear() error {
	return c.store.Delete(cacheKey)
}

// GetStats reports cache state for display.
func (c *IconCache) GetStats() Stats {
	e := c.load()
	if e == nil {
		return Stats{}
	}
	return Stats{
		HasCache:    true,
		LastFetched: e.CachedAt,
		IconCount:   len(e.Icons),
		Expired:     c.expired(e),
	}
}
