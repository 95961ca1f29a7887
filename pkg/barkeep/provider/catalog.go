package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// catalogTTL is how long a fetched model list stays fresh.
	catalogTTL = time.Hour
	// snapshotMaxAge is how stale the on-disk snapshot may be and still
	// serve as a fallback when a live fetch fails.
	snapshotMaxAge = 7 * 24 * time.Hour
)

type catalogEntry struct {
	Models    []string  `json:"models"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Catalog caches each provider's model list. A fresh list is fetched at
// most once per hour; when a fetch fails, a snapshot persisted from the
// last successful fetch is used as long as it is under a week old.
type Catalog struct {
	registry *Registry
	path     string // snapshot file; empty disables persistence
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]catalogEntry
}

// NewCatalog creates a catalog over the registry's providers, persisting
// snapshots to path.
func NewCatalog(registry *Registry, path string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		registry: registry,
		path:     path,
		logger:   logger.With("component", "catalog"),
		now:      time.Now,
		entries:  make(map[string]catalogEntry),
	}
	c.loadSnapshot()
	return c
}

// Models returns the provider's model ids, refreshing from the backend
// when the cached list is older than an hour.
func (c *Catalog) Models(ctx context.Context, providerName string) ([]string, error) {
	p, err := c.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	entry, ok := c.entries[providerName]
	c.mu.Unlock()
	if ok && c.now().Sub(entry.FetchedAt) < catalogTTL {
		return entry.Models, nil
	}

	models, fetchErr := p.ListModels(ctx)
	if fetchErr != nil {
		// Serve the stale snapshot if it is recent enough.
		if ok && c.now().Sub(entry.FetchedAt) < snapshotMaxAge {
			c.logger.Warn("model list refresh failed, serving cached list",
				"provider", providerName, "age", c.now().Sub(entry.FetchedAt).Round(time.Minute), "error", fetchErr)
			return entry.Models, nil
		}
		return nil, fmt.Errorf("fetching models for %s: %w", providerName, fetchErr)
	}

	c.mu.Lock()
	c.entries[providerName] = catalogEntry{Models: models, FetchedAt: c.now()}
	c.mu.Unlock()
	c.saveSnapshot()
	return models, nil
}

// HasModel reports whether the model id is in the provider's current
// catalog. A catalog that cannot be fetched at all does not block model
// selection; validation is best-effort by design.
func (c *Catalog) HasModel(ctx context.Context, providerName, model string) (bool, error) {
	models, err := c.Models(ctx, providerName)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m == model {
			return true, nil
		}
	}
	return false, nil
}

func (c *Catalog) loadSnapshot() {
	if c.path == "" {
		return
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := json.Unmarshal(data, &c.entries); err != nil {
		c.logger.Warn("discarding corrupt model catalog snapshot", "path", c.path, "error", err)
		c.entries = make(map[string]catalogEntry)
	}
}

func (c *Catalog) saveSnapshot() {
	if c.path == "" {
		return
	}
	c.mu.Lock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		c.logger.Warn("saving model catalog snapshot failed", "error", err)
		return
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		c.logger.Warn("saving model catalog snapshot failed", "error", err)
		return
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		c.logger.Warn("saving model catalog snapshot failed", "error", err)
	}
}
