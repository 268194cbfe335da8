package content

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/devopshub/gatehouse/pkg/observability"
)

const cacheName = "content_list"

// Aggregator coordinates the content library: the Postgres store is the
// source of truth, an optional Redis cache fronts list reads, and an
// in-memory mirror backs the pure search and grouping helpers. The mirror
// is updated only after the store confirms a write.
type Aggregator struct {
	store   Store
	cache   *Cache
	logger  *observability.Logger
	metrics *observability.Metrics

	mu    sync.RWMutex
	items []Content
}

// AggregatorConfig carries the optional collaborators of an Aggregator
type AggregatorConfig struct {
	Cache   *Cache
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// NewAggregator creates an aggregator over the given store
func NewAggregator(store Store, cfg AggregatorConfig) *Aggregator {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	return &Aggregator{
		store:   store,
		cache:   cfg.Cache,
		logger:  logger.WithField("component", "content"),
		metrics: cfg.Metrics,
	}
}

// Refresh reloads the in-memory mirror from the store. On failure the prior
// mirror is kept so reads keep serving the last known state.
func (a *Aggregator) Refresh(ctx context.Context) error {
	items, err := a.store.ListContent(ctx)
	if err != nil {
		a.logger.WithError(err).Error("Failed to refresh content mirror")
		return err
	}

	a.mu.Lock()
	a.items = items
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.ContentItemsTotal.Set(float64(len(items)))
	}

	return nil
}

// List returns every item, newest first. The Redis cache is consulted first;
// any cache failure degrades to a store read.
func (a *Aggregator) List(ctx context.Context) ([]Content, error) {
	if a.cache != nil {
		cached, err := a.cache.GetList(ctx)
		if err != nil {
			a.logger.WithError(err).Warn("Content cache read failed, falling back to store")
		} else if cached != nil {
			if a.metrics != nil {
				a.metrics.CacheHitsTotal.WithLabelValues(cacheName).Inc()
			}
			return cached, nil
		} else if a.metrics != nil {
			a.metrics.CacheMissesTotal.WithLabelValues(cacheName).Inc()
		}
	}

	start := time.Now()
	items, err := a.store.ListContent(ctx)
	if a.metrics != nil {
		a.metrics.ObserveStoreOperation("content", "list", start, err)
	}
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.items = items
	a.mu.Unlock()

	if a.cache != nil {
		if err := a.cache.SetList(ctx, items); err != nil {
			a.logger.WithError(err).Warn("Failed to populate content cache")
		}
	}

	return items, nil
}

// Get returns one item by ID, reading through the mirror before the store
func (a *Aggregator) Get(ctx context.Context, id string) (*Content, error) {
	a.mu.RLock()
	for _, item := range a.items {
		if item.ID == id {
			found := item
			a.mu.RUnlock()
			return &found, nil
		}
	}
	a.mu.RUnlock()

	start := time.Now()
	item, err := a.store.GetContent(ctx, id)
	if a.metrics != nil {
		a.metrics.ObserveStoreOperation("content", "get", start, err)
	}
	return item, err
}

// Add validates and persists a new item. Validation failures reject the
// request before any store call. A missing type defaults to video.
func (a *Aggregator) Add(ctx context.Context, fields Fields) (*Content, error) {
	item := &Content{Type: TypeVideo}
	fields.apply(item)

	if err := item.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	err := a.store.CreateContent(ctx, item)
	if a.metrics != nil {
		a.metrics.ObserveStoreOperation("content", "create", start, err)
	}
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.items = append([]Content{*item}, a.items...)
	total := len(a.items)
	a.mu.Unlock()

	a.invalidate(ctx)
	if a.metrics != nil {
		a.metrics.ContentItemsTotal.Set(float64(total))
	}

	a.logger.WithFields(map[string]interface{}{
		"content_id": item.ID,
		"type":       string(item.Type),
	}).Info("Content added")

	return item, nil
}

// Update merges the provided fields into the stored item. Unknown IDs return
// NotFoundError; the merged result must still validate.
func (a *Aggregator) Update(ctx context.Context, id string, fields Fields) (*Content, error) {
	current, err := a.store.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	fields.apply(&updated)

	if err := updated.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	err = a.store.UpdateContent(ctx, &updated)
	if a.metrics != nil {
		a.metrics.ObserveStoreOperation("content", "update", start, err)
	}
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	for i := range a.items {
		if a.items[i].ID == id {
			a.items[i] = updated
			break
		}
	}
	a.mu.Unlock()

	a.invalidate(ctx)

	a.logger.WithField("content_id", id).Info("Content updated")

	return &updated, nil
}

// Remove deletes the item. Absent IDs are a no-op, matching the store.
func (a *Aggregator) Remove(ctx context.Context, id string) error {
	start := time.Now()
	err := a.store.DeleteContent(ctx, id)
	if a.metrics != nil {
		a.metrics.ObserveStoreOperation("content", "delete", start, err)
	}
	if err != nil {
		return err
	}

	a.mu.Lock()
	for i := range a.items {
		if a.items[i].ID == id {
			a.items = append(a.items[:i], a.items[i+1:]...)
			break
		}
	}
	total := len(a.items)
	a.mu.Unlock()

	a.invalidate(ctx)
	if a.metrics != nil {
		a.metrics.ContentItemsTotal.Set(float64(total))
	}

	a.logger.WithField("content_id", id).Info("Content removed")

	return nil
}

// Search returns the items matching term, newest first
func (a *Aggregator) Search(ctx context.Context, term string) ([]Content, error) {
	items, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(items, term), nil
}

// Series returns the library partitioned into browsing rows
func (a *Aggregator) Series(ctx context.Context) ([]SeriesGroup, error) {
	items, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	return GroupBySeries(items), nil
}

// PlaylistFor returns the up-next queue for the item with the given ID
func (a *Aggregator) PlaylistFor(ctx context.Context, id string) ([]Content, error) {
	items, err := a.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if item.ID == id {
			return Playlist(items, item), nil
		}
	}

	return nil, &NotFoundError{ID: id}
}

// Count reports the number of items in the mirror
func (a *Aggregator) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// Snapshot returns a copy of the mirror, newest first
func (a *Aggregator) Snapshot() []Content {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Content, len(a.items))
	copy(out, a.items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (a *Aggregator) invalidate(ctx context.Context) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Invalidate(ctx); err != nil {
		a.logger.WithError(err).Warn("Failed to invalidate content cache")
	}
}
