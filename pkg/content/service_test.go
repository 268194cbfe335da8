package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store preserving insertion order, newest first
type fakeStore struct {
	items    []Content
	failWith error
	listCnt  int
}

func (f *fakeStore) ListContent(ctx context.Context) ([]Content, error) {
	f.listCnt++
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]Content, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeStore) GetContent(ctx context.Context, id string) (*Content, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, c := range f.items {
		if c.ID == id {
			found := c
			return &found, nil
		}
	}
	return nil, &NotFoundError{ID: id}
}

func (f *fakeStore) CreateContent(ctx context.Context, item *Content) error {
	if f.failWith != nil {
		return f.failWith
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	f.items = append([]Content{*item}, f.items...)
	return nil
}

func (f *fakeStore) UpdateContent(ctx context.Context, item *Content) error {
	if f.failWith != nil {
		return f.failWith
	}
	for i := range f.items {
		if f.items[i].ID == item.ID {
			item.UpdatedAt = time.Now()
			f.items[i] = *item
			return nil
		}
	}
	return &NotFoundError{ID: item.ID}
}

func (f *fakeStore) DeleteContent(ctx context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) CountContent(ctx context.Context) (int64, error) {
	return int64(len(f.items)), nil
}

func newTestAggregator(t *testing.T, withCache bool) (*Aggregator, *fakeStore) {
	t.Helper()

	store := &fakeStore{}
	cfg := AggregatorConfig{}

	if withCache {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)

		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		cfg.Cache = NewCache(client, time.Minute)
	}

	return NewAggregator(store, cfg), store
}

func videoFields(title string) Fields {
	thumb := "https://example.com/t.jpg"
	drive := "drive-1"
	return Fields{Title: &title, ThumbnailURL: &thumb, DriveFileID: &drive}
}

func TestAggregatorAddDefaultsToVideo(t *testing.T) {
	agg, store := newTestAggregator(t, false)

	created, err := agg.Add(context.Background(), videoFields("New Item"))
	require.NoError(t, err)

	assert.Equal(t, TypeVideo, created.Type)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, store.items, 1)
}

func TestAggregatorAddRejectsInvalidBeforeStore(t *testing.T) {
	agg, store := newTestAggregator(t, false)

	fields := videoFields("  ")
	_, err := agg.Add(context.Background(), fields)

	assert.True(t, IsValidation(err))
	assert.Empty(t, store.items)
}

func TestAggregatorAddStoreFailureLeavesMirrorUntouched(t *testing.T) {
	agg, store := newTestAggregator(t, false)
	store.failWith = errors.New("connection refused")

	_, err := agg.Add(context.Background(), videoFields("New Item"))

	assert.Error(t, err)
	assert.False(t, IsValidation(err))
	assert.Zero(t, agg.Count())
}

func TestAggregatorUpdateMergesFields(t *testing.T) {
	agg, _ := newTestAggregator(t, false)
	ctx := context.Background()

	created, err := agg.Add(ctx, videoFields("Original"))
	require.NoError(t, err)

	newTitle := "Renamed"
	series := "Series A"
	updated, err := agg.Update(ctx, created.ID, Fields{Title: &newTitle, Series: &series})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "Series A", updated.Series)
	assert.Equal(t, created.ThumbnailURL, updated.ThumbnailURL)
}

func TestAggregatorUpdateUnknownID(t *testing.T) {
	agg, _ := newTestAggregator(t, false)

	title := "Whatever"
	_, err := agg.Update(context.Background(), "missing", Fields{Title: &title})
	assert.True(t, IsNotFound(err))
}

func TestAggregatorUpdateRejectsInvalidMerge(t *testing.T) {
	agg, store := newTestAggregator(t, false)
	ctx := context.Background()

	created, err := agg.Add(ctx, videoFields("Original"))
	require.NoError(t, err)

	empty := ""
	_, err = agg.Update(ctx, created.ID, Fields{Title: &empty})

	assert.True(t, IsValidation(err))
	assert.Equal(t, "Original", store.items[0].Title)
}

func TestAggregatorRemove(t *testing.T) {
	agg, store := newTestAggregator(t, false)
	ctx := context.Background()

	created, err := agg.Add(ctx, videoFields("Doomed"))
	require.NoError(t, err)

	require.NoError(t, agg.Remove(ctx, created.ID))
	assert.Empty(t, store.items)
	assert.Zero(t, agg.Count())

	// Removing again is a no-op
	assert.NoError(t, agg.Remove(ctx, created.ID))
}

func TestAggregatorListPopulatesCache(t *testing.T) {
	agg, store := newTestAggregator(t, true)
	ctx := context.Background()

	_, err := agg.Add(ctx, videoFields("Item"))
	require.NoError(t, err)

	first, err := agg.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	storeReads := store.listCnt

	// Second read is served from the cache
	second, err := agg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Equal(t, storeReads, store.listCnt)
}

func TestAggregatorWriteInvalidatesCache(t *testing.T) {
	agg, store := newTestAggregator(t, true)
	ctx := context.Background()

	_, err := agg.List(ctx)
	require.NoError(t, err)

	_, err = agg.Add(ctx, videoFields("New Item"))
	require.NoError(t, err)

	storeReads := store.listCnt
	items, err := agg.List(ctx)
	require.NoError(t, err)

	assert.Len(t, items, 1)
	assert.Equal(t, storeReads+1, store.listCnt)
}

func TestAggregatorSearch(t *testing.T) {
	agg, _ := newTestAggregator(t, false)
	ctx := context.Background()

	_, err := agg.Add(ctx, videoFields("Intro to Networking"))
	require.NoError(t, err)
	_, err = agg.Add(ctx, videoFields("Cooking Basics"))
	require.NoError(t, err)

	matched, err := agg.Search(ctx, "networking")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "Intro to Networking", matched[0].Title)
}

func TestAggregatorPlaylistForUnknownID(t *testing.T) {
	agg, _ := newTestAggregator(t, false)

	_, err := agg.PlaylistFor(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestAggregatorRefreshFailureKeepsMirror(t *testing.T) {
	agg, store := newTestAggregator(t, false)
	ctx := context.Background()

	_, err := agg.Add(ctx, videoFields("Kept"))
	require.NoError(t, err)

	store.failWith = errors.New("connection refused")
	assert.Error(t, agg.Refresh(ctx))
	assert.Equal(t, 1, agg.Count())
}
