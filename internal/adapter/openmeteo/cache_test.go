package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/geo"
)

type countingFetcher struct {
	calls   int
	payload geo.HourlyPayload
	err     error
}

func (f *countingFetcher) FetchArchive(_ context.Context, lat, lon float64, start, end time.Time) (geo.HourlyPayload, error) {
	f.calls++
	return f.payload, f.err
}

func nonEmptyPayload() geo.HourlyPayload {
	return geo.HourlyPayload{Hourly: geo.HourlyBlock{
		Time:        []string{"2024-05-01T00:00"},
		Temperature: []float64{9.5},
	}}
}

var (
	rangeStart = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
)

func TestCachedFetcherHit(t *testing.T) {
	inner := &countingFetcher{payload: nonEmptyPayload()}
	cached := NewCachedFetcher(inner, 4)

	first, err := cached.FetchArchive(context.Background(), 55.75, 37.61, rangeStart, rangeEnd)
	require.NoError(t, err)
	second, err := cached.FetchArchive(context.Background(), 55.75, 37.61, rangeStart, rangeEnd)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
}

func TestCachedFetcherKeyIncludesRange(t *testing.T) {
	inner := &countingFetcher{payload: nonEmptyPayload()}
	cached := NewCachedFetcher(inner, 4)

	_, err := cached.FetchArchive(context.Background(), 55.75, 37.61, rangeStart, rangeEnd)
	require.NoError(t, err)
	_, err = cached.FetchArchive(context.Background(), 55.75, 37.61,
		rangeStart, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedFetcherSkipsEmptyAndErrors(t *testing.T) {
	t.Run("empty payload not cached", func(t *testing.T) {
		inner := &countingFetcher{}
		cached := NewCachedFetcher(inner, 4)

		_, err := cached.FetchArchive(context.Background(), 55.75, 37.61, rangeStart, rangeEnd)
		require.NoError(t, err)
		_, err = cached.FetchArchive(context.Background(), 55.75, 37.61, rangeStart, rangeEnd)
		require.NoError(t, err)
		assert.Equal(t, 2, inner.calls)
	})

	t.Run("errors pass through", func(t *testing.T) {
		inner := &countingFetcher{err: errors.New("down")}
		cached := NewCachedFetcher(inner, 4)

		_, err := cached.FetchArchive(context.Background(), 55.75, 37.61, rangeStart, rangeEnd)
		require.Error(t, err)
		_, err = cached.FetchArchive(context.Background(), 55.75, 37.61, rangeStart, rangeEnd)
		require.Error(t, err)
		assert.Equal(t, 2, inner.calls)
	})
}

func TestCachedFetcherEviction(t *testing.T) {
	inner := &countingFetcher{payload: nonEmptyPayload()}
	cached := NewCachedFetcher(inner, 2)

	for i := 0; i < 3; i++ {
		_, err := cached.FetchArchive(context.Background(), 50+float64(i), 37.61, rangeStart, rangeEnd)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, inner.calls)

	// The first coordinate was evicted by the third insert.
	_, err := cached.FetchArchive(context.Background(), 50, 37.61, rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls)

	// The third coordinate is still resident.
	_, err = cached.FetchArchive(context.Background(), 52, 37.61, rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls)
}

func TestCacheKeyFormat(t *testing.T) {
	key := fmt.Sprintf("%.4f,%.4f|%s|%s", 55.75, 37.61, "2024-05-01", "2024-10-01")
	assert.Equal(t, "55.7500,37.6100|2024-05-01|2024-10-01", key)
}
