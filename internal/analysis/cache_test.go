package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opiniq/sentilens/internal/models"
)

func TestContentHash_StableAndDistinct(t *testing.T) {
	assert.Equal(t, ContentHash("same text"), ContentHash("same text"))
	assert.NotEqual(t, ContentHash("one"), ContentHash("two"))
}

func TestResultCache_PutGet(t *testing.T) {
	cache := newResultCache(16, time.Hour, clockwork.NewFakeClock())

	result := models.AnalysisResult{Sentiment: models.SentimentPositive, Score: 0.9}
	cache.put("k", result)

	got, ok := cache.get("k")
	require.True(t, ok)
	assert.Equal(t, result, got)
}

func TestResultCache_MissingKey(t *testing.T) {
	cache := newResultCache(16, time.Hour, clockwork.NewFakeClock())

	_, ok := cache.get("nope")
	assert.False(t, ok)
}

func TestResultCache_TTLExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := newResultCache(16, time.Hour, clock)

	cache.put("k", models.AnalysisResult{Sentiment: models.SentimentNeutral})

	clock.Advance(time.Hour + time.Minute)
	_, ok := cache.get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.size())
}

func TestResultCache_EvictsWhenFull(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := newResultCache(3, time.Hour, clock)

	for i := 0; i < 3; i++ {
		cache.put(fmt.Sprintf("k%d", i), models.AnalysisResult{Score: float64(i)})
		clock.Advance(time.Second)
	}

	cache.put("k3", models.AnalysisResult{Score: 3})
	assert.Equal(t, 3, cache.size())

	// Oldest entry goes first.
	_, ok := cache.get("k0")
	assert.False(t, ok)
	_, ok = cache.get("k3")
	assert.True(t, ok)
}

func TestResultCache_EvictionPrefersExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := newResultCache(2, time.Minute, clock)

	cache.put("stale", models.AnalysisResult{})
	clock.Advance(2 * time.Minute)
	cache.put("fresh", models.AnalysisResult{Score: 1})

	cache.put("newer", models.AnalysisResult{Score: 2})

	_, ok := cache.get("fresh")
	assert.True(t, ok)
	_, ok = cache.get("newer")
	assert.True(t, ok)
}
