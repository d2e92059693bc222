package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karar-hayder/recanthology/internal/cache"
	"github.com/karar-hayder/recanthology/pkg/models"
)

// seedCoRatings wires the minimal co-rating scenario: u1 and u2 rated
// both b1 and b2, u3 rated only b1.
func seedCoRatings(repo *stubRepo) (b1, b2 *models.Item) {
	b1 = repo.addItem(&models.Item{ID: testUUID(1), Kind: models.ItemKindBook, Title: "b1"})
	b2 = repo.addItem(&models.Item{ID: testUUID(2), Kind: models.ItemKindBook, Title: "b2"})
	repo.addItem(&models.Item{ID: testUUID(3), Kind: models.ItemKindBook, Title: "b3"})

	u1, u2, u3 := testUUID(11), testUUID(12), testUUID(13)
	repo.addRating(u1, b1.ID, models.ItemKindBook, 9)
	repo.addRating(u1, b2.ID, models.ItemKindBook, 10)
	repo.addRating(u2, b1.ID, models.ItemKindBook, 8)
	repo.addRating(u2, b2.ID, models.ItemKindBook, 9)
	repo.addRating(u3, b1.ID, models.ItemKindBook, 10)
	return b1, b2
}

func TestSimilarityStore_ShrinkageDampsLowSupport(t *testing.T) {
	repo := newStubRepo()
	b1, b2 := seedCoRatings(repo)

	store := NewSimilarityStore(repo, cache.NewMemoryStore(), time.Hour, 25, testLogger())
	similar, err := store.Similarities(context.Background(), models.ItemKindBook, b1.ID)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, b2.ID, similar[0].ItemID)

	// Two co-rating users against λ=25: shrunk = 2/27 × sim < sim ≤ 1.
	sim := similar[0].Score
	assert.Greater(t, sim, 0.0)
	assert.Less(t, sim, 2.0/27.0+1e-9)
}

func TestSimilarityStore_ShrinkageConvergesWithSupport(t *testing.T) {
	// shrunk = n/(n+λ)·sim is below sim for any n and approaches it as n
	// grows.
	sim := 0.97
	lambda := 25.0
	prev := 0.0
	for _, n := range []float64{1, 5, 25, 250, 2500} {
		shrunk := n / (n + lambda) * sim
		assert.Less(t, shrunk, sim)
		assert.Greater(t, shrunk, prev)
		prev = shrunk
	}
	assert.InDelta(t, sim, 2500/(2500+lambda)*sim, 0.01)
}

func TestSimilarityStore_CachesAndInvalidates(t *testing.T) {
	repo := newStubRepo()
	b1, _ := seedCoRatings(repo)

	store := NewSimilarityStore(repo, cache.NewMemoryStore(), time.Hour, 25, testLogger())
	ctx := context.Background()

	_, err := store.Similarities(ctx, models.ItemKindBook, b1.ID)
	require.NoError(t, err)
	scansAfterFirst := repo.similarityCalls

	// Second call is served from cache.
	_, err = store.Similarities(ctx, models.ItemKindBook, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, scansAfterFirst, repo.similarityCalls)

	// Invalidation forces a recomputation.
	require.NoError(t, store.Invalidate(ctx, models.ItemKindBook, b1.ID))
	_, err = store.Similarities(ctx, models.ItemKindBook, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, scansAfterFirst+1, repo.similarityCalls)
}

func TestSimilarityStore_NoRatingsNoNeighbors(t *testing.T) {
	repo := newStubRepo()
	lonely := repo.addItem(&models.Item{ID: testUUID(9), Kind: models.ItemKindBook, Title: "unrated"})

	store := NewSimilarityStore(repo, cache.NewMemoryStore(), time.Hour, 25, testLogger())
	similar, err := store.Similarities(context.Background(), models.ItemKindBook, lonely.ID)
	require.NoError(t, err)
	assert.Empty(t, similar)
}
