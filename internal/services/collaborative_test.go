package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karar-hayder/recanthology/internal/cache"
	"github.com/karar-hayder/recanthology/pkg/models"
)

func newCollaborative(repo *stubRepo) *CollaborativeScorer {
	store := NewSimilarityStore(repo, cache.NewMemoryStore(), time.Hour, 25, testLogger())
	return NewCollaborativeScorer(repo, store, 7, 10, 50, testLogger())
}

func TestCollaborativeScorer_RecommendsCoRatedItem(t *testing.T) {
	repo := newStubRepo()
	_, b2 := seedCoRatings(repo)
	u3 := testUUID(13)

	scorer := newCollaborative(repo)
	recs, err := scorer.Recommend(context.Background(), u3, models.ItemKindBook, 10,
		map[uuid.UUID]bool{testUUID(1): true})
	require.NoError(t, err)

	require.NotEmpty(t, recs)
	found := false
	for _, rec := range recs {
		if rec.Item.ID == b2.ID {
			found = true
		}
		assert.GreaterOrEqual(t, rec.Score, 0.0)
		assert.LessOrEqual(t, rec.Score, 100.0)
	}
	assert.True(t, found, "b2 should be recommended to u3 via co-rating neighbors")
}

func TestCollaborativeScorer_NoHighRatingsNoRecommendations(t *testing.T) {
	repo := newStubRepo()
	b1 := repo.addItem(&models.Item{ID: testUUID(1), Kind: models.ItemKindBook})
	user := testUUID(20)
	repo.addRating(user, b1.ID, models.ItemKindBook, 4)

	scorer := newCollaborative(repo)
	recs, err := scorer.Recommend(context.Background(), user, models.ItemKindBook, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCollaborativeScorer_ExcludesAlreadyRated(t *testing.T) {
	repo := newStubRepo()
	b1, b2 := seedCoRatings(repo)
	u3 := testUUID(13)
	// u3 has rated both items; nothing is left to recommend.
	repo.addRating(u3, b2.ID, models.ItemKindBook, 9)

	scorer := newCollaborative(repo)
	recs, err := scorer.Recommend(context.Background(), u3, models.ItemKindBook, 10,
		map[uuid.UUID]bool{b1.ID: true, b2.ID: true})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCollaborativeScorer_SeedSelectionDeterministic(t *testing.T) {
	repo := newStubRepo()
	user := testUUID(30)
	// Twelve seed-worthy ratings: only the ten best (ties by ascending
	// item id) should drive the neighbor scan.
	for i := byte(1); i <= 12; i++ {
		item := repo.addItem(&models.Item{ID: testUUID(i), Kind: models.ItemKindBook})
		repo.addRating(user, item.ID, models.ItemKindBook, 7+int(i)%3)
	}

	scorer := newCollaborative(repo)
	recs1, err := scorer.Recommend(context.Background(), user, models.ItemKindBook, 10, nil)
	require.NoError(t, err)
	recs2, err := scorer.Recommend(context.Background(), user, models.ItemKindBook, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, recs1, recs2)
}
