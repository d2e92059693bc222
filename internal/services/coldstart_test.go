package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karar-hayder/recanthology/pkg/models"
)

func TestPopularityScore(t *testing.T) {
	book := &models.Item{Kind: models.ItemKindBook, LikedPercent: 87}
	assert.Equal(t, 87.0, popularityScore(book))

	// 1998 sits at the midpoint of the 1970–2026 window.
	media := &models.Item{Kind: models.ItemKindMedia, StartYear: 1998}
	assert.Equal(t, 50.0, popularityScore(media))

	old := &models.Item{Kind: models.ItemKindMedia, StartYear: 1950}
	assert.Equal(t, 0.0, popularityScore(old))
}

func TestColdStart_PopularByGenre(t *testing.T) {
	repo := newStubRepo()
	fantasy := repo.addGenre(models.ItemKindBook, 1, "Fantasy")
	horror := repo.addGenre(models.ItemKindBook, 2, "Horror")

	repo.addItem(&models.Item{
		ID: testUUID(1), Kind: models.ItemKindBook, Title: "In genre",
		Genres: []models.Genre{fantasy}, LikedPercent: 70,
	})
	repo.addItem(&models.Item{
		ID: testUUID(2), Kind: models.ItemKindBook, Title: "Better in genre",
		Genres: []models.Genre{fantasy}, LikedPercent: 95,
	})
	repo.addItem(&models.Item{
		ID: testUUID(3), Kind: models.ItemKindBook, Title: "Out of genre",
		Genres: []models.Genre{horror}, LikedPercent: 99,
	})

	cold := NewColdStart(repo, 5, 15, 10, testLogger())

	recs, err := cold.PopularByGenre(context.Background(), models.ItemKindBook,
		map[int64]float64{fantasy.ID: 3}, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 95.0, recs[0].Score)
	assert.Equal(t, 70.0, recs[1].Score)

	// Empty preferences fall back to global popularity.
	global, err := cold.PopularByGenre(context.Background(), models.ItemKindBook, nil, 10)
	require.NoError(t, err)
	require.Len(t, global, 3)
	assert.Equal(t, 99.0, global[0].Score)
}

func TestColdStart_BoostNewItems(t *testing.T) {
	repo := newStubRepo()
	fantasy := repo.addGenre(models.ItemKindBook, 1, "Fantasy")
	horror := repo.addGenre(models.ItemKindBook, 2, "Horror")

	established := repo.addItem(&models.Item{
		ID: testUUID(1), Kind: models.ItemKindBook, Title: "Established",
		Genres: []models.Genre{fantasy}, LikedPercent: 90,
	})
	for i := byte(50); i < 56; i++ {
		repo.addRating(testUUID(i), established.ID, models.ItemKindBook, 9)
	}

	fresh := repo.addItem(&models.Item{
		ID: testUUID(2), Kind: models.ItemKindBook, Title: "Fresh full overlap",
		Genres: []models.Genre{fantasy},
	})
	halfMatch := repo.addItem(&models.Item{
		ID: testUUID(3), Kind: models.ItemKindBook, Title: "Fresh half overlap",
		Genres: []models.Genre{fantasy, horror},
	})
	repo.addItem(&models.Item{
		ID: testUUID(4), Kind: models.ItemKindBook, Title: "Fresh no overlap",
		Genres: []models.Genre{horror},
	})

	cold := NewColdStart(repo, 5, 15, 10, testLogger())
	base := []models.ScoredItem{{Score: 80, Item: established}}

	boosted, err := cold.BoostNewItems(context.Background(), models.ItemKindBook, base,
		map[int64]float64{fantasy.ID: 4})
	require.NoError(t, err)
	require.Len(t, boosted, 3)

	scores := make(map[string]float64)
	for _, rec := range boosted {
		scores[rec.Item.Title] = rec.Score
	}
	assert.Equal(t, 80.0, scores["Established"])
	// Full genre overlap earns the whole boost factor; half overlap earns
	// half.
	assert.Equal(t, 15.0, scores[fresh.Title])
	assert.Equal(t, 7.5, scores[halfMatch.Title])

	// Output stays sorted descending.
	for i := 1; i < len(boosted); i++ {
		assert.GreaterOrEqual(t, boosted[i-1].Score, boosted[i].Score)
	}
}

func TestColdStart_BoostWithoutPreferencesIsNoop(t *testing.T) {
	repo := newStubRepo()
	cold := NewColdStart(repo, 5, 15, 10, testLogger())

	base := []models.ScoredItem{{Score: 42, Item: &models.Item{ID: testUUID(1)}}}
	out, err := cold.BoostNewItems(context.Background(), models.ItemKindBook, base, nil)
	require.NoError(t, err)
	assert.Equal(t, base, out)
}
