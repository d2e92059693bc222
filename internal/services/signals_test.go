package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/karar-hayder/recanthology/internal/config"
	"github.com/karar-hayder/recanthology/pkg/models"
)

func defaultSignalConfig() config.Signals {
	return config.Signals{
		Enabled:            true,
		MaxBonus:           30,
		Popularity:         10,
		Recency:            8,
		AuthorAffinity:     12,
		LanguagePreference: 5,
		MediaTypeMatch:     8,
	}
}

func TestSignalLayer_AnonymousBookPopularity(t *testing.T) {
	layer := NewSignalLayer(newStubRepo(), defaultSignalConfig(), testLogger())

	book := &models.Item{ID: testUUID(1), Kind: models.ItemKindBook, LikedPercent: 80}
	// Popularity is the only signal without a user: 0.8 × 10.
	assert.InDelta(t, 8.0, layer.Bonus(context.Background(), book, nil), 1e-9)
}

func TestSignalLayer_AnonymousMediaRecency(t *testing.T) {
	layer := NewSignalLayer(newStubRepo(), defaultSignalConfig(), testLogger())

	media := &models.Item{ID: testUUID(1), Kind: models.ItemKindMedia, StartYear: 1998}
	// Midpoint of the recency window: 0.5 × 8.
	assert.InDelta(t, 4.0, layer.Bonus(context.Background(), media, nil), 1e-9)
}

func TestSignalLayer_AuthorAffinity(t *testing.T) {
	repo := newStubRepo()
	user := testUUID(10)

	first := repo.addItem(&models.Item{
		ID: testUUID(1), Kind: models.ItemKindBook, Author: "Le Guin", Language: "English",
	})
	second := repo.addItem(&models.Item{
		ID: testUUID(2), Kind: models.ItemKindBook, Author: "Le Guin", Language: "English",
	})
	candidate := repo.addItem(&models.Item{
		ID: testUUID(3), Kind: models.ItemKindBook, Author: "Le Guin", Language: "English",
	})
	repo.addRating(user, first.ID, models.ItemKindBook, 9)
	repo.addRating(user, second.ID, models.ItemKindBook, 8)

	layer := NewSignalLayer(repo, defaultSignalConfig(), testLogger())
	bonus := layer.Bonus(context.Background(), candidate, &user)

	// Author affinity (12) + language preference (5); likedPercent is 0.
	assert.InDelta(t, 17.0, bonus, 1e-9)
}

func TestSignalLayer_AuthorAffinityNeedsTwoHighRatings(t *testing.T) {
	repo := newStubRepo()
	user := testUUID(10)

	only := repo.addItem(&models.Item{ID: testUUID(1), Kind: models.ItemKindBook, Author: "Herbert"})
	candidate := repo.addItem(&models.Item{ID: testUUID(2), Kind: models.ItemKindBook, Author: "Herbert"})
	repo.addRating(user, only.ID, models.ItemKindBook, 10)

	layer := NewSignalLayer(repo, defaultSignalConfig(), testLogger())
	assert.Zero(t, layer.Bonus(context.Background(), candidate, &user))
}

func TestSignalLayer_MediaTypeMatch(t *testing.T) {
	repo := newStubRepo()
	user := testUUID(10)

	watched := repo.addItem(&models.Item{
		ID: testUUID(1), Kind: models.ItemKindMedia, MediaType: "series", StartYear: 1970,
	})
	repo.addRating(user, watched.ID, models.ItemKindMedia, 9)

	match := &models.Item{ID: testUUID(2), Kind: models.ItemKindMedia, MediaType: "series", StartYear: 1970}
	miss := &models.Item{ID: testUUID(3), Kind: models.ItemKindMedia, MediaType: "movie", StartYear: 1970}

	layer := NewSignalLayer(repo, defaultSignalConfig(), testLogger())
	assert.InDelta(t, 8.0, layer.Bonus(context.Background(), match, &user), 1e-9)
	assert.Zero(t, layer.Bonus(context.Background(), miss, &user))
}

func TestSignalLayer_TotalIsCapped(t *testing.T) {
	cfg := defaultSignalConfig()
	cfg.Popularity = 50

	layer := NewSignalLayer(newStubRepo(), cfg, testLogger())
	book := &models.Item{ID: testUUID(1), Kind: models.ItemKindBook, LikedPercent: 100}
	assert.Equal(t, 30.0, layer.Bonus(context.Background(), book, nil))
}
