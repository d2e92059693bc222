package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karar-hayder/recanthology/internal/cache"
	"github.com/karar-hayder/recanthology/pkg/models"
)

type capturedEvent struct {
	events []models.RatingEvent
}

func (c *capturedEvent) PublishRating(_ context.Context, event models.RatingEvent) error {
	c.events = append(c.events, event)
	return nil
}

func newRatingServiceForTest(repo *stubRepo, bus ratingEventPublisher) *RatingService {
	logger := testLogger()
	mem := cache.NewMemoryStore()
	preferences := NewPreferenceService(repo, mem, logger)
	similarities := NewSimilarityStore(repo, mem, time.Hour, 25, logger)
	return NewRatingService(repo, preferences, similarities, bus, logger)
}

func TestRatingService_RejectsOutOfRangeValues(t *testing.T) {
	svc := newRatingServiceForTest(newStubRepo(), nil)

	for _, value := range []int{0, -1, 11, 100} {
		_, err := svc.Rate(context.Background(), testUUID(10), testUUID(1), value)
		assert.True(t, errors.Is(err, ErrInvalidInput), "value %d must be rejected", value)
	}
}

func TestRatingService_UnknownItem(t *testing.T) {
	svc := newRatingServiceForTest(newStubRepo(), nil)

	_, err := svc.Rate(context.Background(), testUUID(10), testUUID(1), 5)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRatingService_WriteTriggersPreferenceDerivation(t *testing.T) {
	repo := newStubRepo()
	fantasy := repo.addGenre(models.ItemKindBook, 1, "Fantasy")
	item := repo.addItem(&models.Item{
		ID: testUUID(1), Kind: models.ItemKindBook, Genres: []models.Genre{fantasy},
	})

	bus := &capturedEvent{}
	svc := newRatingServiceForTest(repo, bus)
	user := testUUID(10)

	rating, err := svc.Rate(context.Background(), user, item.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, rating.Value)
	assert.Equal(t, models.ItemKindBook, rating.Kind)

	// The post-write hook recomputed the preference vector synchronously.
	prefs, err := repo.UserPreferences(context.Background(), user, models.ItemKindBook)
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.InDelta(t, 4.0, prefs[0].Preference, 1e-9)

	// And streamed the event out.
	require.Len(t, bus.events, 1)
	assert.Equal(t, item.ID, bus.events[0].ItemID)
}

func TestRatingService_OverwritesPreviousValue(t *testing.T) {
	repo := newStubRepo()
	fantasy := repo.addGenre(models.ItemKindBook, 1, "Fantasy")
	item := repo.addItem(&models.Item{
		ID: testUUID(1), Kind: models.ItemKindBook, Genres: []models.Genre{fantasy},
	})

	svc := newRatingServiceForTest(repo, nil)
	user := testUUID(10)
	ctx := context.Background()

	_, err := svc.Rate(ctx, user, item.ID, 3)
	require.NoError(t, err)
	_, err = svc.Rate(ctx, user, item.ID, 10)
	require.NoError(t, err)

	ratings, err := repo.UserRatings(ctx, user, models.ItemKindBook)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, 10, ratings[0].Value)
}
