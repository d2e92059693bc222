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

func newEvaluatorForTest(repo *stubRepo) *Evaluator {
	logger := testLogger()
	similarities := NewSimilarityStore(repo, cache.NewMemoryStore(), time.Hour, 25, logger)
	content := NewContentScorer(repo, logger)
	collaborative := NewCollaborativeScorer(repo, similarities, 7, 10, 50, logger)
	return NewEvaluator(repo, content, collaborative, logger)
}

func seedEvaluationData(repo *stubRepo) {
	fantasy := repo.addGenre(models.ItemKindBook, 1, "Fantasy")
	for i := byte(1); i <= 6; i++ {
		repo.addItem(&models.Item{
			ID: testUUID(i), Kind: models.ItemKindBook, Title: "Book",
			Genres: []models.Genre{fantasy}, LikedPercent: 60 + int(i),
		})
	}
	// Three users, each rating four books: twelve records in total.
	for u := byte(20); u < 23; u++ {
		user := testUUID(u)
		for i := byte(1); i <= 4; i++ {
			repo.addRating(user, testUUID(i), models.ItemKindBook, 5+int(i))
		}
		repo.prefs[user] = []models.GenrePreference{
			{GenreID: fantasy.ID, GenreName: fantasy.Name, Preference: 3},
		}
	}
}

func TestEvaluator_ContentModeEndToEnd(t *testing.T) {
	repo := newStubRepo()
	seedEvaluationData(repo)
	evaluator := newEvaluatorForTest(repo)

	opts := EvalOptions{
		K: 3, Split: 0.8, Seed: 42, Mode: EvalModeContent,
		MaxUsers: 10, CFWeight: 0.4, Threshold: 15,
	}
	result, err := evaluator.Evaluate(context.Background(), models.ItemKindBook, opts)
	require.NoError(t, err)

	assert.Equal(t, 12, result.TrainSize+result.TestSize)
	assert.GreaterOrEqual(t, result.PrecisionAtK, 0.0)
	assert.LessOrEqual(t, result.PrecisionAtK, 1.0)
	assert.GreaterOrEqual(t, result.NDCGAtK, 0.0)
	assert.LessOrEqual(t, result.NDCGAtK, 1.0)

	// Same options, same data: identical metrics.
	again, err := evaluator.Evaluate(context.Background(), models.ItemKindBook, opts)
	require.NoError(t, err)
	assert.Equal(t, result, again)
}

func TestEvaluator_HybridAndPopularityModes(t *testing.T) {
	repo := newStubRepo()
	seedEvaluationData(repo)
	evaluator := newEvaluatorForTest(repo)

	for _, mode := range []EvalMode{EvalModeHybrid, EvalModePopularity} {
		opts := EvalOptions{
			K: 3, Split: 0.8, Seed: 42, Mode: mode,
			MaxUsers: 10, CFWeight: 0.4, Threshold: 15,
		}
		result, err := evaluator.Evaluate(context.Background(), models.ItemKindBook, opts)
		require.NoError(t, err, "mode %s", mode)
		assert.LessOrEqual(t, result.PrecisionAtK, 1.0)
	}
}

func TestEvaluator_RejectsBadConfiguration(t *testing.T) {
	evaluator := newEvaluatorForTest(newStubRepo())
	ctx := context.Background()

	_, err := evaluator.Evaluate(ctx, models.ItemKindBook, EvalOptions{
		K: 10, Split: 0.8, Seed: 42, Mode: EvalMode("guesswork"),
	})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = evaluator.Evaluate(ctx, models.ItemKindBook, EvalOptions{
		K: 10, Split: 1.5, Seed: 42, Mode: EvalModeContent,
	})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestEvaluator_TooFewRatings(t *testing.T) {
	repo := newStubRepo()
	fantasy := repo.addGenre(models.ItemKindBook, 1, "Fantasy")
	item := repo.addItem(&models.Item{
		ID: testUUID(1), Kind: models.ItemKindBook, Genres: []models.Genre{fantasy},
	})
	repo.addRating(testUUID(10), item.ID, models.ItemKindBook, 9)

	evaluator := newEvaluatorForTest(repo)
	result, err := evaluator.Evaluate(context.Background(), models.ItemKindBook, EvalOptions{
		K: 10, Split: 0.8, Seed: 42, Mode: EvalModeContent, MaxUsers: 10,
	})
	require.NoError(t, err)
	assert.Zero(t, result.PrecisionAtK)
	assert.Zero(t, result.UsersScored)
}
