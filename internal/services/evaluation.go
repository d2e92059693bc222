package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/karar-hayder/recanthology/pkg/models"
)

// EvalMode selects which ranker the offline evaluation exercises.
type EvalMode string

const (
	EvalModeHybrid     EvalMode = "hybrid"
	EvalModeContent    EvalMode = "content"
	EvalModePopularity EvalMode = "popularity"
)

func (m EvalMode) Valid() bool {
	return m == EvalModeHybrid || m == EvalModeContent || m == EvalModePopularity
}

// TrainTestSplit shuffles the rating records with a PRNG seeded by seed
// and cuts at floor(len·ratio). Same inputs always give the same split.
func TrainTestSplit(ratings []models.Rating, ratio float64, seed int64) (train, test []models.Rating) {
	shuffled := make([]models.Rating, len(ratings))
	copy(shuffled, ratings)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	splitIdx := int(float64(len(shuffled)) * ratio)
	return shuffled[:splitIdx], shuffled[splitIdx:]
}

// PrecisionAtK is the fraction of the top-K recommendations that are
// relevant.
func PrecisionAtK(recommended []uuid.UUID, relevant map[uuid.UUID]bool, k int) float64 {
	if k <= 0 {
		return 0
	}
	topCut := recommended
	if len(topCut) > k {
		topCut = topCut[:k]
	}
	if len(topCut) == 0 {
		return 0
	}
	hits := 0
	for _, id := range topCut {
		if relevant[id] {
			hits++
		}
	}
	return float64(hits) / float64(len(topCut))
}

// RecallAtK is the fraction of relevant items that surface in the top K.
func RecallAtK(recommended []uuid.UUID, relevant map[uuid.UUID]bool, k int) float64 {
	if k <= 0 || len(relevant) == 0 {
		return 0
	}
	topCut := recommended
	if len(topCut) > k {
		topCut = topCut[:k]
	}
	hits := 0
	for _, id := range topCut {
		if relevant[id] {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

// DCGAtK accumulates binary-relevance gain discounted by log2 position.
func DCGAtK(recommended []uuid.UUID, relevant map[uuid.UUID]bool, k int) float64 {
	score := 0.0
	for i, id := range recommended {
		if i >= k {
			break
		}
		if relevant[id] {
			score += 1 / math.Log2(float64(i)+2)
		}
	}
	return score
}

// NDCGAtK normalizes DCG against the ideal ordering of the relevant set.
func NDCGAtK(recommended []uuid.UUID, relevant map[uuid.UUID]bool, k int) float64 {
	if k <= 0 || len(relevant) == 0 {
		return 0
	}

	idealK := k
	if len(relevant) < idealK {
		idealK = len(relevant)
	}
	ideal := 0.0
	for i := 0; i < idealK; i++ {
		ideal += 1 / math.Log2(float64(i)+2)
	}
	if ideal == 0 {
		return 0
	}

	return DCGAtK(recommended, relevant, k) / ideal
}

type evaluationRepository interface {
	AllRatings(ctx context.Context, kind models.ItemKind) ([]models.Rating, error)
	UserPreferences(ctx context.Context, userID uuid.UUID, kind models.ItemKind) ([]models.GenrePreference, error)
	MostRatedItems(ctx context.Context, kind models.ItemKind, limit int) ([]*models.Item, error)
}

// EvalOptions configure one evaluation run.
type EvalOptions struct {
	K        int
	Split    float64
	Seed     int64
	Mode     EvalMode
	MaxUsers int
	CFWeight float64
	// Threshold is the fusion threshold used to derive α per user.
	Threshold int
}

// EvalResult carries the averaged metrics of one kind's run.
type EvalResult struct {
	PrecisionAtK float64 `json:"precision_at_k"`
	RecallAtK    float64 `json:"recall_at_k"`
	NDCGAtK      float64 `json:"ndcg_at_k"`
	TrainSize    int     `json:"train_size"`
	TestSize     int     `json:"test_size"`
	UsersScored  int     `json:"users_scored"`
}

// Evaluator replays ranked output against a held-out test split.
// Recommendations exclude only training items so that test items remain
// reachable, and metrics average over users with at least one relevant
// test item.
type Evaluator struct {
	repo          evaluationRepository
	content       *ContentScorer
	collaborative *CollaborativeScorer
	logger        *logrus.Logger
}

func NewEvaluator(repo evaluationRepository, content *ContentScorer, collaborative *CollaborativeScorer, logger *logrus.Logger) *Evaluator {
	return &Evaluator{
		repo:          repo,
		content:       content,
		collaborative: collaborative,
		logger:        logger,
	}
}

func (ev *Evaluator) Evaluate(ctx context.Context, kind models.ItemKind, opts EvalOptions) (*EvalResult, error) {
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown evaluation mode %q", ErrInvalidInput, opts.Mode)
	}
	if opts.Split <= 0 || opts.Split >= 1 {
		return nil, fmt.Errorf("%w: split ratio must be in (0, 1)", ErrInvalidInput)
	}

	ratings, err := ev.repo.AllRatings(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("evaluation: %w", err)
	}
	if len(ratings) < 10 {
		ev.logger.WithField("kind", kind).Warn("Not enough ratings to evaluate")
		return &EvalResult{}, nil
	}

	train, test := TrainTestSplit(ratings, opts.Split, opts.Seed)

	relevant := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, r := range test {
		if r.Value >= 7 {
			if relevant[r.UserID] == nil {
				relevant[r.UserID] = make(map[uuid.UUID]bool)
			}
			relevant[r.UserID][r.ItemID] = true
		}
	}

	trainItems := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, r := range train {
		if trainItems[r.UserID] == nil {
			trainItems[r.UserID] = make(map[uuid.UUID]bool)
		}
		trainItems[r.UserID][r.ItemID] = true
	}

	users := make([]uuid.UUID, 0, len(relevant))
	for userID := range relevant {
		users = append(users, userID)
	}
	sort.Slice(users, func(i, j int) bool { return lessUUID(users[i], users[j]) })
	if opts.MaxUsers > 0 && len(users) > opts.MaxUsers {
		users = users[:opts.MaxUsers]
	}

	var precisions, recalls, ndcgs []float64
	for _, userID := range users {
		recommended, err := ev.recommendFor(ctx, userID, kind, trainItems[userID], opts)
		if err != nil {
			ev.logger.WithError(err).WithField("user_id", userID).Warn("Skipped user in evaluation")
			continue
		}
		if recommended == nil {
			continue
		}
		precisions = append(precisions, PrecisionAtK(recommended, relevant[userID], opts.K))
		recalls = append(recalls, RecallAtK(recommended, relevant[userID], opts.K))
		ndcgs = append(ndcgs, NDCGAtK(recommended, relevant[userID], opts.K))
	}

	result := &EvalResult{TrainSize: len(train), TestSize: len(test), UsersScored: len(precisions)}
	if len(precisions) > 0 {
		result.PrecisionAtK = roundTo(stat.Mean(precisions, nil), 4)
		result.RecallAtK = roundTo(stat.Mean(recalls, nil), 4)
		result.NDCGAtK = roundTo(stat.Mean(ndcgs, nil), 4)
	}
	return result, nil
}

// recommendFor produces the ranked id list for one user, excluding only
// the user's training items. Returns nil when the user has no stored
// preferences to rank from.
func (ev *Evaluator) recommendFor(ctx context.Context, userID uuid.UUID, kind models.ItemKind, alreadyRated map[uuid.UUID]bool, opts EvalOptions) ([]uuid.UUID, error) {
	topN := opts.K * 10

	if opts.Mode == EvalModePopularity {
		items, err := ev.repo.MostRatedItems(ctx, kind, topN+len(alreadyRated))
		if err != nil {
			return nil, err
		}
		var ids []uuid.UUID
		for _, item := range items {
			if alreadyRated[item.ID] {
				continue
			}
			ids = append(ids, item.ID)
			if len(ids) >= topN {
				break
			}
		}
		return ids, nil
	}

	prefs, err := ev.repo.UserPreferences(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if len(prefs) == 0 {
		return nil, nil
	}
	needed := make(map[int64]float64, len(prefs))
	for _, pref := range prefs {
		needed[pref.GenreID] = pref.Preference
	}

	if opts.Mode == EvalModeContent {
		recs, err := ev.content.Recommend(ctx, kind, needed, ContentParams{
			MaxGenres:        30,
			MaxItemsPerGenre: 100,
			Decimals:         2,
			DefaultPref:      6,
		})
		if err != nil {
			return nil, err
		}
		return rankedIDs(recs, alreadyRated, topN), nil
	}

	// Hybrid: α-blend of content and collaborative, without the signal
	// and boost layers, which are serving-time concerns.
	contentRecs, err := ev.content.Recommend(ctx, kind, needed, ContentParams{
		MaxGenres:        10,
		MaxItemsPerGenre: 21,
		Decimals:         2,
		DefaultPref:      6,
	})
	if err != nil {
		return nil, err
	}
	cfRecs, err := ev.collaborative.Recommend(ctx, userID, kind, topN, alreadyRated)
	if err != nil {
		return nil, err
	}

	alpha := Alpha(len(alreadyRated), opts.CFWeight, opts.Threshold)
	combined := make(map[uuid.UUID]float64)
	items := make(map[uuid.UUID]*models.Item)
	for _, rec := range contentRecs {
		if alreadyRated[rec.Item.ID] {
			continue
		}
		combined[rec.Item.ID] += rec.Score * alpha
		items[rec.Item.ID] = rec.Item
	}
	for _, rec := range cfRecs {
		combined[rec.Item.ID] += rec.Score * (1 - alpha)
		items[rec.Item.ID] = rec.Item
	}

	blended := make([]models.ScoredItem, 0, len(combined))
	for id, score := range combined {
		blended = append(blended, models.ScoredItem{Score: score, Item: items[id]})
	}
	return rankedIDs(blended, nil, topN), nil
}

func rankedIDs(recs []models.ScoredItem, exclude map[uuid.UUID]bool, limit int) []uuid.UUID {
	sortScored(recs)
	ids := make([]uuid.UUID, 0, len(recs))
	for _, rec := range recs {
		if exclude[rec.Item.ID] {
			continue
		}
		ids = append(ids, rec.Item.ID)
		if len(ids) >= limit {
			break
		}
	}
	return ids
}
