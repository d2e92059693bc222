// Command evaluate runs the offline evaluation of the recommendation
// engine against a deterministic train/test split and prints averaged
// Precision@K, Recall@K and NDCG@K per item kind.
//
// Usage:
//
//	evaluate [--k 10] [--split 0.8] [--seed 42] [--mode hybrid|content|popularity]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/cache"
	"github.com/karar-hayder/recanthology/internal/config"
	"github.com/karar-hayder/recanthology/internal/repository"
	"github.com/karar-hayder/recanthology/internal/services"
	"github.com/karar-hayder/recanthology/pkg/models"
)

func main() {
	k := flag.Int("k", 10, "Top-K cutoff for metrics")
	split := flag.Float64("split", 0.8, "Train/test split ratio")
	seed := flag.Int64("seed", 42, "Random seed")
	mode := flag.String("mode", "hybrid", "Evaluation mode: hybrid, content or popularity")
	flag.Parse()

	evalMode := services.EvalMode(*mode)
	if !evalMode.Valid() {
		fmt.Fprintf(os.Stderr, "invalid mode %q: must be hybrid, content or popularity\n", *mode)
		os.Exit(2)
	}
	if *split <= 0 || *split >= 1 {
		fmt.Fprintf(os.Stderr, "invalid split %v: must be in (0, 1)\n", *split)
		os.Exit(2)
	}
	if *k <= 0 {
		fmt.Fprintf(os.Stderr, "invalid k %d: must be positive\n", *k)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	repo := repository.NewPostgres(pool, logger)

	// The CLI runs without redis: similarity lists live in process memory
	// for the duration of the run.
	memCache := cache.NewMemoryStore()
	similarities := services.NewSimilarityStore(repo, memCache,
		cfg.Engine.Caching.SimilarityTTL, cfg.Engine.Collaborative.Shrinkage, logger)
	content := services.NewContentScorer(repo, logger)
	collaborative := services.NewCollaborativeScorer(repo, similarities,
		cfg.Engine.Collaborative.MinSeedRating, cfg.Engine.Collaborative.MaxSeeds,
		cfg.Engine.Collaborative.MaxNeighbors, logger)
	evaluator := services.NewEvaluator(repo, content, collaborative, logger)

	opts := services.EvalOptions{
		K:         *k,
		Split:     *split,
		Seed:      *seed,
		Mode:      evalMode,
		MaxUsers:  cfg.Evaluation.MaxUsers,
		CFWeight:  cfg.Engine.Fusion.CFWeight,
		Threshold: cfg.Engine.Fusion.Threshold,
	}

	fmt.Println("============================================================")
	fmt.Println("RecAnthology — Offline Recommendation Evaluation")
	fmt.Println("============================================================")
	fmt.Printf("  K=%d  split=%v  seed=%d  mode=%s\n", *k, *split, *seed, evalMode)

	for _, kind := range []models.ItemKind{models.ItemKindBook, models.ItemKindMedia} {
		fmt.Printf("\n--- %s evaluation ---\n", kind)
		start := time.Now()
		result, err := evaluator.Evaluate(context.Background(), kind, opts)
		if err != nil {
			log.Fatalf("Evaluation failed for %s: %v", kind, err)
		}
		fmt.Printf("  Train: %d, Test: %d, Users scored: %d\n",
			result.TrainSize, result.TestSize, result.UsersScored)
		fmt.Printf("  precision_at_k: %.4f\n", result.PrecisionAtK)
		fmt.Printf("  recall_at_k:    %.4f\n", result.RecallAtK)
		fmt.Printf("  ndcg_at_k:      %.4f\n", result.NDCGAtK)
		fmt.Printf("  Elapsed: %.2fs\n", time.Since(start).Seconds())
	}

	fmt.Println("\nEvaluation complete.")
}
