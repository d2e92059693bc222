// Package repository defines the persistence capabilities the engine
// depends on. The engine never sees SQL; implementations may be backed
// by postgres, or stubbed entirely in tests.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/karar-hayder/recanthology/pkg/models"
)

var (
	ErrNotFound = errors.New("repository: not found")
	ErrConflict = errors.New("repository: conflict")
)

// ItemFilter narrows catalog listings. Zero values mean "no constraint".
type ItemFilter struct {
	Title           string
	Author          string
	Genre           string
	MinLikedPercent int
	MediaType       string
	Limit           int
}

// PreferenceUpdate is one row of a bulk preference upsert.
type PreferenceUpdate struct {
	GenreID    int64
	Preference float64
}

// CatalogReader serves genre and item lookups. All methods are
// side-effect-free and return items with genres pre-fetched.
type CatalogReader interface {
	// ItemsByGenre returns up to limit items of the given kind tagged with
	// the genre, most relevant first: books by descending likedPercent,
	// media by descending startyear, ties by ascending id.
	ItemsByGenre(ctx context.Context, genreID int64, kind models.ItemKind, limit int) ([]*models.Item, error)
	Item(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	ItemsByIDs(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]*models.Item, error)
	Genres(ctx context.Context, kind models.ItemKind) ([]models.Genre, error)
	// PopularItems returns distinct items ordered by the kind's popularity
	// field, optionally restricted to items tagged with any of genreIDs.
	PopularItems(ctx context.Context, kind models.ItemKind, genreIDs []int64, limit int) ([]*models.Item, error)
	// ItemsWithRatingCountBelow returns items with fewer than threshold
	// ratings, most-rated first, genres pre-fetched.
	ItemsWithRatingCountBelow(ctx context.Context, kind models.ItemKind, threshold, limit int) ([]*models.Item, error)
	// MostRatedItems returns items ordered by descending rating count,
	// the popularity baseline of offline evaluation.
	MostRatedItems(ctx context.Context, kind models.ItemKind, limit int) ([]*models.Item, error)
	FilterItems(ctx context.Context, kind models.ItemKind, filter ItemFilter) ([]*models.Item, error)
}

// CatalogWriter covers the admin path. CreateGenre is idempotent on
// (kind, name) and returns the existing genre; CreateItem returns
// ErrConflict when the item id already exists.
type CatalogWriter interface {
	CreateGenre(ctx context.Context, kind models.ItemKind, name string) (*models.Genre, error)
	CreateItem(ctx context.Context, item *models.Item) error
}

// RatingStore serves the rating matrix.
type RatingStore interface {
	UserRatings(ctx context.Context, userID uuid.UUID, kind models.ItemKind) ([]models.Rating, error)
	RatingsOfUsers(ctx context.Context, userIDs []uuid.UUID, kind models.ItemKind) ([]models.Rating, error)
	UsersWhoRated(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error)
	UserRatingCount(ctx context.Context, userID uuid.UUID, kind models.ItemKind) (int, error)
	ItemRatingCount(ctx context.Context, itemID uuid.UUID) (int, error)
	AllRatings(ctx context.Context, kind models.ItemKind) ([]models.Rating, error)
	UpsertRating(ctx context.Context, rating models.Rating) error
}

// PreferenceStore persists derived per-genre preferences.
type PreferenceStore interface {
	// UserPreferences returns the user's preferences for the taxonomy,
	// sorted descending by preference.
	UserPreferences(ctx context.Context, userID uuid.UUID, kind models.ItemKind) ([]models.GenrePreference, error)
	// WritePreferencesBulk applies updates and inserts atomically.
	WritePreferencesBulk(ctx context.Context, userID uuid.UUID, kind models.ItemKind, updates, inserts []PreferenceUpdate) error
}

// ProfileReader serves the metadata-affinity lookups of the feature
// signal layer.
type ProfileReader interface {
	// UserAuthorStats returns how many books by author the user rated and
	// the average of those ratings.
	UserAuthorStats(ctx context.Context, userID uuid.UUID, author string) (count int, avg float64, err error)
	// UserTopLanguage returns the most frequent language among the user's
	// books rated >= 7, or "" when the user has none.
	UserTopLanguage(ctx context.Context, userID uuid.UUID) (string, error)
	// UserTopMediaType returns the most frequent media type among the
	// user's media rated >= 7, or "" when the user has none.
	UserTopMediaType(ctx context.Context, userID uuid.UUID) (string, error)
}

// UserStore covers registration and login.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Store is the full persistence surface. The postgres implementation
// satisfies it; engine tests stub the slices they need.
type Store interface {
	CatalogReader
	CatalogWriter
	RatingStore
	PreferenceStore
	ProfileReader
	UserStore
}
