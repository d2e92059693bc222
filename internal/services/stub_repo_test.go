package services

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/karar-hayder/recanthology/internal/repository"
	"github.com/karar-hayder/recanthology/pkg/models"
)

// testUUID builds small deterministic ids whose byte order matches their
// numeric order, so tie-break assertions stay readable.
func testUUID(n byte) uuid.UUID {
	var id uuid.UUID
	id[15] = n
	return id
}

// stubRepo is an in-memory repository double honoring the ordering
// contracts of the real implementation.
type stubRepo struct {
	mu sync.Mutex

	genres map[models.ItemKind][]models.Genre
	items  map[uuid.UUID]*models.Item
	rates  []models.Rating
	prefs  map[uuid.UUID][]models.GenrePreference

	prefWriteCalls  int
	similarityCalls int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		genres: make(map[models.ItemKind][]models.Genre),
		items:  make(map[uuid.UUID]*models.Item),
		prefs:  make(map[uuid.UUID][]models.GenrePreference),
	}
}

func (s *stubRepo) addGenre(kind models.ItemKind, id int64, name string) models.Genre {
	g := models.Genre{ID: id, Name: name}
	s.genres[kind] = append(s.genres[kind], g)
	return g
}

func (s *stubRepo) addItem(item *models.Item) *models.Item {
	s.items[item.ID] = item
	return item
}

func (s *stubRepo) addRating(userID, itemID uuid.UUID, kind models.ItemKind, value int) {
	s.rates = append(s.rates, models.Rating{UserID: userID, ItemID: itemID, Kind: kind, Value: value})
}

func lessItems(kind models.ItemKind, a, b *models.Item) bool {
	if kind == models.ItemKindBook {
		if a.LikedPercent != b.LikedPercent {
			return a.LikedPercent > b.LikedPercent
		}
	} else if a.StartYear != b.StartYear {
		return a.StartYear > b.StartYear
	}
	return lessUUID(a.ID, b.ID)
}

func (s *stubRepo) ItemsByGenre(_ context.Context, genreID int64, kind models.ItemKind, limit int) ([]*models.Item, error) {
	var out []*models.Item
	for _, item := range s.items {
		if item.Kind != kind {
			continue
		}
		for _, g := range item.Genres {
			if g.ID == genreID {
				out = append(out, item)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessItems(kind, out[i], out[j]) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) Item(_ context.Context, itemID uuid.UUID) (*models.Item, error) {
	item, ok := s.items[itemID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return item, nil
}

func (s *stubRepo) ItemsByIDs(_ context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
	out := make(map[uuid.UUID]*models.Item)
	for _, id := range itemIDs {
		if item, ok := s.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (s *stubRepo) Genres(_ context.Context, kind models.ItemKind) ([]models.Genre, error) {
	return s.genres[kind], nil
}

func (s *stubRepo) PopularItems(_ context.Context, kind models.ItemKind, genreIDs []int64, limit int) ([]*models.Item, error) {
	wanted := make(map[int64]bool, len(genreIDs))
	for _, id := range genreIDs {
		wanted[id] = true
	}
	var out []*models.Item
	for _, item := range s.items {
		if item.Kind != kind {
			continue
		}
		if len(wanted) > 0 {
			match := false
			for _, g := range item.Genres {
				if wanted[g.ID] {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return lessItems(kind, out[i], out[j]) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) ratingCount(itemID uuid.UUID) int {
	count := 0
	for _, r := range s.rates {
		if r.ItemID == itemID {
			count++
		}
	}
	return count
}

func (s *stubRepo) ItemsWithRatingCountBelow(_ context.Context, kind models.ItemKind, threshold, limit int) ([]*models.Item, error) {
	var out []*models.Item
	for _, item := range s.items {
		if item.Kind == kind && s.ratingCount(item.ID) < threshold {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := s.ratingCount(out[i].ID), s.ratingCount(out[j].ID)
		if ci != cj {
			return ci > cj
		}
		return lessUUID(out[i].ID, out[j].ID)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) MostRatedItems(_ context.Context, kind models.ItemKind, limit int) ([]*models.Item, error) {
	var out []*models.Item
	for _, item := range s.items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := s.ratingCount(out[i].ID), s.ratingCount(out[j].ID)
		if ci != cj {
			return ci > cj
		}
		return lessUUID(out[i].ID, out[j].ID)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) UserRatings(_ context.Context, userID uuid.UUID, kind models.ItemKind) ([]models.Rating, error) {
	var out []models.Rating
	for _, r := range s.rates {
		if r.UserID == userID && r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRepo) RatingsOfUsers(_ context.Context, userIDs []uuid.UUID, kind models.ItemKind) ([]models.Rating, error) {
	s.mu.Lock()
	s.similarityCalls++
	s.mu.Unlock()

	wanted := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []models.Rating
	for _, r := range s.rates {
		if wanted[r.UserID] && r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRepo) UsersWhoRated(_ context.Context, itemID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, r := range s.rates {
		if r.ItemID == itemID {
			out = append(out, r.UserID)
		}
	}
	return out, nil
}

func (s *stubRepo) AllRatings(_ context.Context, kind models.ItemKind) ([]models.Rating, error) {
	var out []models.Rating
	for _, r := range s.rates {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRepo) UpsertRating(_ context.Context, rating models.Rating) error {
	for i, r := range s.rates {
		if r.UserID == rating.UserID && r.ItemID == rating.ItemID {
			s.rates[i] = rating
			return nil
		}
	}
	s.rates = append(s.rates, rating)
	return nil
}

func (s *stubRepo) UserPreferences(_ context.Context, userID uuid.UUID, kind models.ItemKind) ([]models.GenrePreference, error) {
	kindGenres := make(map[int64]bool)
	for _, g := range s.genres[kind] {
		kindGenres[g.ID] = true
	}
	var out []models.GenrePreference
	for _, pref := range s.prefs[userID] {
		if kindGenres[pref.GenreID] {
			out = append(out, pref)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Preference != out[j].Preference {
			return out[i].Preference > out[j].Preference
		}
		return out[i].GenreID < out[j].GenreID
	})
	return out, nil
}

func (s *stubRepo) WritePreferencesBulk(_ context.Context, userID uuid.UUID, kind models.ItemKind, updates, inserts []repository.PreferenceUpdate) error {
	s.mu.Lock()
	s.prefWriteCalls++
	s.mu.Unlock()

	existing := s.prefs[userID]
	for _, u := range updates {
		for i := range existing {
			if existing[i].GenreID == u.GenreID {
				existing[i].Preference = u.Preference
			}
		}
	}
	for _, ins := range inserts {
		existing = append(existing, models.GenrePreference{GenreID: ins.GenreID, Preference: ins.Preference})
	}
	s.prefs[userID] = existing
	return nil
}

func (s *stubRepo) UserAuthorStats(_ context.Context, userID uuid.UUID, author string) (int, float64, error) {
	count, sum := 0, 0.0
	for _, r := range s.rates {
		item, ok := s.items[r.ItemID]
		if !ok || r.UserID != userID || item.Author != author {
			continue
		}
		count++
		sum += float64(r.Value)
	}
	if count == 0 {
		return 0, 0, nil
	}
	return count, sum / float64(count), nil
}

func (s *stubRepo) topFieldForUser(userID uuid.UUID, kind models.ItemKind, field func(*models.Item) string) string {
	counts := make(map[string]int)
	for _, r := range s.rates {
		if r.UserID != userID || r.Kind != kind || r.Value < 7 {
			continue
		}
		item, ok := s.items[r.ItemID]
		if !ok || field(item) == "" {
			continue
		}
		counts[field(item)]++
	}
	top, best := "", 0
	for value, count := range counts {
		if count > best || (count == best && (top == "" || value < top)) {
			top, best = value, count
		}
	}
	return top
}

func (s *stubRepo) UserTopLanguage(_ context.Context, userID uuid.UUID) (string, error) {
	return s.topFieldForUser(userID, models.ItemKindBook, func(i *models.Item) string { return i.Language }), nil
}

func (s *stubRepo) UserTopMediaType(_ context.Context, userID uuid.UUID) (string, error) {
	return s.topFieldForUser(userID, models.ItemKindMedia, func(i *models.Item) string { return i.MediaType }), nil
}
