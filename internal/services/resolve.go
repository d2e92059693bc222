package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/karar-hayder/recanthology/pkg/models"
)

var genreFolder = cases.Fold()

// normalizeGenreName lowers a genre name for case-insensitive matching.
func normalizeGenreName(name string) string {
	return genreFolder.String(strings.TrimSpace(name))
}

// alnumOnly strips everything but letters and digits from a folded name,
// so "Sci-Fi" and "sci fi" meet at "scifi".
func alnumOnly(folded string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, folded)
}

// ResolveGenres maps free-form genre names from a public request onto
// catalog genres, trying progressively looser matches: exact
// case-insensitive, then alphanumeric-normalized, then substring. Names
// that stay unresolved or match more than one genre fail the whole
// request with a structured GenreResolutionError.
func (e *RecommendationEngine) ResolveGenres(ctx context.Context, kind models.ItemKind, input map[string]float64) (map[int64]float64, error) {
	genres, err := e.repo.Genres(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("resolve genres: %w", err)
	}

	type indexedGenre struct {
		genre  models.Genre
		folded string
		alnum  string
	}
	indexed := make([]indexedGenre, len(genres))
	available := make([]string, 0, len(genres))
	for i, g := range genres {
		folded := normalizeGenreName(g.Name)
		indexed[i] = indexedGenre{genre: g, folded: folded, alnum: alnumOnly(folded)}
		available = append(available, g.Name)
	}
	sort.Strings(available)

	resolved := make(map[int64]float64, len(input))
	var notFound, ambiguous []string

	for name, value := range input {
		folded := normalizeGenreName(name)
		alnum := alnumOnly(folded)

		var matches []models.Genre
		for _, ig := range indexed {
			if ig.folded == folded {
				matches = append(matches, ig.genre)
			}
		}
		if len(matches) == 0 && alnum != "" {
			for _, ig := range indexed {
				if ig.alnum == alnum {
					matches = append(matches, ig.genre)
				}
			}
		}
		if len(matches) == 0 && folded != "" {
			for _, ig := range indexed {
				if strings.Contains(ig.folded, folded) {
					matches = append(matches, ig.genre)
				}
			}
		}

		switch len(matches) {
		case 1:
			resolved[matches[0].ID] = value
		case 0:
			notFound = append(notFound, name)
		default:
			ambiguous = append(ambiguous, name)
		}
	}

	if len(notFound) > 0 || len(ambiguous) > 0 {
		sort.Strings(notFound)
		sort.Strings(ambiguous)
		return nil, &GenreResolutionError{
			NotFound:        notFound,
			Ambiguous:       ambiguous,
			AvailableGenres: available,
		}
	}

	return resolved, nil
}
