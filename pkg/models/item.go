package models

import (
	"github.com/google/uuid"
)

// ItemKind selects one of the two catalog taxonomies. Book genres and
// media genres are disjoint name-spaces even when names collide.
type ItemKind string

const (
	ItemKindBook  ItemKind = "book"
	ItemKindMedia ItemKind = "media"
)

func (k ItemKind) Valid() bool {
	return k == ItemKindBook || k == ItemKindMedia
}

type Genre struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Item is a catalog entry of either kind. Kind-specific metadata lives in
// the optional fields; the repository always pre-fetches Genres.
type Item struct {
	ID     uuid.UUID `json:"id" db:"id"`
	Kind   ItemKind  `json:"kind" db:"kind"`
	Title  string    `json:"title" db:"title"`
	Genres []Genre   `json:"genres"`

	// Book metadata.
	Author       string `json:"author,omitempty" db:"author"`
	ISBN         string `json:"isbn,omitempty" db:"isbn"`
	Language     string `json:"language,omitempty" db:"language"`
	Pages        int    `json:"pages,omitempty" db:"pages"`
	LikedPercent int    `json:"likedPercent,omitempty" db:"liked_percent"`

	// Media metadata.
	MediaType string `json:"media_type,omitempty" db:"media_type"`
	StartYear int    `json:"startyear,omitempty" db:"start_year"`
	Length    int    `json:"length,omitempty" db:"length"`
	Over18    bool   `json:"over18,omitempty" db:"over18"`
}

type ItemCreateRequest struct {
	Kind   ItemKind `json:"kind" validate:"required,oneof=book media"`
	Title  string   `json:"title" validate:"required,min=1,max=500"`
	Genres []int64  `json:"genres" validate:"required,min=1"`

	Author       string `json:"author,omitempty" validate:"omitempty,max=300"`
	ISBN         string `json:"isbn,omitempty" validate:"omitempty,max=100"`
	Language     string `json:"language,omitempty" validate:"omitempty,max=50"`
	Pages        int    `json:"pages,omitempty" validate:"omitempty,min=1"`
	LikedPercent int    `json:"likedPercent,omitempty" validate:"omitempty,min=0,max=100"`

	MediaType string `json:"media_type,omitempty" validate:"omitempty,max=40"`
	StartYear int    `json:"startyear,omitempty"`
	Length    int    `json:"length,omitempty" validate:"omitempty,min=0"`
	Over18    bool   `json:"over18,omitempty"`
}

type GenreCreateRequest struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}
