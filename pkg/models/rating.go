package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating is an explicit 1..10 judgement, unique per (user, item).
// Writing a second rating for the same pair overwrites the first.
type Rating struct {
	UserID uuid.UUID `json:"user_id" db:"user_id"`
	ItemID uuid.UUID `json:"item_id" db:"item_id"`
	Kind   ItemKind  `json:"kind" db:"kind"`
	Value  int       `json:"value" db:"value"`
}

type RatingRequest struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
	Value  int       `json:"value" validate:"required,min=1,max=10"`
}

// GenrePreference is the per-genre affinity derived from a user's ratings,
// stored on the [-5, 5] scale.
type GenrePreference struct {
	GenreID    int64   `json:"genre_id" db:"genre_id"`
	GenreName  string  `json:"genre_name" db:"genre_name"`
	Preference float64 `json:"preference" db:"preference"`
}

// RatingEvent is the payload published to the rating-events stream after
// a successful rating write.
type RatingEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	ItemID    uuid.UUID `json:"item_id"`
	Kind      ItemKind  `json:"kind"`
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}
