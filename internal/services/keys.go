package services

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/karar-hayder/recanthology/pkg/models"
)

// Cache key namespace. Result and preference entries are invalidated on
// rating writes; similarity entries additionally expire by TTL.
func recommendationKey(kind models.ItemKind, userID uuid.UUID) string {
	return fmt.Sprintf("rec:%s:%s", kind, userID)
}

func similarityKey(kind models.ItemKind, itemID uuid.UUID, shrinkage float64) string {
	return fmt.Sprintf("item_sim:%s:%s:shrunk:%s", kind, itemID,
		strconv.FormatFloat(shrinkage, 'f', -1, 64))
}

func preferencesKey(kind models.ItemKind, userID uuid.UUID) string {
	return fmt.Sprintf("prefs:%s:%s", kind, userID)
}

func catalogKey(name string, kind models.ItemKind) string {
	return fmt.Sprintf("catalog:%s:%s", name, kind)
}
