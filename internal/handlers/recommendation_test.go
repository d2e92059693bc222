package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karar-hayder/recanthology/internal/services"
	"github.com/karar-hayder/recanthology/internal/validation"
	"github.com/karar-hayder/recanthology/pkg/models"
)

type fakeRecommender struct {
	publicResult  []models.ScoredItem
	publicErr     error
	privateResult []models.ScoredItem
}

func (f *fakeRecommender) RecommendPublic(_ context.Context, _ models.ItemKind, _ map[string]float64) ([]models.ScoredItem, error) {
	return f.publicResult, f.publicErr
}

func (f *fakeRecommender) RecommendPrivate(_ context.Context, _ uuid.UUID, _ models.ItemKind, _ services.PrivateOptions) ([]models.ScoredItem, bool, error) {
	return f.privateResult, false, nil
}

func newTestRouter(t *testing.T, fake *fakeRecommender) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	schemas, err := validation.NewSchemaValidator()
	require.NoError(t, err)

	handler := NewRecommendationHandler(fake, schemas, logger)
	router := gin.New()
	router.POST("/recommend/books", handler.Public(models.ItemKindBook))
	return router
}

func TestPublicRecommendation_Success(t *testing.T) {
	item := &models.Item{ID: uuid.New(), Kind: models.ItemKindBook, Title: "Dune"}
	fake := &fakeRecommender{publicResult: []models.ScoredItem{{Score: 97.5, Item: item}}}
	router := newTestRouter(t, fake)

	body, _ := json.Marshal(map[string]float64{"fantasy": 8})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/recommend/books", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.RecommendationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Length)
	entry, ok := resp.Data["0"]
	require.True(t, ok, "entries are string-indexed from zero")
	require.NotNil(t, entry.Relativity)
	assert.Equal(t, 97.5, *entry.Relativity)
	require.NotNil(t, entry.Book)
	assert.Equal(t, "Dune", entry.Book.Title)
	assert.Nil(t, entry.Media)
}

func TestPublicRecommendation_RejectsNonNumericValues(t *testing.T) {
	router := newTestRouter(t, &fakeRecommender{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/recommend/books",
		bytes.NewReader([]byte(`{"fantasy": "very much"}`)))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicRecommendation_RejectsOversizedMaps(t *testing.T) {
	router := newTestRouter(t, &fakeRecommender{})

	input := make(map[string]float64)
	for i := 0; i < 25; i++ {
		input[string(rune('a'+i))] = 5
	}
	body, _ := json.Marshal(input)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/recommend/books", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicRecommendation_UnresolvedGenres(t *testing.T) {
	fake := &fakeRecommender{
		publicErr: &services.GenreResolutionError{
			Ambiguous:       []string{"sci"},
			AvailableGenres: []string{"Sci-Fi", "Science Fiction"},
		},
	}
	router := newTestRouter(t, fake)

	body, _ := json.Marshal(map[string]float64{"sci": 8})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/recommend/books", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotAcceptable, w.Code)

	var resp struct {
		Detail struct {
			Ambiguous []string `json:"ambiguous"`
		} `json:"detail"`
		AvailableGenres []string `json:"available_genres"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"sci"}, resp.Detail.Ambiguous)
	assert.Equal(t, []string{"Sci-Fi", "Science Fiction"}, resp.AvailableGenres)
}
