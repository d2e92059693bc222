package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/pkg/models"
)

// Querier is the subset of pgxpool.Pool the repository uses; pgxmock
// satisfies it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Postgres struct {
	db     Querier
	logger *logrus.Logger
}

func NewPostgres(db Querier, logger *logrus.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

const itemColumns = `i.id, i.kind, i.title, i.author, i.isbn, i.language, i.pages,
	i.liked_percent, i.media_type, i.start_year, i.length, i.over18`

func scanItem(row pgx.Row) (*models.Item, error) {
	var item models.Item
	err := row.Scan(&item.ID, &item.Kind, &item.Title, &item.Author, &item.ISBN,
		&item.Language, &item.Pages, &item.LikedPercent, &item.MediaType,
		&item.StartYear, &item.Length, &item.Over18)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func collectItems(rows pgx.Rows) ([]*models.Item, error) {
	defer rows.Close()
	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// popularityOrder is the kind's most-relevant-first ordering with a
// deterministic ascending-id tie break.
func popularityOrder(kind models.ItemKind) string {
	if kind == models.ItemKindBook {
		return "i.liked_percent DESC, i.id ASC"
	}
	return "i.start_year DESC, i.id ASC"
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// attachGenres pre-fetches the genre set of every item in one query.
func (p *Postgres) attachGenres(ctx context.Context, items []*models.Item) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.Item, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		byID[item.ID] = item
		ids = append(ids, item.ID)
	}

	rows, err := p.db.Query(ctx, `
		SELECT ig.item_id, g.id, g.name
		FROM item_genres ig
		JOIN genres g ON g.id = ig.genre_id
		WHERE ig.item_id = ANY($1)
		ORDER BY g.id`, uuidStrings(ids))
	if err != nil {
		return fmt.Errorf("fetch item genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID uuid.UUID
		var genre models.Genre
		if err := rows.Scan(&itemID, &genre.ID, &genre.Name); err != nil {
			return err
		}
		if item, ok := byID[itemID]; ok {
			item.Genres = append(item.Genres, genre)
		}
	}
	return rows.Err()
}

func (p *Postgres) ItemsByGenre(ctx context.Context, genreID int64, kind models.ItemKind, limit int) ([]*models.Item, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM items i
		JOIN item_genres ig ON ig.item_id = i.id
		WHERE ig.genre_id = $1 AND i.kind = $2
		ORDER BY %s
		LIMIT $3`, itemColumns, popularityOrder(kind))

	rows, err := p.db.Query(ctx, query, genreID, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("items by genre: %w", err)
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	if err := p.attachGenres(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Postgres) Item(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM items i WHERE i.id = $1`, itemColumns)
	item, err := scanItem(p.db.QueryRow(ctx, query, itemID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", itemID, err)
	}
	if err := p.attachGenres(ctx, []*models.Item{item}); err != nil {
		return nil, err
	}
	return item, nil
}

func (p *Postgres) ItemsByIDs(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
	if len(itemIDs) == 0 {
		return map[uuid.UUID]*models.Item{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM items i WHERE i.id = ANY($1)`, itemColumns)
	rows, err := p.db.Query(ctx, query, uuidStrings(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("items by ids: %w", err)
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	if err := p.attachGenres(ctx, items); err != nil {
		return nil, err
	}
	result := make(map[uuid.UUID]*models.Item, len(items))
	for _, item := range items {
		result[item.ID] = item
	}
	return result, nil
}

func (p *Postgres) Genres(ctx context.Context, kind models.ItemKind) ([]models.Genre, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id, name FROM genres WHERE kind = $1 ORDER BY name ASC`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("genres: %w", err)
	}
	defer rows.Close()

	var genres []models.Genre
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

func (p *Postgres) PopularItems(ctx context.Context, kind models.ItemKind, genreIDs []int64, limit int) ([]*models.Item, error) {
	var query string
	var args []interface{}
	if len(genreIDs) > 0 {
		query = fmt.Sprintf(`
			SELECT DISTINCT %s
			FROM items i
			JOIN item_genres ig ON ig.item_id = i.id
			WHERE i.kind = $1 AND ig.genre_id = ANY($2)
			ORDER BY %s
			LIMIT $3`, itemColumns, popularityOrder(kind))
		args = []interface{}{string(kind), genreIDs, limit}
	} else {
		query = fmt.Sprintf(`
			SELECT %s
			FROM items i
			WHERE i.kind = $1
			ORDER BY %s
			LIMIT $2`, itemColumns, popularityOrder(kind))
		args = []interface{}{string(kind), limit}
	}

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("popular items: %w", err)
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	if err := p.attachGenres(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Postgres) ItemsWithRatingCountBelow(ctx context.Context, kind models.ItemKind, threshold, limit int) ([]*models.Item, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM items i
		LEFT JOIN ratings r ON r.item_id = i.id
		WHERE i.kind = $1
		GROUP BY i.id
		HAVING COUNT(r.user_id) < $2
		ORDER BY COUNT(r.user_id) DESC, i.id ASC
		LIMIT $3`, itemColumns)

	rows, err := p.db.Query(ctx, query, string(kind), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("items with rating count below %d: %w", threshold, err)
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	if err := p.attachGenres(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Postgres) MostRatedItems(ctx context.Context, kind models.ItemKind, limit int) ([]*models.Item, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM items i
		LEFT JOIN ratings r ON r.item_id = i.id
		WHERE i.kind = $1
		GROUP BY i.id
		ORDER BY COUNT(r.user_id) DESC, i.id ASC
		LIMIT $2`, itemColumns)

	rows, err := p.db.Query(ctx, query, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("most rated items: %w", err)
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	if err := p.attachGenres(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Postgres) FilterItems(ctx context.Context, kind models.ItemKind, filter ItemFilter) ([]*models.Item, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM items i`, itemColumns)
	var conditions []string
	args := []interface{}{string(kind)}
	conditions = append(conditions, "i.kind = $1")
	argIndex := 2

	if filter.Genre != "" {
		query += " JOIN item_genres ig ON ig.item_id = i.id JOIN genres g ON g.id = ig.genre_id"
		conditions = append(conditions, fmt.Sprintf("g.name ILIKE $%d", argIndex))
		args = append(args, "%"+filter.Genre+"%")
		argIndex++
	}
	if filter.Title != "" {
		conditions = append(conditions, fmt.Sprintf("i.title ILIKE $%d", argIndex))
		args = append(args, "%"+filter.Title+"%")
		argIndex++
	}
	if filter.Author != "" {
		conditions = append(conditions, fmt.Sprintf("i.author ILIKE $%d", argIndex))
		args = append(args, "%"+filter.Author+"%")
		argIndex++
	}
	if filter.MinLikedPercent > 0 {
		conditions = append(conditions, fmt.Sprintf("i.liked_percent >= $%d", argIndex))
		args = append(args, filter.MinLikedPercent)
		argIndex++
	}
	if filter.MediaType != "" {
		conditions = append(conditions, fmt.Sprintf("i.media_type = $%d", argIndex))
		args = append(args, filter.MediaType)
		argIndex++
	}

	query += " WHERE " + strings.Join(conditions, " AND ")
	query += fmt.Sprintf(" ORDER BY %s", popularityOrder(kind))

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT $%d", argIndex)
	args = append(args, limit)

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("filter items: %w", err)
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	if err := p.attachGenres(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Postgres) CreateGenre(ctx context.Context, kind models.ItemKind, name string) (*models.Genre, error) {
	var g models.Genre
	err := p.db.QueryRow(ctx, `
		INSERT INTO genres (kind, name) VALUES ($1, $2)
		ON CONFLICT (kind, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`, string(kind), name).Scan(&g.ID, &g.Name)
	if err != nil {
		return nil, fmt.Errorf("create genre: %w", err)
	}
	return &g, nil
}

func (p *Postgres) CreateItem(ctx context.Context, item *models.Item) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO items (id, kind, title, author, isbn, language, pages,
			liked_percent, media_type, start_year, length, over18)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		item.ID.String(), string(item.Kind), item.Title, item.Author, item.ISBN,
		item.Language, item.Pages, item.LikedPercent, item.MediaType,
		item.StartYear, item.Length, item.Over18)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert item: %w", err)
	}

	for _, genre := range item.Genres {
		if _, err := tx.Exec(ctx, `
			INSERT INTO item_genres (item_id, genre_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, item.ID.String(), genre.ID); err != nil {
			return fmt.Errorf("insert item genre: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func scanRatings(rows pgx.Rows) ([]models.Rating, error) {
	defer rows.Close()
	var ratings []models.Rating
	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.UserID, &r.ItemID, &r.Kind, &r.Value); err != nil {
			return nil, err
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

func (p *Postgres) UserRatings(ctx context.Context, userID uuid.UUID, kind models.ItemKind) ([]models.Rating, error) {
	rows, err := p.db.Query(ctx, `
		SELECT user_id, item_id, kind, value FROM ratings
		WHERE user_id = $1 AND kind = $2`, userID.String(), string(kind))
	if err != nil {
		return nil, fmt.Errorf("user ratings: %w", err)
	}
	return scanRatings(rows)
}

func (p *Postgres) RatingsOfUsers(ctx context.Context, userIDs []uuid.UUID, kind models.ItemKind) ([]models.Rating, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := p.db.Query(ctx, `
		SELECT user_id, item_id, kind, value FROM ratings
		WHERE user_id = ANY($1) AND kind = $2`, uuidStrings(userIDs), string(kind))
	if err != nil {
		return nil, fmt.Errorf("ratings of users: %w", err)
	}
	return scanRatings(rows)
}

func (p *Postgres) UsersWhoRated(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := p.db.Query(ctx,
		`SELECT user_id FROM ratings WHERE item_id = $1`, itemID.String())
	if err != nil {
		return nil, fmt.Errorf("users who rated: %w", err)
	}
	defer rows.Close()

	var users []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func (p *Postgres) UserRatingCount(ctx context.Context, userID uuid.UUID, kind models.ItemKind) (int, error) {
	var count int
	err := p.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM ratings WHERE user_id = $1 AND kind = $2`,
		userID.String(), string(kind)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("user rating count: %w", err)
	}
	return count, nil
}

func (p *Postgres) ItemRatingCount(ctx context.Context, itemID uuid.UUID) (int, error) {
	var count int
	err := p.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM ratings WHERE item_id = $1`, itemID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("item rating count: %w", err)
	}
	return count, nil
}

func (p *Postgres) AllRatings(ctx context.Context, kind models.ItemKind) ([]models.Rating, error) {
	rows, err := p.db.Query(ctx, `
		SELECT user_id, item_id, kind, value FROM ratings
		WHERE kind = $1 ORDER BY user_id, item_id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("all ratings: %w", err)
	}
	return scanRatings(rows)
}

func (p *Postgres) UpsertRating(ctx context.Context, rating models.Rating) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO ratings (user_id, item_id, kind, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, item_id) DO UPDATE SET value = EXCLUDED.value`,
		rating.UserID.String(), rating.ItemID.String(), string(rating.Kind), rating.Value)
	if err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

func (p *Postgres) UserPreferences(ctx context.Context, userID uuid.UUID, kind models.ItemKind) ([]models.GenrePreference, error) {
	rows, err := p.db.Query(ctx, `
		SELECT pr.genre_id, g.name, pr.preference
		FROM preferences pr
		JOIN genres g ON g.id = pr.genre_id
		WHERE pr.user_id = $1 AND g.kind = $2
		ORDER BY pr.preference DESC, pr.genre_id ASC`, userID.String(), string(kind))
	if err != nil {
		return nil, fmt.Errorf("user preferences: %w", err)
	}
	defer rows.Close()

	var prefs []models.GenrePreference
	for rows.Next() {
		var pref models.GenrePreference
		if err := rows.Scan(&pref.GenreID, &pref.GenreName, &pref.Preference); err != nil {
			return nil, err
		}
		prefs = append(prefs, pref)
	}
	return prefs, rows.Err()
}

func (p *Postgres) WritePreferencesBulk(ctx context.Context, userID uuid.UUID, kind models.ItemKind, updates, inserts []PreferenceUpdate) error {
	if len(updates) == 0 && len(inserts) == 0 {
		return nil
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, u := range updates {
		if _, err := tx.Exec(ctx, `
			UPDATE preferences SET preference = $3
			WHERE user_id = $1 AND genre_id = $2`,
			userID.String(), u.GenreID, u.Preference); err != nil {
			return fmt.Errorf("update preference: %w", err)
		}
	}
	for _, ins := range inserts {
		if _, err := tx.Exec(ctx, `
			INSERT INTO preferences (user_id, genre_id, preference)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, genre_id) DO UPDATE SET preference = EXCLUDED.preference`,
			userID.String(), ins.GenreID, ins.Preference); err != nil {
			return fmt.Errorf("insert preference: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (p *Postgres) UserAuthorStats(ctx context.Context, userID uuid.UUID, author string) (int, float64, error) {
	var count int
	var avg float64
	err := p.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(r.value), 0)
		FROM ratings r
		JOIN items i ON i.id = r.item_id
		WHERE r.user_id = $1 AND i.kind = 'book' AND i.author = $2`,
		userID.String(), author).Scan(&count, &avg)
	if err != nil {
		return 0, 0, fmt.Errorf("user author stats: %w", err)
	}
	return count, avg, nil
}

func (p *Postgres) UserTopLanguage(ctx context.Context, userID uuid.UUID) (string, error) {
	var language string
	err := p.db.QueryRow(ctx, `
		SELECT i.language
		FROM ratings r
		JOIN items i ON i.id = r.item_id
		WHERE r.user_id = $1 AND i.kind = 'book' AND r.value >= 7 AND i.language <> ''
		GROUP BY i.language
		ORDER BY COUNT(*) DESC, i.language ASC
		LIMIT 1`, userID.String()).Scan(&language)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("user top language: %w", err)
	}
	return language, nil
}

func (p *Postgres) UserTopMediaType(ctx context.Context, userID uuid.UUID) (string, error) {
	var mediaType string
	err := p.db.QueryRow(ctx, `
		SELECT i.media_type
		FROM ratings r
		JOIN items i ON i.id = r.item_id
		WHERE r.user_id = $1 AND i.kind = 'media' AND r.value >= 7 AND i.media_type <> ''
		GROUP BY i.media_type
		ORDER BY COUNT(*) DESC, i.media_type ASC
		LIMIT 1`, userID.String()).Scan(&mediaType)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("user top media type: %w", err)
	}
	return mediaType, nil
}

func (p *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, password_hash, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID.String(), user.Email, user.FirstName, user.LastName,
		user.PasswordHash, user.IsAdmin, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.IsAdmin, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(p.db.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, password_hash, is_admin, created_at
		FROM users WHERE email = $1`, email))
}

func (p *Postgres) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(p.db.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, password_hash, is_admin, created_at
		FROM users WHERE id = $1`, id.String()))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
