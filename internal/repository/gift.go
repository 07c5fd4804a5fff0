package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/models"
)

const giftColumns = `id, user_id, event_id, recommendation_id, suggestion_index, name, description,
		 category, price, url, image_key, is_purchased, created_at, updated_at`

type GiftRepository struct {
	db *sql.DB
}

func NewGiftRepository(db *sql.DB) *GiftRepository {
	return &GiftRepository{db: db}
}

func (r *GiftRepository) Create(ctx context.Context, g *models.Gift) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gifts (`+giftColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		g.ID, g.UserID, g.EventID, g.RecommendationID, g.SuggestionIndex, g.Name, g.Description,
		g.Category, g.Price, g.URL, g.ImageKey, g.IsPurchased, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// CreateFromSuggestion inserts a gift copied from an AI suggestion. When the
// suggestion was already saved the existing gift is returned and created is
// false.
func (r *GiftRepository) CreateFromSuggestion(ctx context.Context, g *models.Gift) (saved *models.Gift, created bool, err error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO gifts (`+giftColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (recommendation_id, suggestion_index) DO NOTHING
		 RETURNING `+giftColumns,
		g.ID, g.UserID, g.EventID, g.RecommendationID, g.SuggestionIndex, g.Name, g.Description,
		g.Category, g.Price, g.URL, g.ImageKey, g.IsPurchased, g.CreatedAt, g.UpdatedAt,
	)
	saved, err = scanGift(row)
	if err == nil {
		return saved, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("db error: %w", err)
	}

	row = r.db.QueryRowContext(ctx,
		`SELECT `+giftColumns+` FROM gifts
		 WHERE recommendation_id = $1 AND suggestion_index = $2 AND user_id = $3`,
		g.RecommendationID, g.SuggestionIndex, g.UserID,
	)
	saved, err = scanGift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, common.ErrNotFound
		}
		return nil, false, fmt.Errorf("db error: %w", err)
	}
	return saved, false, nil
}

func (r *GiftRepository) GetByID(ctx context.Context, giftID, userID uuid.UUID) (*models.Gift, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+giftColumns+` FROM gifts WHERE id = $1 AND user_id = $2`,
		giftID, userID,
	)
	g, err := scanGift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *GiftRepository) Update(ctx context.Context, g *models.Gift) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE gifts SET event_id = $1, name = $2, description = $3, category = $4, price = $5,
		 url = $6, image_key = $7, is_purchased = $8, updated_at = $9
		 WHERE id = $10 AND user_id = $11`,
		g.EventID, g.Name, g.Description, g.Category, g.Price, g.URL, g.ImageKey, g.IsPurchased,
		g.UpdatedAt, g.ID, g.UserID,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectAffected(res)
}

func (r *GiftRepository) Delete(ctx context.Context, giftID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM gifts WHERE id = $1 AND user_id = $2`,
		giftID, userID,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectAffected(res)
}

// List returns the user's gifts, newest first.
func (r *GiftRepository) List(ctx context.Context, userID uuid.UUID, q models.GiftQuery) (*models.Page[*models.Gift], error) {
	page := q.PageRequest.Normalize()

	where := ` WHERE user_id = $1`
	args := []any{userID}
	if q.EventID != nil {
		args = append(args, *q.EventID)
		where += ` AND event_id = $` + strconv.Itoa(len(args))
	}
	if q.Category != "" {
		args = append(args, q.Category)
		where += ` AND category = $` + strconv.Itoa(len(args))
	}
	if q.Purchased != nil {
		args = append(args, *q.Purchased)
		where += ` AND is_purchased = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gifts`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	n := len(args)
	args = append(args, page.Size, page.Offset())
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+giftColumns+` FROM gifts`+where+
			` ORDER BY created_at DESC, id DESC LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	gifts, err := scanGifts(rows)
	if err != nil {
		return nil, err
	}
	return models.NewPage(gifts, page, total), nil
}

// ListAll returns every gift of the user.
func (r *GiftRepository) ListAll(ctx context.Context, userID uuid.UUID) ([]*models.Gift, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+giftColumns+` FROM gifts WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanGifts(rows)
}

func scanGift(row scanner) (*models.Gift, error) {
	g := &models.Gift{}
	err := row.Scan(&g.ID, &g.UserID, &g.EventID, &g.RecommendationID, &g.SuggestionIndex, &g.Name,
		&g.Description, &g.Category, &g.Price, &g.URL, &g.ImageKey, &g.IsPurchased, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func scanGifts(rows *sql.Rows) ([]*models.Gift, error) {
	var gifts []*models.Gift
	for rows.Next() {
		g, err := scanGift(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		gifts = append(gifts, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return gifts, nil
}
