package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/dbx"
	"github.com/hray3182/daymemory/internal/models"
)

const recommendationColumns = `id, user_id, event_id, status, budget, age, gender, relationship, categories,
		 exclusions, event_title, event_type, event_date, failure_reason, created_at, completed_at`

type RecommendationRepository struct {
	db *sql.DB
}

func NewRecommendationRepository(db *sql.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

func (r *RecommendationRepository) Create(ctx context.Context, rec *models.Recommendation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recommendations (`+recommendationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		rec.ID, rec.UserID, rec.EventID, rec.Status, rec.Budget, rec.Age, rec.Gender, rec.Relationship,
		rec.Categories, rec.Exclusions, rec.EventTitle, rec.EventType, rec.EventDate, rec.FailureReason,
		rec.CreatedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Complete stores the suggestions and flips a PENDING request to COMPLETED
// in one transaction.
func (r *RecommendationRepository) Complete(ctx context.Context, recID uuid.UUID, suggestions []models.Suggestion, at time.Time) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, s := range suggestions {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO recommended_gifts (recommendation_id, idx, name, description, reason,
				 estimated_price, category, purchase_url)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				recID, s.Index, s.Name, s.Description, s.Reason, s.EstimatedPrice, s.Category, s.PurchaseURL,
			)
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE recommendations SET status = 'COMPLETED', completed_at = $2
			 WHERE id = $1 AND status = 'PENDING'`,
			recID, at,
		)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: recommendation is no longer pending", common.ErrConflict)
		}
		return nil
	})
}

// Fail marks a PENDING request as FAILED. The reason stays internal.
func (r *RecommendationRepository) Fail(ctx context.Context, recID uuid.UUID, reason string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recommendations SET status = 'FAILED', failure_reason = $2, completed_at = $3
		 WHERE id = $1 AND status = 'PENDING'`,
		recID, reason, at,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID loads the request and its suggestions ordered by index.
func (r *RecommendationRepository) GetByID(ctx context.Context, recID, userID uuid.UUID) (*models.Recommendation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recommendationColumns+` FROM recommendations WHERE id = $1 AND user_id = $2`,
		recID, userID,
	)
	rec, err := scanRecommendation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT idx, name, description, reason, estimated_price, category, purchase_url
		 FROM recommended_gifts WHERE recommendation_id = $1 ORDER BY idx`,
		recID,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	rec.Suggestions = []models.Suggestion{}
	for rows.Next() {
		var s models.Suggestion
		if err := rows.Scan(&s.Index, &s.Name, &s.Description, &s.Reason, &s.EstimatedPrice,
			&s.Category, &s.PurchaseURL); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rec.Suggestions = append(rec.Suggestions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// List returns the user's requests without suggestions, newest first.
func (r *RecommendationRepository) List(ctx context.Context, userID uuid.UUID, req models.PageRequest) (*models.Page[*models.Recommendation], error) {
	page := req.Normalize()

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recommendations WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recommendationColumns+` FROM recommendations WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		userID, page.Size, page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var recs []*models.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return models.NewPage(recs, page, total), nil
}

func scanRecommendation(row scanner) (*models.Recommendation, error) {
	rec := &models.Recommendation{}
	err := row.Scan(&rec.ID, &rec.UserID, &rec.EventID, &rec.Status, &rec.Budget, &rec.Age, &rec.Gender,
		&rec.Relationship, &rec.Categories, &rec.Exclusions, &rec.EventTitle, &rec.EventType, &rec.EventDate,
		&rec.FailureReason, &rec.CreatedAt, &rec.CompletedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
