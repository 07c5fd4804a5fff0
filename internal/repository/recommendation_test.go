package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendationRepository_Complete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecommendationRepository(db)
	recID := uuid.New()
	at := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	suggestions := []models.Suggestion{
		{Index: 0, Name: "Scarf", EstimatedPrice: 30000, Category: models.GiftFashion},
		{Index: 1, Name: "Cooking class", EstimatedPrice: 50000, Category: models.GiftExperience},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO recommended_gifts`).WithArgs(anyArgs(8)...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO recommended_gifts`).WithArgs(anyArgs(8)...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE recommendations SET status = 'COMPLETED', completed_at = \$2 WHERE id = \$1 AND status = 'PENDING'`).
		WithArgs(recID.String(), at).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Complete(context.Background(), recID, suggestions, at))
}

func TestRecommendationRepository_Complete_NotPendingRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecommendationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO recommended_gifts`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE recommendations SET status = 'COMPLETED'`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Complete(context.Background(), uuid.New(), []models.Suggestion{{Name: "Book"}}, time.Now())
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestRecommendationRepository_GetByID_WithSuggestions(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecommendationRepository(db)
	recID, userID := uuid.New(), uuid.New()
	created := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM recommendations WHERE id = \$1 AND user_id = \$2`).
		WithArgs(recID.String(), userID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "event_id", "status", "budget", "age", "gender",
			"relationship", "categories", "exclusions", "event_title", "event_type", "event_date", "failure_reason",
			"created_at", "completed_at"}).
			AddRow(recID.String(), userID.String(), nil, "COMPLETED", int64(100000), nil, "", "PARTNER",
				[]byte(`["FLOWER","BOOK"]`), "", "", "", nil, "", created, created))
	mock.ExpectQuery(`SELECT idx, name, description, reason, estimated_price, category, purchase_url FROM recommended_gifts`).
		WithArgs(recID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"idx", "name", "description", "reason", "estimated_price", "category", "purchase_url"}).
			AddRow(0, "Roses", "A bouquet", "Classic", int64(40000), "FLOWER", ""))

	rec, err := repo.GetByID(context.Background(), recID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.RecommendationCompleted, rec.Status)
	assert.Equal(t, models.Categories{models.GiftFlower, models.GiftBook}, rec.Categories)
	require.Len(t, rec.Suggestions, 1)
	assert.Equal(t, "Roses", rec.Suggestions[0].Name)
	assert.Nil(t, rec.Age)
}
