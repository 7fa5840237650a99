package postgres

import (
	"context"
	"testing"
	"time"

	"payauth-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorRepository_GetByEmail_Found(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOperatorRepository(mock)
	id := uuid.New()
	restaurantID := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM operators WHERE email").
		WithArgs("ops@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "restaurant_id", "email", "password_hash", "created_at"}).
			AddRow(id, restaurantID, "ops@example.com", "$argon2id$...", now))

	operator, err := repo.GetByEmail(context.Background(), "ops@example.com")
	require.NoError(t, err)
	require.NotNil(t, operator)
	assert.Equal(t, id, operator.ID)
	assert.Equal(t, restaurantID, operator.RestaurantID)
	assert.Equal(t, "ops@example.com", operator.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatorRepository_GetByEmail_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOperatorRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM operators WHERE email").
		WithArgs("nobody@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "restaurant_id", "email", "password_hash", "created_at"}))

	operator, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, operator)
	assert.NoError(t, mock.ExpectationsWereMet())
}
