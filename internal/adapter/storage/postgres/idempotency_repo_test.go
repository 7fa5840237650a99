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

func TestAuthIdempotencyRepository_Reserve_New(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuthIdempotencyRepository(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	key := domain.AuthIdempotencyKey{
		RestaurantID:  uuid.New(),
		Key:           "idem-1",
		AuthRequestID: uuid.New(),
		Fingerprint:   "fp-1",
		CreatedAt:     now,
		ExpiresAt:     now.Add(24 * time.Hour),
	}

	mock.ExpectExec("INSERT INTO auth_idempotency_keys").
		WithArgs(key.RestaurantID, key.Key, key.AuthRequestID, key.Fingerprint, key.CreatedAt, key.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	bound, reserved, err := repo.Reserve(context.Background(), mock, key)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Equal(t, key.AuthRequestID, bound.AuthRequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthIdempotencyRepository_Reserve_AlreadyBound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuthIdempotencyRepository(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	existingAuthRequestID := uuid.New()
	key := domain.AuthIdempotencyKey{
		RestaurantID:  uuid.New(),
		Key:           "idem-1",
		AuthRequestID: uuid.New(),
		Fingerprint:   "fp-1",
		CreatedAt:     now,
		ExpiresAt:     now.Add(24 * time.Hour),
	}

	mock.ExpectExec("INSERT INTO auth_idempotency_keys").
		WithArgs(key.RestaurantID, key.Key, key.AuthRequestID, key.Fingerprint, key.CreatedAt, key.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	mock.ExpectQuery("SELECT .+ FROM auth_idempotency_keys WHERE restaurant_id").
		WithArgs(key.RestaurantID, key.Key).
		WillReturnRows(pgxmock.NewRows([]string{"restaurant_id", "key", "auth_request_id", "fingerprint", "created_at", "expires_at"}).
			AddRow(key.RestaurantID, key.Key, existingAuthRequestID, "fp-other", now, now.Add(24*time.Hour)))

	bound, reserved, err := repo.Reserve(context.Background(), mock, key)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, existingAuthRequestID, bound.AuthRequestID)
	assert.Equal(t, "fp-other", bound.Fingerprint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoidIdempotencyRepository_Reserve_New(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVoidIdempotencyRepository(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	key := domain.VoidIdempotencyKey{
		RestaurantID:  uuid.New(),
		Key:           "void-1",
		AuthRequestID: uuid.New(),
		CreatedAt:     now,
	}

	mock.ExpectExec("INSERT INTO void_idempotency_keys").
		WithArgs(key.RestaurantID, key.Key, key.AuthRequestID, key.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	bound, reserved, err := repo.Reserve(context.Background(), mock, key)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Equal(t, key.AuthRequestID, bound.AuthRequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
