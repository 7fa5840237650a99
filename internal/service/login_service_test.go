package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
	"payauth-platform/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOperatorRepo and fakeHashService are hand-rolled test doubles in the
// style of the pack's non-generated mocks, standing in for gomock here since
// this build never runs mockgen.

type fakeOperatorRepo struct {
	byEmail map[string]*domain.Operator
	err     error
}

func (f *fakeOperatorRepo) GetByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byEmail[email], nil
}

type fakeHashService struct {
	valid bool
	err   error
}

func (f *fakeHashService) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (f *fakeHashService) Verify(password, encodedHash string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.valid, nil
}

type fakeTokenService struct {
	token     string
	expiresAt time.Time
	err       error
}

func (f *fakeTokenService) GenerateForRestaurant(restaurantID uuid.UUID, accessKey string) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return f.token, f.expiresAt, nil
}

func (f *fakeTokenService) GenerateForService(serviceName string) (string, time.Time, error) {
	return "", time.Time{}, nil
}

func (f *fakeTokenService) Validate(tokenString string) (*ports.TokenClaims, error) { return nil, nil }

func TestLoginService_Login_Success(t *testing.T) {
	restaurantID := uuid.New()
	operator := &domain.Operator{ID: uuid.New(), RestaurantID: restaurantID, Email: "ops@example.com", PasswordHash: "hash"}
	expiry := time.Now().Add(time.Hour)

	svc := NewLoginService(
		&fakeOperatorRepo{byEmail: map[string]*domain.Operator{"ops@example.com": operator}},
		&fakeHashService{valid: true},
		&fakeTokenService{token: "signed-jwt", expiresAt: expiry},
	)

	token, exp, err := svc.Login(context.Background(), "ops@example.com", "correct-password")
	require.NoError(t, err)
	assert.Equal(t, "signed-jwt", token)
	assert.Equal(t, expiry, exp)
}

func TestLoginService_Login_UnknownEmail(t *testing.T) {
	svc := NewLoginService(
		&fakeOperatorRepo{byEmail: map[string]*domain.Operator{}},
		&fakeHashService{valid: true},
		&fakeTokenService{token: "signed-jwt"},
	)

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 401, appErr.HTTPStatus)
}

func TestLoginService_Login_WrongPassword(t *testing.T) {
	operator := &domain.Operator{ID: uuid.New(), RestaurantID: uuid.New(), Email: "ops@example.com", PasswordHash: "hash"}
	svc := NewLoginService(
		&fakeOperatorRepo{byEmail: map[string]*domain.Operator{"ops@example.com": operator}},
		&fakeHashService{valid: false},
		&fakeTokenService{token: "signed-jwt"},
	)

	_, _, err := svc.Login(context.Background(), "ops@example.com", "wrong-password")
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 401, appErr.HTTPStatus)
}

func TestLoginService_Login_RepoError(t *testing.T) {
	svc := NewLoginService(
		&fakeOperatorRepo{err: errors.New("connection reset")},
		&fakeHashService{valid: true},
		&fakeTokenService{token: "signed-jwt"},
	)

	_, _, err := svc.Login(context.Background(), "ops@example.com", "whatever")
	require.Error(t, err)
}
