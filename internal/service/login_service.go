package service

import (
	"context"
	"fmt"
	"time"

	"payauth-platform/internal/core/ports"
	"payauth-platform/pkg/apperror"
)

// LoginService implements ports.LoginService, issuing a dashboard JWT for
// an operator's email/password. Separate from the ingress HMAC identity,
// which authenticates the restaurant's own API traffic rather than a human
// logging into the dashboard.
type LoginService struct {
	operators ports.OperatorRepository
	hashSvc   ports.HashService
	tokenSvc  ports.TokenService
}

// NewLoginService creates a new login service.
func NewLoginService(operators ports.OperatorRepository, hashSvc ports.HashService, tokenSvc ports.TokenService) *LoginService {
	return &LoginService{operators: operators, hashSvc: hashSvc, tokenSvc: tokenSvc}
}

// Login validates an operator's credentials and returns a signed dashboard
// JWT plus its expiry.
func (s *LoginService) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	operator, err := s.operators.GetByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("fetching operator: %w", err)
	}
	if operator == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, operator.PasswordHash)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("verifying password: %w", err)
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiresAt, err := s.tokenSvc.GenerateForRestaurant(operator.RestaurantID, "")
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generating token: %w", err)
	}
	return token, expiresAt, nil
}
