package service

import (
	"fmt"
	"time"

	"payauth-platform/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTTokenService implements ports.TokenService using HS256 JWT, issuing
// both restaurant-dashboard tokens and internal service-identity tokens off
// the same signing secret.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// GenerateForRestaurant creates a signed JWT for the given tenant's
// dashboard session.
func (s *JWTTokenService) GenerateForRestaurant(restaurantID uuid.UUID, accessKey string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"sub":        restaurantID.String(),
		"kind":       string(ports.SubjectKindRestaurant),
		"access_key": accessKey,
		"iat":        now.Unix(),
		"exp":        expiresAt.Unix(),
		"iss":        s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// GenerateForService creates a signed JWT identifying an internal service
// (e.g. the Authorization Worker calling the Token Store), carried on the
// X-Service-Auth header rather than Authorization.
func (s *JWTTokenService) GenerateForService(serviceName string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"sub":          serviceName,
		"kind":         string(ports.SubjectKindService),
		"service_name": serviceName,
		"iat":          now.Unix(),
		"exp":          expiresAt.Unix(),
		"iss":          s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate parses and validates a JWT token, returning the claims for
// whichever subject kind it carries.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	kind, _ := claims["kind"].(string)

	if kind == string(ports.SubjectKindService) {
		serviceName, _ := claims["service_name"].(string)
		if serviceName == "" {
			return nil, fmt.Errorf("missing service_name claim")
		}
		return &ports.TokenClaims{
			Kind:        ports.SubjectKindService,
			ServiceName: serviceName,
		}, nil
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("missing subject claim")
	}

	restaurantID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid restaurant ID in token: %w", err)
	}

	accessKey, _ := claims["access_key"].(string)

	return &ports.TokenClaims{
		Kind:         ports.SubjectKindRestaurant,
		RestaurantID: restaurantID,
		AccessKey:    accessKey,
	}, nil
}
