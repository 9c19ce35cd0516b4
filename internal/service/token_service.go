package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/uniplan/timetable-api/internal/models"
	"github.com/uniplan/timetable-api/pkg/config"
	appErrors "github.com/uniplan/timetable-api/pkg/errors"
)

// TokenService parses access tokens minted by the external identity provider.
// The API never issues tokens of its own; it only verifies the signature and
// reads the embedded permissions.
type TokenService struct {
	secret []byte
}

// NewTokenService constructs a TokenService from the shared secret.
func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{secret: []byte(cfg.Secret)}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
