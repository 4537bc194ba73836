package security

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"rentfolio-backend/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// UserClaims defines the access-token claims issued by the platform's
// auth service. The ledger core only validates and reads them; it never
// issues tokens.
type UserClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager resolves a bearer token into the authenticated actor.
type TokenManager interface {
	ResolveActor(tokenString string) (*domain.Actor, error)
}

type tokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) TokenManager {
	return &tokenManager{
		secret: []byte(secret),
	}
}

func (m *tokenManager) ResolveActor(tokenString string) (*domain.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	return &domain.Actor{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  domain.Role(claims.Role),
	}, nil
}
