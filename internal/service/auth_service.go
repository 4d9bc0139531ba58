package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/raglib/docqa/internal/pkg/errors"
	"github.com/raglib/docqa/internal/pkg/jwt"
)

type AuthService struct {
	passwordHash string
	jwtSecret    string
	tokenTTL     time.Duration
}

func NewAuthService(passwordHash string, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		passwordHash: passwordHash,
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
	}
}

// Login checks the password against the configured bcrypt hash and issues a
// signed token on success.
func (s *AuthService) Login(_ context.Context, password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", errors.ErrUnauthorized
	}
	token, err := jwt.GenerateToken("admin", []byte(s.jwtSecret), s.tokenTTL)
	if err != nil {
		return "", err
	}
	return token, nil
}
