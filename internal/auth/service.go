package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when the operator password doesn't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginDisabled is returned when no operator password hash is configured.
	ErrLoginDisabled = errors.New("password login disabled")
	// ErrInvalidOperator is returned when the operator name doesn't meet constraints.
	ErrInvalidOperator = errors.New("invalid operator name")
)

// Service issues and validates control API tokens.
type Service struct {
	passwordHash string
	jwtConfig    *JWTConfig
}

// NewService creates a new authentication service. An empty passwordHash
// disables Login; tokens can still be minted offline with GenerateToken.
func NewService(passwordHash string, jwtConfig *JWTConfig) *Service {
	return &Service{
		passwordHash: passwordHash,
		jwtConfig:    jwtConfig,
	}
}

// Enabled reports whether the control API requires tokens at all.
func (s *Service) Enabled() bool {
	return s != nil && s.jwtConfig != nil && len(s.jwtConfig.Secret) > 0
}

// Login validates the operator password and returns a token with every scope.
func (s *Service) Login(operator, password string) (string, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" || len(operator) > 32 {
		return "", ErrInvalidOperator
	}
	if s.passwordHash == "" {
		return "", ErrLoginDisabled
	}

	if errPwd := ComparePassword(s.passwordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, operator, ScopeRead, ScopeCommand)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}
