package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobbyclient/internal/auth"
	"github.com/vovakirdan/lobbyclient/internal/core"
)

// APIHandlers provides HTTP handlers for the token endpoint.
type APIHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		log:         logger,
	}
}

// TokenRequest represents the operator login request body.
type TokenRequest struct {
	Operator string `json:"operator" binding:"required,max=32"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token string `json:"token"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Token exchanges the operator password for a token.
// POST /auth/token
func (h *APIHandlers) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid token request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.authService.Login(req.Operator, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		case errors.Is(err, auth.ErrInvalidOperator):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid operator name"})
		case errors.Is(err, auth.ErrLoginDisabled):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "password login disabled"})
		default:
			h.log.Error().Err(err).Str("operator", req.Operator).Msg("failed to issue token")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Str("operator", req.Operator).Msg("operator token issued")
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

// commandStatus maps a rejected command to an HTTP status.
func commandStatus(err error) (int, ErrorResponse) {
	var cmdErr *core.CommandError
	if !errors.As(err, &cmdErr) {
		if errors.Is(err, core.ErrNotFound) {
			return http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"}
		}
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
	}

	resp := ErrorResponse{Error: cmdErr.Message, Code: cmdErr.Code}
	switch cmdErr.Code {
	case core.ErrCodeBadRequest:
		return http.StatusBadRequest, resp
	case core.ErrCodeUnknownBattle:
		return http.StatusNotFound, resp
	case core.ErrCodePasswordRequired, core.ErrCodeNotConnected:
		return http.StatusConflict, resp
	case core.ErrCodeRateLimited:
		return http.StatusTooManyRequests, resp
	case core.ErrCodeQueueFull:
		return http.StatusServiceUnavailable, resp
	}
	return http.StatusBadRequest, resp
}
