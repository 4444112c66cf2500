package http

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobbyclient/internal/auth"
)

const (
	// ContextKeyOperator is the context key for storing the operator name.
	ContextKeyOperator = "operator"
	// ContextKeyScopes is the context key for storing granted scopes.
	ContextKeyScopes = "scopes"
)

// localClaims is what every request gets when the auth service has no
// secret configured.
var localClaims = auth.Claims{
	Operator: "local",
	Scopes:   []string{auth.ScopeRead, auth.ScopeCommand},
}

// authenticate validates the request's token. The token is read from the
// Authorization header, or from the token query parameter for WebSocket
// clients that cannot set headers. On failure it returns the message to
// answer 401 with.
func authenticate(authService *auth.Service, r *http.Request, logger *zerolog.Logger) (*auth.Claims, string) {
	if !authService.Enabled() {
		claims := localClaims
		return &claims, ""
	}

	token := r.URL.Query().Get("token")
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Debug().Msg("invalid authorization header format")
			return nil, "invalid authorization header format"
		}
		token = parts[1]
	}
	if token == "" {
		logger.Debug().Msg("missing authorization header")
		return nil, "missing authorization header"
	}

	claims, err := authService.ValidateToken(token)
	if err != nil {
		logger.Debug().Err(err).Msg("invalid token")
		return nil, "invalid token"
	}
	return claims, ""
}

// AuthMiddleware creates a middleware that validates JWT tokens. When the
// auth service has no secret configured every request is granted every scope.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, reason := authenticate(authService, c.Request, logger)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: reason})
			return
		}

		c.Set(ContextKeyOperator, claims.Operator)
		c.Set(ContextKeyScopes, claims.Scopes)
		c.Next()
	}
}

// RequireScope rejects requests whose token lacks scope.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasScope(c, scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "token lacks scope " + scope})
			return
		}
		c.Next()
	}
}

func hasScope(c *gin.Context, scope string) bool {
	v, ok := c.Get(ContextKeyScopes)
	if !ok {
		return false
	}
	scopes, ok := v.([]string)
	return ok && slices.Contains(scopes, scope)
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("operator", c.GetString(ContextKeyOperator)).
			Msg("http request")
	}
}
