package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kendall-kelly/install-intake-api/config"
)

// Context keys set by EnsureValidToken
const (
	SubjectKey = "subject"
	ClaimsKey  = "validated_claims"
)

// CustomClaims contains the authorization data reviewers carry in their
// access token. Auth0 puts API scopes in "scope" and RBAC grants in
// "permissions".
type CustomClaims struct {
	Scope       string   `json:"scope"`
	Permissions []string `json:"permissions"`
}

// Validate satisfies validator.CustomClaims; there is nothing extra to check.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// HasScope checks whether the token grants expectedScope
func (c CustomClaims) HasScope(expectedScope string) bool {
	if expectedScope == "" {
		return false
	}
	if slices.Contains(strings.Fields(c.Scope), expectedScope) {
		return true
	}
	return slices.Contains(c.Permissions, expectedScope)
}

// EnsureValidToken builds a middleware that rejects requests without a
// valid Auth0 access token for the configured audience.
func EnsureValidToken(cfg *config.Config, logger *zap.Logger) (gin.HandlerFunc, error) {
	if !cfg.AuthEnabled() {
		return nil, fmt.Errorf("auth0 is not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Auth0Audience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Info("Rejected access token", zap.String("path", r.URL.Path), zap.Error(err))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"code":"INVALID_TOKEN","error":"Failed to validate JWT."}`)); writeErr != nil {
			logger.Warn("Failed to write error response", zap.Error(writeErr))
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			passed = true
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			c.Set(SubjectKey, token.RegisteredClaims.Subject)
			c.Set(ClaimsKey, token)
			c.Request = r

			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !passed {
			// The error handler already wrote the 401
			c.Abort()
		}
	}, nil
}

// GetSubject extracts the reviewer's subject claim from the Gin context
func GetSubject(c *gin.Context) (string, error) {
	subject, exists := c.Get(SubjectKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_SUBJECT", Message: "Subject not found in context"}
	}

	subjectStr, ok := subject.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_SUBJECT", Message: "Subject is not a string"}
	}

	return subjectStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// RequireScope is a middleware that checks if the token has a specific scope
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := GetClaims(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"code":    "MISSING_CLAIMS",
				"error":   "Could not retrieve token claims",
			})
			return
		}

		customClaims, ok := claims.CustomClaims.(*CustomClaims)
		if !ok || !customClaims.HasScope(scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"code":    "INSUFFICIENT_SCOPE",
				"error":   "Insufficient permissions to access this resource",
			})
			return
		}

		c.Next()
	}
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
