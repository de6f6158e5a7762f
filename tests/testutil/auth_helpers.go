package testutil

import (
	"strings"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"

	"github.com/kendall-kelly/install-intake-api/middleware"
)

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, issuer string, scopes []string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  issuer,
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Scope: strings.Join(scopes, " "),
		},
	}
}

// SetMockAuthContext sets up a mock authenticated reviewer for testing
func SetMockAuthContext(c *gin.Context, subject string, issuer string, scopes []string) {
	c.Set(middleware.SubjectKey, subject)
	c.Set(middleware.ClaimsKey, MockValidatedClaims(subject, issuer, scopes))
}

// MockAuthMiddleware stands in for EnsureValidToken on test routers
func MockAuthMiddleware(subject string, scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetMockAuthContext(c, subject, "https://test.auth0.com/", scopes)
		c.Next()
	}
}
