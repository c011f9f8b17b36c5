package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxClaimsKey = "reviewer_claims"

// AuthMiddleware guards the review surface: it requires a bearer token
// signed for a reviewer and, when a repo is supplied, rejects tokens
// whose version was invalidated by logout or password change.
func AuthMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			reject(c, "missing bearer token")
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			reject(c, "invalid token")
			return
		}
		if repo != nil && !tokenCurrent(c, repo, claims) {
			reject(c, "invalid token")
			return
		}

		c.Set(ctxClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(header[len("Bearer "):]), true
}

// tokenCurrent compares the token's version against the reviewer's
// stored one. A stale version means every token signed before the bump
// is dead, whatever its expiry says.
func tokenCurrent(c *gin.Context, repo *Repo, claims *Claims) bool {
	version, err := repo.GetTokenVersion(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Printf("[auth] token version check failed for reviewer %s: %v", claims.UserID, err)
		return false
	}
	return version == claims.TokenVersion
}

func reject(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
	c.Abort()
}

// MustGetClaims returns the reviewer claims set by AuthMiddleware, or
// nil on an unguarded route.
func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
