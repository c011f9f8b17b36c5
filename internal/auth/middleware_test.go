package auth_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"segmenthub/internal/auth"
)

const reviewersSchema = `
CREATE TABLE reviewers (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    lang_source   TEXT NOT NULL DEFAULT '',
    lang_target   TEXT NOT NULL DEFAULT '',
    token_version INTEGER NOT NULL DEFAULT 0,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

func newAuthFixture(t *testing.T) (*auth.Repo, auth.TokenService) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(reviewersSchema)
	require.NoError(t, err)

	tokens := auth.TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "segmenthub-test",
		Duration: time.Hour,
	}
	return auth.NewRepo(db), tokens
}

func guardedServer(tokens auth.TokenService, repo *auth.Repo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", auth.AuthMiddleware(tokens, repo), func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{"reviewer": claims.UserID, "lang_source": claims.LangSource})
	})
	return r
}

func get(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	repo, tokens := newAuthFixture(t)
	r := guardedServer(tokens, repo)

	require.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	require.Equal(t, http.StatusUnauthorized, get(r, "Basic abc").Code)
	require.Equal(t, http.StatusUnauthorized, get(r, "Bearer not-a-token").Code)
}

func TestMiddlewarePassesValidToken(t *testing.T) {
	repo, tokens := newAuthFixture(t)
	r := guardedServer(tokens, repo)

	rv := auth.Reviewer{
		ID:           "rv-1",
		Username:     "reviewer",
		Email:        "reviewer@example.com",
		PasswordHash: "x",
		LangSource:   "en",
		LangTarget:   "de",
	}
	require.NoError(t, repo.CreateReviewer(context.Background(), rv))

	token, _, err := tokens.Sign(&rv)
	require.NoError(t, err)

	w := get(r, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "rv-1")
	require.Contains(t, w.Body.String(), `"lang_source":"en"`)
}

func TestMiddlewareRejectsStaleTokenVersion(t *testing.T) {
	repo, tokens := newAuthFixture(t)
	r := guardedServer(tokens, repo)

	rv := auth.Reviewer{
		ID:           "rv-1",
		Username:     "reviewer",
		Email:        "reviewer@example.com",
		PasswordHash: "x",
	}
	require.NoError(t, repo.CreateReviewer(context.Background(), rv))

	token, _, err := tokens.Sign(&rv)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get(r, "Bearer "+token).Code)

	// Logout bumps the version; the old token must die with it.
	require.NoError(t, repo.BumpTokenVersion(context.Background(), rv.ID))
	require.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+token).Code)
}
