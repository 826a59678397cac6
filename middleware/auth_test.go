package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studysync-backend/internal/config"
	"studysync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFromRequestSources(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newCtx := func(target string, headers map[string]string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, target, nil)
		for k, v := range headers {
			c.Request.Header.Set(k, v)
		}
		return c
	}

	// query param wins, then Authorization, then x-access-token
	c := newCtx("/api/chatbot/ask?token=query-token", map[string]string{"Authorization": "Bearer header-token"})
	assert.Equal(t, "query-token", TokenFromRequest(c))

	c = newCtx("/api/chatbot/ask", map[string]string{"Authorization": "Bearer header-token"})
	assert.Equal(t, "header-token", TokenFromRequest(c))

	c = newCtx("/api/chatbot/ask", map[string]string{"x-access-token": `"quoted-token"`})
	assert.Equal(t, "quoted-token", TokenFromRequest(c))

	c = newCtx("/api/chatbot/ask", nil)
	assert.Equal(t, "", TokenFromRequest(c))
}

func TestRequireAuthRejectsBeforeStreaming(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{JWTSecret: "test-secret"}
	authMiddleware := NewAuthMiddleware(cfg, nil)

	router := gin.New()
	router.GET("/protected", authMiddleware.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, "streamed")
	})

	// No token at all.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication token is required")
	assert.NotContains(t, w.Body.String(), "streamed")

	// Token signed with the wrong secret.
	badToken, err := utils.GenerateJWT("64f000000000000000000001", "other-secret", time.Hour)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected?token="+badToken, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_token")

	// Valid signature but malformed user id in the claim.
	malformed, err := utils.GenerateJWT("not-an-object-id", "test-secret", time.Hour)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected?token="+malformed, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
