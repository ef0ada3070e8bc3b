package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Parkgate/server/internal/auth"
)

var secret = []byte("test-secret")

// ── Tokens ───────────────────────────────────────────────────────────────────

func TestGenerateAndParse(t *testing.T) {
	tok, err := auth.GenerateToken("guard-1", secret, time.Hour)
	require.NoError(t, err)

	op, err := auth.ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "guard-1", op)
}

func TestParse_WrongSecret(t *testing.T) {
	tok, err := auth.GenerateToken("guard-1", secret, time.Hour)
	require.NoError(t, err)

	_, err = auth.ParseToken(tok, []byte("other"))
	assert.True(t, errors.Is(err, auth.ErrInvalidToken))
}

func TestParse_Expired(t *testing.T) {
	tok, err := auth.GenerateToken("guard-1", secret, -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseToken(tok, secret)
	assert.True(t, errors.Is(err, auth.ErrInvalidToken))
}

func TestGenerate_EmptySecret(t *testing.T) {
	_, err := auth.GenerateToken("x", nil, time.Hour)
	assert.Error(t, err)
}

// ── Middleware ───────────────────────────────────────────────────────────────

func newRouter(s []byte) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/x", auth.RequireBearer(s), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(auth.OperatorKey))
	})
	return r
}

func TestRequireBearer(t *testing.T) {
	tok, err := auth.GenerateToken("guard-1", secret, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		secret []byte
		header string
		code   int
		body   string
	}{
		{"disabled", nil, "", http.StatusOK, ""},
		{"missing", secret, "", http.StatusUnauthorized, ""},
		{"garbage", secret, "Bearer nope", http.StatusUnauthorized, ""},
		{"wrong scheme", secret, "Basic " + tok, http.StatusUnauthorized, ""},
		{"valid", secret, "Bearer " + tok, http.StatusOK, "guard-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			newRouter(tc.secret).ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusOK {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}
