package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

type fakeTokens struct {
	userID uuid.UUID
	role   string
}

func (f fakeTokens) ParseAccess(token string) (uuid.UUID, string, error) {
	if token != "valid" {
		return uuid.Nil, "", errors.New("invalid token")
	}
	return f.userID, f.role, nil
}

type fakeSignatures struct{}

func (fakeSignatures) VerifySignature(body []byte, signature string) bool {
	return signature == "sig:"+string(body)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	r := gin.New()
	r.GET("/me", AuthMiddleware(fakeTokens{userID: userID, role: "client"}), RequireRole("client"), func(c *gin.Context) {
		c.String(http.StatusOK, "%s:%s", c.MustGet(ContextUserIDKey), c.GetString(ContextRoleKey))
	})
	r.GET("/admin", AuthMiddleware(fakeTokens{userID: userID, role: "client"}), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"без заголовка", "/me", "", http.StatusUnauthorized},
		{"без Bearer", "/me", "valid", http.StatusUnauthorized},
		{"неверный токен", "/me", "Bearer broken", http.StatusUnauthorized},
		{"валидный токен", "/me", "Bearer valid", http.StatusOK},
		{"чужая роль", "/admin", "Bearer valid", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK && tt.path == "/me" {
				assert.Equal(t, userID.String()+":client", w.Body.String())
			}
		})
	}
}

func TestQueryTokenAuth(t *testing.T) {
	r := gin.New()
	r.GET("/ws", QueryTokenAuth(fakeTokens{userID: uuid.New(), role: "freelancer"}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/ws", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/ws?token=broken", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/ws?token=valid", nil)).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/limited", RateLimitMiddleware(2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/limited", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}
	w := serve(r, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), string(apperror.ErrCodeRateLimited))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestGatewaySignature(t *testing.T) {
	r := gin.New()
	r.POST("/callback", GatewaySignature(fakeSignatures{}, "X-Signature"), func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		c.String(http.StatusOK, string(body))
	})

	body := `{"reference":"pay_1"}`
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewBufferString(body))
	req.Header.Set("X-Signature", "sig:"+body)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/callback", bytes.NewBufferString(body))
	req.Header.Set("X-Signature", "sig:other")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/error", func(c *gin.Context) {
		_ = c.Error(apperror.InvalidState("задание уже завершено", "completed"))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), string(apperror.ErrCodeInternal))
	assert.NotContains(t, w.Body.String(), "boom")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/error", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), string(apperror.ErrCodeInvalidState))
}

func TestCORSAndUUIDValidator(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example.com"}))
	r.GET("/jobs/:id", UUIDValidator("id"), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/jobs/"+uuid.NewString(), nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-RateLimit-Remaining")

	req = httptest.NewRequest(http.MethodGet, "/jobs/"+uuid.NewString(), nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusBadRequest, serve(r, httptest.NewRequest(http.MethodGet, "/jobs/42", nil)).Code)
}
