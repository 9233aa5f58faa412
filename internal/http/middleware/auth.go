package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/interface/http/response"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// AccessTokenParser проверяет access токен и возвращает пользователя и его роль.
type AccessTokenParser interface {
	ParseAccess(token string) (uuid.UUID, string, error)
}

// AuthMiddleware проверяет JWT access токен из заголовка Authorization.
func AuthMiddleware(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			return
		}
		authenticate(c, tokens, strings.TrimPrefix(auth, "Bearer "))
	}
}

// QueryTokenAuth берёт токен из ?token=, браузерный WebSocket не умеет слать заголовки.
func QueryTokenAuth(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("token")
		if raw == "" {
			response.Unauthorized(c, "требуется авторизация")
			return
		}
		authenticate(c, tokens, raw)
	}
}

func authenticate(c *gin.Context, tokens AccessTokenParser, raw string) {
	userID, role, err := tokens.ParseAccess(raw)
	if err != nil || userID == uuid.Nil {
		response.Unauthorized(c, "токен невалиден")
		return
	}
	c.Set(ContextUserIDKey, userID)
	c.Set(ContextRoleKey, role)
	c.Next()
}

// RequireRole пропускает только пользователей с одной из ролей.
// Роль берётся из токена, use case перепроверяет её по БД там, где это важно.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRoleKey)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "недостаточно прав для этой операции")
	}
}
