package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/http/middleware"
	"github.com/ignatzorin/gig-marketplace/internal/interface/http/response"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// currentUser достаёт пользователя, положенного AuthMiddleware. При ошибке ответ уже отправлен.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		response.Unauthorized(c, "требуется авторизация")
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	if !ok {
		response.Unauthorized(c, "требуется авторизация")
		return uuid.Nil, false
	}
	return userID, true
}

func currentRole(c *gin.Context) valueobject.Role {
	return valueobject.Role(c.GetString(middleware.ContextRoleKey))
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "некорректный идентификатор "+name)
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return false
	}
	return true
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// page читает limit/offset и ограничивает их разумными значениями.
func page(c *gin.Context) (int, int) {
	limit := parseIntQuery(c, "limit", defaultLimit)
	offset := parseIntQuery(c, "offset", 0)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
