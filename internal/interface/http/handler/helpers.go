package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/http/middleware"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// requireIdentity достаёт участника запроса или отвечает 401.
func requireIdentity(c *gin.Context) (service.Identity, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok || identity.UserID == uuid.Nil {
		response.Unauthorized(c, "требуется авторизация")
		return service.Identity{}, false
	}
	return identity, true
}

func isAdmin(identity service.Identity) bool {
	return identity.Role == valueobject.RoleAdmin
}

// uuidParam разбирает параметр пути или отвечает 400.
func uuidParam(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.ValidationFailed(c, name, message)
		return uuid.Nil, false
	}
	return id, true
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// offsetQuery разбирает offset. Отрицательное или нечисловое значение отклоняется с 400.
func offsetQuery(c *gin.Context) (int, bool) {
	raw := c.Query("offset")
	if raw == "" {
		return 0, true
	}
	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		response.ValidationFailed(c, "offset", "offset должен быть неотрицательным целым числом")
		return 0, false
	}
	return offset, true
}

func parseInt64Query(c *gin.Context, key string) (int64, bool) {
	value, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
