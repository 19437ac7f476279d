package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
)

// UUIDValidator проверяет, что параметр с указанным именем является валидным UUID.
// Использование: router.GET("/transactions/:id", UUIDValidator("id"), handler.Get)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			response.ValidationFailed(c, paramName, "параметр "+paramName+" обязателен")
			return
		}
		if _, err := uuid.Parse(idStr); err != nil {
			response.ValidationFailed(c, paramName, "параметр "+paramName+" должен быть валидным UUID")
			return
		}
		c.Next()
	}
}
