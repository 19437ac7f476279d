package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextIdentityKey = "identity"
	ContextUserIDKey   = "user_id"
)

// AuthMiddleware проверяет JWT access токен.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		identity, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil || identity.UserID == uuid.Nil {
			response.Unauthorized(c, "токен невалиден")
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Set(ContextUserIDKey, identity.UserID)
		c.Next()
	}
}

// RequireRole пропускает только пользователей с указанной ролью. Ставится после AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			response.Unauthorized(c, "требуется авторизация")
			return
		}
		if identity.Role != role {
			response.Forbidden(c, "недостаточно прав")
			return
		}
		c.Next()
	}
}

// CurrentIdentity участник текущего запроса.
func CurrentIdentity(c *gin.Context) (service.Identity, bool) {
	value, exists := c.Get(ContextIdentityKey)
	if !exists {
		return service.Identity{}, false
	}
	identity, ok := value.(service.Identity)
	return identity, ok
}
