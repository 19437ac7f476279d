package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// RateLimitMiddleware ограничивает число запросов. Ключ: пользователь, если он известен, иначе IP.
// По умолчанию: 10 запросов в минуту.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		key := c.ClientIP()
		if identity, ok := CurrentIdentity(c); ok {
			key = "user:" + identity.UserID.String()
		}

		lctx, err := instance.Get(c, key)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			response.Error(c, apperror.New(apperror.ErrCodeRateLimited, "слишком много запросов, попробуйте позже"))
			return
		}
		c.Next()
	}
}
