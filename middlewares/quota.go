package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"collegeevents/logger"
)

type QuotaRule struct {
	Limit  int                       // 視窗內允許幾次
	Window time.Duration             // 視窗大小，例如 24 小時
	KeyFn  func(*gin.Context) string // 用什麼區分配額，空字串 = 不計
}

// Quota counts requests per key in Redis with INCR + EXPIRE. Without Redis,
// or when Redis errors, requests pass.
func Quota(rdb *redis.Client, rule QuotaRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || rule.Limit <= 0 {
			c.Next()
			return
		}
		key := rule.KeyFn(c)
		if key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		// key 不存在時 Redis 會從 0 開始加
		n, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Redis 掛了 → 降級放行
			logger.Log.Warn("quota check skipped", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		// 第一次建立 key 才設視窗
		if n == 1 {
			_ = rdb.Expire(ctx, key, rule.Window).Err()
		}
		if int(n) > rule.Limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Usage quota exceeded. Please try again later.",
			})
			return
		}
		c.Header("X-Quota-Used", fmt.Sprintf("%d/%d", n, rule.Limit)) // X-Quota-Used: 5/50
		c.Next()
	}
}
