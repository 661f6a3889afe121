package middlewares

import (
	"bytes"
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"collegeevents/utils"
)

type cachedBody struct {
	Status int
	Header map[string][]string
	Body   []byte
}

// 把 路徑+參數 轉成 SHA1，避免 Redis key 太長
func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// CacheKeyFrom names the Redis key of a public GET. Keys are namespaced so
// utils.CacheInvalidator can drop them by prefix; an empty key means the
// request is not cacheable.
func CacheKeyFrom(c *gin.Context) string {
	path := c.FullPath() // 路由模板，例如 /api/events/:id
	if c.Request.Method != "GET" || path == "" {
		return ""
	}
	rawq := c.Request.URL.RawQuery

	switch {
	case strings.HasPrefix(path, "/api/events/:id"):
		// 原始 id 留在 key 裡，事件變動時可以精準刪（含 calendar.ics）
		id := c.Param("id")
		return utils.CacheEventItem + id + ":" + sha1Hex(path+"|"+rawq)
	case path == "/api/events":
		return utils.CacheEventsList + sha1Hex(path+"|"+rawq)
	case strings.HasPrefix(path, "/api/clubs"):
		return utils.CacheClubs + sha1Hex(path+"|"+rawq)
	default:
		return ""
	}
}

// ResponseCache serves cached 2xx GET bodies from Redis. A nil client
// disables caching.
func ResponseCache(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CacheKeyFrom(c)
		if rdb == nil || key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		// hit：直接還原 header / status / body，不呼叫 c.Next()
		if b, err := rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			var hit cachedBody
			if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&hit); err == nil {
				for k, vals := range hit.Header {
					for _, v := range vals {
						c.Writer.Header().Add(k, v)
					}
				}
				c.Writer.Header().Set("X-Cache", "HIT")
				c.Status(hit.Status)
				_, _ = c.Writer.Write(hit.Body)
				c.Abort()
				return
			}
		}

		// miss：攔截回應，寫給 client 的同時存一份
		buf := &bytes.Buffer{}
		bw := &bufferedWriter{ResponseWriter: c.Writer, buf: buf}
		c.Writer = bw
		c.Writer.Header().Set("X-Cache", "MISS")

		c.Next()

		// 只快取 2xx
		if bw.Status() >= 200 && bw.Status() < 300 {
			header := map[string][]string{}
			for k, v := range bw.Header() {
				if k == "X-Cache" || k == "X-Request-Id" {
					continue
				}
				header[k] = v
			}
			var o bytes.Buffer
			if err := gob.NewEncoder(&o).Encode(cachedBody{Status: bw.Status(), Header: header, Body: buf.Bytes()}); err == nil {
				_ = rdb.Set(ctx, key, o.Bytes(), ttl).Err()
			}
		}
	}
}

type bufferedWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)                   // 先存一份到記憶體
	return w.ResponseWriter.Write(b) // 再寫給 client
}

// Client → Redis Cache → (Miss) → handler → Redis Cache → Client
