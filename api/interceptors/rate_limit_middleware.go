package interceptors

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"

	"github.com/credstorage/go-credential-server/global"
)

const defaultRequestsPerSecond = 5

// RateLimitMiddleware throttles per caller. The public-key header is the
// natural caller handle; requests without it fall back to the client IP.
func RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetHeader("X-Auth-RSA")
		if caller == "" {
			caller = clientIP(c)
		}
		hash := xxhash.Sum64String(caller)

		limit := global.Conf.RateLimit.RequestsPerSecond
		if limit <= 0 {
			limit = defaultRequestsPerSecond
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		result, err := global.RateLimiter.Allow(ctx, strconv.FormatUint(hash, 10), redis_rate.PerSecond(limit))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "failed to perform rate limit check"})
			return
		}
		if result.Allowed <= 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "too many requests"})
			return
		}

		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit.Rate))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Writer.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(result.ResetAfter.Milliseconds())))
		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	ip := c.Request.Header.Get("X-Real-IP")
	if len(ip) > 0 {
		return ip
	}
	ip = c.Request.Header.Get("X-Forwarded-For")
	ipList := strings.Split(ip, ",")
	if len(ipList[0]) > 0 {
		return ipList[0]
	}
	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return "unknown"
	}
	return ip
}
