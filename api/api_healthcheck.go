package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/credstorage/go-credential-server/types"
)

type HealthCheckApi struct {
	env *types.Environment
}

func NewHealthCheckApi(env *types.Environment) *HealthCheckApi {
	return &HealthCheckApi{env: env}
}

// HealthCheck reports whether redis answers a ping.
func (a *HealthCheckApi) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := a.env.RedisClient.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "redis": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
