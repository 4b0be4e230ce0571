package apiroutes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/credstorage/go-credential-server/api"
	"github.com/credstorage/go-credential-server/api/interceptors"
	"github.com/credstorage/go-credential-server/cache"
	"github.com/credstorage/go-credential-server/global"
	"github.com/credstorage/go-credential-server/metrics"
	"github.com/credstorage/go-credential-server/repository"
	"github.com/credstorage/go-credential-server/services"
	"github.com/credstorage/go-credential-server/types"
)

// REST API routes
func ConfigRoutes(router *gin.Engine, store repository.CredentialStore, ciphers *cache.CipherCache, env *types.Environment) *gin.Engine {
	router.Use(cors.Default())
	router.Use(interceptors.RequestIDMiddleware())

	// init metrics
	if global.Conf.Prometheus.Enabled {
		metrics.InitMetrics()
		metrics.RegisterCipherCacheMetrics(ciphers)

		authorized := router.Group("/metrics", gin.BasicAuth(gin.Accounts{
			global.Conf.Prometheus.Username: global.Conf.Prometheus.Password,
		}))
		authorized.GET("", gin.WrapH(promhttp.Handler()))
	}

	// SERVICE definitions
	credentialService := services.NewCredentialService(store, ciphers)
	auditService := services.NewAuditService(store)

	// API definitions
	credentialApi := api.NewCredentialApi(credentialService)
	auditApi := api.NewAuditApi(auditService)
	healthApi := api.NewHealthCheckApi(env)

	middlewares := []gin.HandlerFunc{metrics.MetricsMiddleware()}
	if global.Conf.RateLimit.Enabled {
		middlewares = append(middlewares, interceptors.RateLimitMiddleware())
	}

	publicApi := router.Group("/api", middlewares...)
	{
		publicApi.GET("/v1/credential", credentialApi.GetCredential)
		publicApi.POST("/v1/credential", credentialApi.StoreCredential)
		publicApi.PUT("/v1/credential", credentialApi.UpdateCredential)
		publicApi.DELETE("/v1/credential", credentialApi.DeleteCredential)
		publicApi.GET("/v1/healthcheck", healthApi.HealthCheck)
	}

	// audit endpoints stay behind basic auth, matching the admin-only
	// surface of the service
	auditGroup := router.Group("/api/v1/audit", gin.BasicAuth(gin.Accounts{
		global.Conf.Audit.Username: global.Conf.Audit.Password,
	}), metrics.MetricsMiddleware())
	{
		auditGroup.GET("", auditApi.GetCredential)
		auditGroup.GET("/list", auditApi.ListIdentities)
		auditGroup.GET("/last_accessed", auditApi.LastAccessedSince)
	}

	return router
}
