package main

import (
	"context"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/credstorage/go-credential-server/cache"
	"github.com/credstorage/go-credential-server/global"
	"github.com/credstorage/go-credential-server/repository"
	"github.com/credstorage/go-credential-server/services"
	"github.com/credstorage/go-credential-server/types"
)

// initRedisClient connects the credential store database and fails fast when
// redis is unreachable.
func initRedisClient(conf global.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr(),
		Username: conf.Redis.Username,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		global.Logger.Log("error", "failed to connect to redis", "addr", conf.Redis.Addr(), "error", err.Error())
		panic(err)
	}
	return client
}

// initRedisRateLimiter keeps rate limiting state in a separate redis
// database so it never collides with credential keys.
func initRedisRateLimiter(conf global.Config) *redis.Client {
	rateLimitClient := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr(),
		Username: conf.Redis.Username,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB + 1,
	})
	global.RateLimiter = redis_rate.NewLimiter(rateLimitClient)
	return rateLimitClient
}

func initCipherCache(conf global.Config) *cache.CipherCache {
	ciphers, err := cache.NewCipherCache(conf.Cache.PublicKeysCapacity)
	if err != nil {
		panic(err)
	}
	return ciphers
}

// configAuditJobs schedules the periodic access summary.
func configAuditJobs(store repository.CredentialStore, env *types.Environment) {
	auditService := services.NewAuditService(store)

	schedule := global.Conf.Audit.SummarySchedule
	if schedule == "" {
		schedule = "@every 24h"
	}
	if _, err := env.Cron.AddFunc(schedule, auditService.LogAccessSummary); err != nil {
		global.Logger.Log("error", "failed to schedule audit summary", "error", err.Error())
		panic(err)
	}
	env.Cron.Start()
}
