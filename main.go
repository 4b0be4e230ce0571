package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/credstorage/go-credential-server/apiroutes"
	"github.com/credstorage/go-credential-server/global"
	"github.com/credstorage/go-credential-server/repository"
	"github.com/credstorage/go-credential-server/types"
)

func main() {
	var (
		configFile string
	)
	// configuration file optional path. Default: current dir with filename conf.yaml
	flag.StringVar(&configFile, "c", "conf.yaml", "Configuration file path.")
	flag.StringVar(&configFile, "config", "conf.yaml", "Configuration file path.")
	flag.Usage = usage
	flag.Parse()

	// loading configuration file
	if err := global.LoadConfig(configFile, &global.Conf); err != nil {
		global.Logger.Log("error", "failed to load configuration", "path", configFile, "error", err.Error())
		panic("failed to load configuration")
	}

	if global.Conf.Server.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	redisClient := initRedisClient(global.Conf)
	defer redisClient.Close()

	if global.Conf.RateLimit.Enabled {
		rrClient := initRedisRateLimiter(global.Conf)
		defer rrClient.Close()
	}

	env := types.NewEnvironment(redisClient)
	defer env.Cron.Stop()

	store := repository.NewRedisCredentialStore(redisClient)
	ciphers := initCipherCache(global.Conf)

	configAuditJobs(store, env)

	router := gin.New()
	router.Use(gin.Recovery())
	router = apiroutes.ConfigRoutes(router, store, ciphers, env)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", global.Conf.Server.Host, global.Conf.Server.Port),
		Handler: router,
	}

	// server wait to shutdown monitoring channels
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			global.Logger.Log("error", "server shutdown failed", "error", err.Error())
		}
		close(done)
	}()

	global.Logger.Log("Info", "server ready to handle requests", "port", global.Conf.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("%v\n", err))
	}

	<-done
}

// usage will print out the flag options for the server.
func usage() {
	usageStr := `Usage: credential-server [options]
	Server Options:
	-c, --config <file>              Configuration file path
`
	fmt.Printf("%s\n", usageStr)
	os.Exit(0)
}
