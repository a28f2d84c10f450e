// File: trustlink/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trustlink/config"
	"trustlink/cron"
	"trustlink/database"
	clientRepoPkg "trustlink/database/repository/client"
	deviceRepoPkg "trustlink/database/repository/device"
	grantRepoPkg "trustlink/database/repository/grant"
	userRepoPkg "trustlink/database/repository/user"
	"trustlink/handlers"
	"trustlink/middleware"
	"trustlink/routes"
	"trustlink/services/deviceauth"
	"trustlink/services/notification"
	"trustlink/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(cors.Default())

	// Repositories.
	deviceRepo := deviceRepoPkg.NewMongoDeviceRepo()
	userRepo := userRepoPkg.NewMongoUserRepo()
	clientRepo := clientRepoPkg.NewMongoClientRepo()

	// Single-use code stores.
	transactionStore := grantRepoPkg.NewRedisAuthorizationTransactionStore(utils.GetAuthCodeCacheClient())
	challengeStore := grantRepoPkg.NewRedisDeviceGrantChallengeStore(utils.GetDeviceCodeCacheClient())

	// Notification queue and worker.
	notifier, err := notification.NewAsynqLoginNotifier()
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize login notifier: %v", err)
	}
	defer notifier.Close()
	cron.InitLoginEventWorker(&notification.PushSender{Users: userRepo})

	// Core validation service.
	authService := &deviceauth.Service{
		Devices:      deviceRepo,
		Users:        userRepo,
		Clients:      clientRepo,
		Transactions: transactionStore,
		Challenges:   challengeStore,
		OTP:          deviceauth.NewRedisOTPVerifier(),
		Notifier:     notifier,
	}

	// Handlers.
	registrationHandler := handlers.NewRegistrationHandler(authService, deviceRepo)
	grantHandler := handlers.NewGrantHandler(authService, clientRepo)
	otpHandler := handlers.NewOTPHandler(userRepo)
	deviceHandler := handlers.NewDeviceHandler(deviceRepo)

	routes.RegisterRoutes(router, registrationHandler, grantHandler, otpHandler, deviceHandler)

	utils.StartHealthMonitor(
		[]*redis.Client{
			utils.GetAuthCodeCacheClient(),
			utils.GetDeviceCodeCacheClient(),
			utils.GetOTPCacheClient(),
		},
		database.MongoClient,
	)

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.AppPort,
		Handler: router,
	}

	go func() {
		logger.Sugar().Infof("main: listening on port %s", config.AppConfig.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: forced shutdown: %v", err)
	}
	logger.Info("main: server exited")
}
