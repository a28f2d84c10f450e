// File: trustlink/routes/routes.go
package routes

import (
	"trustlink/handlers"
	"trustlink/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the protocol endpoints onto the router.
func RegisterRoutes(
	router *gin.Engine,
	registration *handlers.RegistrationHandler,
	grant *handlers.GrantHandler,
	otp *handlers.OTPHandler,
	device *handlers.DeviceHandler,
) {
	router.GET("/health", handlers.HealthHandler)

	// Two-phase enrollment, behind a valid bearer token carried in the
	// request itself (the validators re-check it).
	registrationGroup := router.Group("/auth/device/register")
	{
		registrationGroup.POST("/init", registration.InitHandler)
		registrationGroup.POST("/complete", registration.CompleteHandler)
		registrationGroup.POST("/otp", otp.SendOTPHandler)
	}

	// Recurring device login.
	grantGroup := router.Group("/auth/device")
	{
		grantGroup.POST("/preauth", grant.PreAuthHandler)
		grantGroup.POST("/token", grant.DeviceGrantHandler)
	}

	// Owner-scoped device management.
	deviceGroup := router.Group("/devices")
	deviceGroup.Use(middleware.JWTAuthMiddleware())
	{
		deviceGroup.GET("", device.ListDevicesHandler)
		deviceGroup.POST("/:deviceId/revoke", device.RevokeDeviceHandler)
		deviceGroup.DELETE("/:deviceId", device.DeleteDeviceHandler)
	}
}
