package router

import (
	"uptree/internal/handlers"
	"uptree/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// Handlers
	authHandler := handlers.NewAuthHandler()
	clientHandler := handlers.NewClientHandler()
	planHandler := handlers.NewPlanHandler()
	notificationHandler := handlers.NewNotificationHandler()

	api := r.Group("/api")

	// Public Routes
	api.POST("/login", authHandler.Login)

	// Protected Routes
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/me", authHandler.Me)
		authorized.POST("/logout", authHandler.Logout)
		authorized.POST("/password", authHandler.ChangePassword)

		authorized.GET("/clients/:id", clientHandler.Get)                // account record
		authorized.GET("/clients/:id/slots", clientHandler.Slots)       // open positions
		authorized.GET("/clients/:id/children", clientHandler.Children) // direct children
		authorized.GET("/clients/:id/downline", clientHandler.Downline) // flat subtree
		authorized.GET("/clients/:id/tree", clientHandler.Tree)         // nested subtree
		authorized.GET("/clients/:id/stats", clientHandler.Stats)       // downline summary

		authorized.GET("/plans", planHandler.List)
		authorized.GET("/plans/:id", planHandler.Get)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)
	}

	// Admin Routes
	admin := api.Group("/")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.POST("/clients", clientHandler.Create) // create-and-place
		admin.GET("/clients", clientHandler.List)

		admin.POST("/plans", planHandler.Create)
		admin.PUT("/plans/:id", planHandler.Update)
		admin.DELETE("/plans/:id", planHandler.Delete)
	}
}
