package routes

import (
	"sales-ops-api/internal/handlers"
	"sales-ops-api/internal/middleware"
	"sales-ops-api/internal/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes() *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
	ginRouter.Use(middleware.RequestID())

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Sales operations API is running",
		})
	})

	// Public routes (no authentication required)
	authPublic := ginRouter.Group("/auth")
	{
		authPublic.POST("/login", handlers.Login)
		authPublic.POST("/register", handlers.Register)
	}

	// Account and admin routes
	authProtected := ginRouter.Group("/auth")
	authProtected.Use(middleware.RequireAuth())
	{
		authProtected.POST("/logout", handlers.Logout)
		authProtected.GET("/profile", handlers.GetProfile)
		authProtected.PUT("/profile", handlers.UpdateProfile)
		authProtected.POST("/change-password", handlers.ChangePassword)

		admin := authProtected.Group("")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/users", handlers.GetAllUsers)
			admin.PUT("/users/:id", handlers.UpdateUser)
			admin.DELETE("/users/:id", handlers.DeleteUser)

			admin.GET("/departments", handlers.GetDepartments)
			admin.POST("/departments", handlers.CreateDepartment)
			admin.PUT("/departments/:id", handlers.UpdateDepartment)
			admin.GET("/departments/:id/users", handlers.GetDepartmentUsers)
			admin.GET("/departments/:id/permissions", handlers.GetDepartmentPermissions)
			admin.PUT("/departments/:id/permissions", handlers.SetDepartmentPermissions)
		}
	}

	// Business routes (authentication required)
	api := ginRouter.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		// Task endpoints
		api.GET("/tasks", handlers.ListTasks)
		api.GET("/tasks/due-soon", handlers.TasksDueSoon)
		api.GET("/tasks/:id", handlers.GetTask)
		api.POST("/tasks", handlers.CreateTask)
		api.PUT("/tasks/:id", handlers.UpdateTask)
		api.DELETE("/tasks/:id", handlers.DeleteTask)
		api.POST("/tasks/:id/approve", handlers.ApproveTask)
		api.POST("/tasks/:id/deliver", handlers.DeliverTask)
		api.GET("/tasks/:id/comments", handlers.ListTaskComments)
		api.POST("/tasks/:id/comments", handlers.CreateTaskComment)

		// Notification endpoints
		api.GET("/notifications", handlers.ListNotifications)
		api.GET("/notifications/unread-count", handlers.UnreadCount)
		api.POST("/notifications/:id/read", handlers.MarkNotificationRead)

		// Daily planning endpoints
		api.GET("/planning/today", handlers.GetTodayPlanning)
		api.POST("/planning/today", handlers.SaveTodayPlanning)
		api.GET("/planning/month", handlers.GetMonthPlanning)
		api.GET("/planning/day", handlers.GetDayPlanning)
		api.DELETE("/planning/day", middleware.RequireRoles(models.RoleAdmin), handlers.DeleteDayPlanning)
		api.GET("/planning/years", handlers.GetPlanningYears)
		api.GET("/planning/months", handlers.GetPlanningMonths)
		api.GET("/planning/archive/departments", handlers.PlanningArchiveDepartments)

		// Department picker (any authenticated user)
		api.GET("/departments/simple", handlers.ListSimpleDepartments)

		// Target endpoints
		api.GET("/targets", handlers.ListTargets)
		api.POST("/targets", handlers.CreateTarget)
		api.PUT("/targets/:id", handlers.UpdateTarget)
		api.DELETE("/targets/:id", handlers.DeleteTarget)
		api.GET("/targets/representative/:id", handlers.RepresentativeTarget)

		// Sales and returns endpoints
		api.GET("/sales", handlers.ListSales)
		api.POST("/sales", middleware.RequirePermission("sales", models.ActionEdit), handlers.CreateSale)
		api.GET("/returns", handlers.ListReturns)
		api.POST("/returns", middleware.RequirePermission("returns", models.ActionEdit), handlers.CreateReturn)

		// Report endpoints
		api.GET("/reports/summary", handlers.ReportSummary)
		api.GET("/reports/representatives", handlers.ReportRepresentatives)

		// Audit log (admin)
		api.GET("/activity-logs", middleware.RequireRoles(models.RoleAdmin), handlers.ListActivityLogs)

		// Realtime notification stream
		api.GET("/ws", handlers.WebSocketHandler)
	}

	return ginRouter
}
