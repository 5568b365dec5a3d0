package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/oklib/courseflow/internal/app/controllers"
	"github.com/oklib/courseflow/internal/middleware"
)

// SetupRouter configures all API routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	sectionController *controllers.SectionController,
	requestController *controllers.RequestController,
	adminController *controllers.AdminController,
	authMiddleware *middleware.AuthMiddleware,
) {
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	{
		auth.POST("/login", authController.Login)
	}

	// Authenticated routes
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		sections := authenticated.Group("/sections")
		{
			sections.GET("/term/:term", sectionController.GetByTerm)
			sections.GET("/:code", sectionController.Get)
		}

		requests := authenticated.Group("/requests")
		{
			requests.POST("", requestController.Submit)
			requests.GET("", requestController.GetMine)
			requests.GET("/:code", requestController.Get)
			requests.GET("/:code/site", requestController.GetCanvasSite)
		}

		// Staff-only routes
		admin := authenticated.Group("/admin")
		admin.Use(authMiddleware.StaffRequired())
		{
			admin.GET("/requests", adminController.GetRequests)
			admin.PUT("/requests/:code", adminController.UpdateRequest)
			admin.POST("/requests/:code/approve", adminController.ApproveRequest)
			admin.POST("/requests/:code/lock", adminController.LockRequest)
			admin.POST("/requests/:code/cancel", adminController.CancelRequest)
			admin.POST("/requests/:code/provision", adminController.ProvisionRequest)
			admin.POST("/provision", adminController.ProvisionApproved)

			admin.POST("/sync/:term", adminController.SyncTerm)

			admin.GET("/autoadds", adminController.GetAutoAdds)
			admin.POST("/autoadds", adminController.CreateAutoAdd)
			admin.DELETE("/autoadds/:id", adminController.DeleteAutoAdd)

			admin.GET("/schools", adminController.GetSchools)
			admin.PUT("/schools/:code", adminController.UpdateSchool)
		}
	}
}
