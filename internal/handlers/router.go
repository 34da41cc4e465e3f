package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-todo-api/internal/middleware"
	"github.com/yukikurage/team-todo-api/internal/services"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth     *services.AuthService
	Users    *services.UserService
	Tasks    *services.TaskService
	TaskType *services.TaskTypeService
	Devices  *services.DeviceService
}

// RouterOptions carries the pieces of the router that come from config.
type RouterOptions struct {
	HelpDir        string
	LoginLimiter   *middleware.RateLimiter
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// NewRouter builds the gin engine with every route of the API.
func NewRouter(svc Services, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())
	if opts.Logger != nil {
		r.Use(middleware.AccessLog(opts.Logger))
	}

	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Users)
	taskHandler := NewTaskHandler(svc.Tasks)
	taskTypeHandler := NewTaskTypeHandler(svc.TaskType)
	deviceHandler := NewDeviceHandler(svc.Devices)
	helpHandler := NewHelpHandler(opts.HelpDir)

	requireAuth := middleware.RequireAuth(svc.Auth)

	r.GET("/health", Health)
	if opts.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	api := r.Group("/api")
	{
		api.GET("/help", helpHandler.Guide)

		authGroup := api.Group("/auth")
		{
			login := []gin.HandlerFunc{authHandler.Login}
			if opts.LoginLimiter != nil {
				login = append([]gin.HandlerFunc{opts.LoginLimiter.Middleware()}, login...)
			}
			authGroup.POST("/login", login...)
			authGroup.GET("/validate", requireAuth, authHandler.Validate)
			authGroup.POST("/logout", requireAuth, authHandler.Logout)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("/created", middleware.RequireManager(), userHandler.ListCreated)
			users.GET("/manageable", middleware.RequireManager(), userHandler.ListManageable)
			users.GET("/:id", userHandler.GetUser)
			users.POST("", middleware.RequireManager(), userHandler.CreateUser)
			users.PUT("/:id", middleware.RequireManager(), userHandler.UpdateUser)
			users.DELETE("/:id", middleware.RequireManager(), userHandler.DeleteUser)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("/created", middleware.RequireManager(), taskHandler.ListCreated)
			tasks.GET("/assigned", taskHandler.ListAssigned)
			tasks.GET("/assigned/:userId", middleware.RequireManager(), taskHandler.ListAssignedToUser)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.POST("", middleware.RequireManager(), taskHandler.CreateTask)
			tasks.PUT("/:id", middleware.RequireManager(), taskHandler.UpdateTask)
			tasks.PATCH("/:id/confirmed", taskHandler.SetConfirmed)
			tasks.PATCH("/:id/complete", middleware.RequireManager(), taskHandler.CompleteTask)
			tasks.DELETE("/:id", middleware.RequireManager(), taskHandler.DeleteTask)
		}

		taskTypes := api.Group("/task-types")
		taskTypes.Use(requireAuth)
		{
			taskTypes.GET("", taskTypeHandler.ListTaskTypes)
			taskTypes.POST("", middleware.RequireAdmin(), taskTypeHandler.CreateTaskType)
			taskTypes.PUT("/:id", middleware.RequireAdmin(), taskTypeHandler.RenameTaskType)
			taskTypes.PATCH("/:id/access", middleware.RequireAdmin(), taskTypeHandler.SetAccessibility)
		}

		devices := api.Group("/devices")
		devices.Use(requireAuth)
		{
			devices.POST("", deviceHandler.RegisterDevice)
			devices.DELETE("", deviceHandler.UnregisterAllDevices)
			devices.DELETE("/:token", deviceHandler.UnregisterDevice)
		}
	}

	return r
}
