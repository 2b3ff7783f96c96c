package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/multitenant-task-api/internal/logger"
	"github.com/yukikurage/multitenant-task-api/internal/metrics"
	"github.com/yukikurage/multitenant-task-api/internal/middleware"
	"github.com/yukikurage/multitenant-task-api/internal/services"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// RouterOptions configures the HTTP engine
type RouterOptions struct {
	Logger *zap.Logger
	// ServiceName enables request tracing when set.
	ServiceName string
}

// NewRouter builds the gin engine with every API route.
func NewRouter(svc *services.Services, opts RouterOptions) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(metrics.Middleware())
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}

	authHandler := NewAuthHandler(svc.Auth)
	tenantHandler := NewTenantHandler(svc.Tenants, svc.Memberships, svc.Projects, svc.Tasks)
	projectHandler := NewProjectHandler(svc.Projects, svc.Tasks)
	taskHandler := NewTaskHandler(svc.Tasks)
	userHandler := NewUserHandler(svc.Memberships)

	requireAuth := middleware.RequireAuth(svc.Auth)
	requireTenant := middleware.RequireTenantContext(svc.Contexts)
	requireMembership := middleware.RequireTenantMembership(svc.Contexts)
	requireAdmin := middleware.RequireAdmin()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Multi-tenant Task API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		// Public
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)

		// Bearer token only
		authed := api.Group("")
		authed.Use(requireAuth)
		{
			authed.POST("/logout", authHandler.Logout)
			authed.POST("/logout-all", authHandler.LogoutAll)
			authed.GET("/me", authHandler.Me)
			authed.POST("/switch-tenant", authHandler.SwitchTenant)
		}

		// Current tenant
		scoped := api.Group("")
		scoped.Use(requireAuth, requireTenant)
		{
			projects := scoped.Group("/projects")
			{
				projects.GET("", projectHandler.ListProjects)
				projects.POST("", requireAdmin, projectHandler.CreateProject)
				projects.GET("/:id", projectHandler.GetProject)
				projects.PUT("/:id", requireAdmin, projectHandler.UpdateProject)
				projects.DELETE("/:id", requireAdmin, projectHandler.DeleteProject)
				projects.POST("/:id/tasks/generate", requireAdmin, projectHandler.GenerateTasks)
			}

			tasks := scoped.Group("/tasks")
			{
				tasks.GET("", taskHandler.ListTasks)
				tasks.POST("", requireAdmin, taskHandler.CreateTask)
				tasks.GET("/:id", taskHandler.GetTask)
				tasks.PUT("/:id", taskHandler.UpdateTask)
				tasks.DELETE("/:id", requireAdmin, taskHandler.DeleteTask)
			}

			users := scoped.Group("/users")
			users.Use(requireAdmin)
			{
				users.GET("", userHandler.ListUsers)
				users.POST("", userHandler.InviteUser)
				users.DELETE("/:id", userHandler.RemoveUser)
			}
		}

		// Explicit tenant
		tenants := api.Group("/tenants")
		tenants.Use(requireAuth)
		{
			tenants.GET("", tenantHandler.ListTenants)
			tenants.POST("", tenantHandler.CreateTenant)

			tenant := tenants.Group("/:id")
			tenant.Use(requireMembership)
			{
				tenant.GET("", tenantHandler.GetTenant)
				tenant.PUT("", requireAdmin, tenantHandler.UpdateTenant)
				tenant.DELETE("", requireAdmin, tenantHandler.DeleteTenant)
				tenant.GET("/users", tenantHandler.ListMembers)
				tenant.POST("/users", requireAdmin, tenantHandler.CreateMember)
				tenant.POST("/members", requireAdmin, tenantHandler.AttachMember)
				tenant.PATCH("/members/:user_id", requireAdmin, tenantHandler.UpdateMemberRole)
				tenant.DELETE("/members/:user_id", tenantHandler.DetachMember)
				tenant.GET("/projects", tenantHandler.ListProjects)
				tenant.GET("/tasks", tenantHandler.ListTasks)
			}
		}
	}

	return r
}
