package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/harmonia-mx/campus-api/internal/middleware"
	"github.com/harmonia-mx/campus-api/internal/models"
	"github.com/harmonia-mx/campus-api/internal/service"
	"github.com/harmonia-mx/campus-api/pkg/config"
)

// Handlers groups every route handler the router mounts.
type Handlers struct {
	Auth        *AuthHandler
	Campuses    *CampusHandler
	Students    *StudentHandler
	Tutors      *TutorHandler
	Classes     *ClassHandler
	Instruments *InstrumentHandler
	Teachers    *TeacherHandler
	Transfers   *TransferHandler
	Sheets      *SheetHandler
	Users       *UserHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts the API. Three protection tiers: public (login,
// signed file downloads, health), authenticated (campus selection and
// the shared catalogue), and campus-scoped (everything operating on one
// campus's registry).
func RegisterRoutes(r *gin.Engine, h Handlers, authSvc *service.AuthService, cookie config.CookieConfig, apiPrefix string) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)
	r.GET("/files/sheets", h.Sheets.Download)

	api := r.Group(apiPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc, cookie))
	{
		authed.POST("/auth/select-campus", h.Auth.SelectCampus)
		authed.POST("/auth/logout", h.Auth.Logout)
		authed.GET("/auth/me", h.Auth.Me)

		authed.GET("/campuses", h.Campuses.List)
		authed.GET("/campuses/:id", h.Campuses.Get)

		authed.GET("/sheets", h.Sheets.List)
		authed.GET("/sheets/:id", h.Sheets.Get)
		authed.GET("/sheets/:id/url", h.Sheets.SignedURL)
		authed.POST("/sheets", h.Sheets.Upload)
		authed.DELETE("/sheets/:id", h.Sheets.Archive)
	}

	admin := api.Group("")
	admin.Use(middleware.JWT(authSvc, cookie), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/campuses", h.Campuses.Create)
		admin.PUT("/campuses/:id", h.Campuses.Update)
		admin.DELETE("/campuses/:id", h.Campuses.Archive)

		admin.GET("/users", h.Users.List)
		admin.GET("/users/:id", h.Users.Get)
		admin.POST("/users", h.Users.Create)
		admin.PUT("/users/:id", h.Users.Update)
	}

	scoped := api.Group("")
	scoped.Use(middleware.JWT(authSvc, cookie), middleware.RequireCampus())
	{
		scoped.GET("/students", h.Students.List)
		scoped.GET("/students/:id", h.Students.Get)
		scoped.POST("/students", h.Students.Create)
		scoped.PUT("/students/:id", h.Students.Update)

		scoped.GET("/tutors", h.Tutors.List)
		scoped.GET("/tutors/:id", h.Tutors.Get)
		scoped.PUT("/tutors/:id", h.Tutors.Update)

		scoped.GET("/classes", h.Classes.List)
		scoped.GET("/classes/:id", h.Classes.Get)
		scoped.POST("/classes", h.Classes.Create)
		scoped.PUT("/classes/:id", h.Classes.Update)
		scoped.DELETE("/classes/:id", h.Classes.Archive)

		scoped.GET("/instruments", h.Instruments.List)
		scoped.GET("/instruments/:id", h.Instruments.Get)
		scoped.POST("/instruments", h.Instruments.Create)
		scoped.PUT("/instruments/:id", h.Instruments.Update)
		scoped.DELETE("/instruments/:id", h.Instruments.Delete)

		scoped.GET("/teachers", h.Teachers.List)
		scoped.GET("/teachers/:id", h.Teachers.Get)
		scoped.POST("/teachers", h.Teachers.Create)
		scoped.PUT("/teachers/:id", h.Teachers.Update)
		scoped.DELETE("/teachers/:id", h.Teachers.Archive)

		scoped.GET("/transfers", h.Transfers.List)
		scoped.GET("/transfers/export", h.Transfers.Export)
		scoped.GET("/transfers/:id", h.Transfers.Get)
		scoped.POST("/transfers", h.Transfers.Create)
	}
}
