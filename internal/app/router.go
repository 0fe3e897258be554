package app

import (
	"quizgen_backend/docs"
	"quizgen_backend/internal/config"
	"quizgen_backend/internal/middleware"
	"quizgen_backend/internal/model"
	"quizgen_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	registerPublicRoutes(router, c)

	// 2. 教师相关接口，管理员可访问全部试卷
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		authGroup.GET("/profile", c.auth.Profile)

		teacher := authGroup.Group("/teacher")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		registerTeacherRoutes(teacher, c)
	}
}

func registerPublicRoutes(router *gin.Engine, c *controllers) {
	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)
		api.POST("/register", c.auth.Register)
		api.POST("/login", c.auth.Login)
	}

	public := api.Group("/public")
	{
		public.GET("/tests/:id", c.attempt.GetTest)
		public.POST("/tests/:id/attempts", c.attempt.Start)
		public.POST("/attempts/submit", c.attempt.Submit)
	}
}

func registerTeacherRoutes(teacher *gin.RouterGroup, c *controllers) {
	teacher.GET("/dashboard", c.report.Dashboard)
	teacher.GET("/history", c.report.History)

	tests := teacher.Group("/tests")
	{
		tests.GET("", c.test.List)
		tests.POST("", c.test.Upload)
		tests.POST("/manual", c.test.CreateManual)
		tests.GET("/:id", c.test.Get)
		tests.PUT("/:id", c.test.Update)
		tests.DELETE("/:id", c.test.Delete)
		tests.DELETE("/:id/questions/:questionId", c.test.DeleteQuestion)

		tests.GET("/:id/results", c.report.Results)
		tests.GET("/:id/results/export", c.report.Export)
		tests.GET("/:id/qr", c.report.QRCode)
	}

	teacher.GET("/results/:id/analysis", c.report.Analysis)
}
