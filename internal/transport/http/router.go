package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quiz-portal-service/internal/app"
	"quiz-portal-service/internal/observability"
)

// RouterConfig carries the HTTP-facing settings.
type RouterConfig struct {
	BasePath        string
	CORSOrigins     []string
	AdminJWTSecret  string
	SubmitPerMinute int
	Tracing         bool
	Logger          *zap.Logger
}

// NewRouter wires the admin, public and live routes onto a gin engine.
func NewRouter(catalog *app.CatalogService, submissions *app.SubmissionService, cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	observability.RegisterMetrics()

	router := gin.New()
	router.Use(gin.Recovery(), observability.GinLogger(logger), observability.MetricsMiddleware())
	if cfg.Tracing {
		router.Use(observability.TracingMiddleware())
	}
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", observability.MetricsHandler())

	admin := NewAdminHandler(catalog, submissions)
	public := NewPublicHandler(submissions)
	feed := NewFeedHandler(submissions, logger)

	api := router.Group(cfg.BasePath)

	adminGroup := api.Group("/admin")
	if cfg.AdminJWTSecret != "" {
		adminGroup.Use(AdminAuth(cfg.AdminJWTSecret))
	}
	{
		adminGroup.GET("/quizzes/", admin.ListQuizzes)
		adminGroup.POST("/quizzes/", admin.CreateQuiz)
		adminGroup.GET("/quizzes/:id/", admin.GetQuiz)
		adminGroup.PUT("/quizzes/:id/", admin.UpdateQuiz)
		adminGroup.DELETE("/quizzes/:id/", admin.DeleteQuiz)
		adminGroup.POST("/quizzes/:id/questions/", admin.AddQuestion)
		adminGroup.GET("/quizzes/:id/submissions/", admin.ListSubmissions)
		adminGroup.GET("/quizzes/:id/live/", feed.ServeLive)
		adminGroup.PUT("/questions/:id/", admin.UpdateQuestion)
		adminGroup.DELETE("/questions/:id/", admin.DeleteQuestion)
		adminGroup.GET("/submissions/:id/", admin.GetSubmission)
	}

	quizzes := api.Group("/quizzes")
	{
		quizzes.GET("/:slug/", public.GetQuiz)
		quizzes.POST("/:slug/submit/", RateLimiter(cfg.SubmitPerMinute), public.Submit)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
