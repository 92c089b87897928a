package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tazhate/classsync/config"
	"github.com/tazhate/classsync/internal/api/handler"
	"github.com/tazhate/classsync/internal/api/middleware"
	"github.com/tazhate/classsync/internal/auth"
)

// Setup builds the gin engine with every route
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *auth.Manager, users middleware.UserEnsurer, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.AllowOrigins))
	// room for the multipart envelope around the image
	r.Use(middleware.BodyLimit(cfg.Server.MaxUploadBytes() + 1<<20))

	r.GET("/health", h.Health.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", h.Health.Health)
		v1.GET("/reminder-options", h.Class.ReminderOptions)

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, users, logger))
		{
			authorized.POST("/timetables/extract", h.Class.Extract)

			classes := authorized.Group("/classes")
			{
				classes.GET("", h.Class.ListClasses)
				classes.POST("", h.Class.SaveSchedule)
				classes.DELETE("", h.Class.ResetSchedule)
				classes.GET("/today", h.Class.TodayClasses)
				classes.GET("/:id/next", h.Class.NextOccurrence)
				classes.DELETE("/:id", h.Class.DeleteClass)
			}

			authorized.POST("/calendar/sync", h.Calendar.Sync)

			export := authorized.Group("/export")
			{
				export.GET("/ics", h.Export.ExportICS)
				export.GET("/xlsx", h.Export.ExportXLSX)
			}

			authorized.GET("/me", h.User.Me)
			authorized.PUT("/me/telegram", h.User.LinkTelegram)
		}
	}

	return r
}
