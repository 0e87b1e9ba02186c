// Package routesはroutingを行います。
package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Karim-Nady/Smart-Task-Reminder/internal/clock"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/handlers"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/repositories"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/services"
)

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(db *sqlx.DB, clk clock.Clock) *gin.Engine {
	r := gin.Default()

	// CORS対策
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = true
	r.Use(cors.New(config))

	// リポジトリ
	taskRepo := repositories.NewTaskRepository(db)
	notifRepo := repositories.NewNotificationRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// サービス
	reminderService := services.NewReminderService()
	taskService := services.NewTaskService(taskRepo, notifRepo, reminderService, clk)
	notificationService := services.NewNotificationService(notifRepo)
	userService := services.NewUserService(userRepo, clk)
	jwtService := services.NewJWTService()

	// ハンドラー
	userHandler := handlers.NewUserHandler(userService, jwtService)
	taskHandler := handlers.NewTaskHandler(taskService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// ルーティング
	r.GET("/api/dbcheck", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database connection failed", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Database connection is healthy"})
	})
	r.POST("/api/register", userHandler.RegisterHandler)
	r.POST("/api/login", userHandler.LoginHandler)

	authorized := r.Group("/")
	authorized.Use(AuthMiddleware(jwtService))
	{
		// 固定パスはパラメータ付きルートより先に登録する
		authorized.GET("/api/tasks/upcoming", taskHandler.GetUpcomingTasksHandler)
		authorized.GET("/api/tasks/overdue", taskHandler.GetOverdueTasksHandler)
		authorized.GET("/api/tasks/due-soon", taskHandler.GetDueSoonTasksHandler)
		authorized.GET("/api/tasks/summary", taskHandler.GetInsightsHandler)

		authorized.GET("/api/tasks", taskHandler.GetTasksHandler)
		authorized.GET("/api/tasks/:id", taskHandler.GetTaskByIDHandler)
		authorized.POST("/api/tasks", taskHandler.CreateTaskHandler)
		authorized.PUT("/api/tasks/:id", taskHandler.UpdateTaskHandler)
		authorized.DELETE("/api/tasks/:id", taskHandler.DeleteTaskHandler)

		authorized.GET("/api/notifications", notificationHandler.GetNotificationsHandler)
		authorized.POST("/api/notifications/:id/read", notificationHandler.MarkNotificationReadHandler)

		authorized.GET("/api/protected", userHandler.ProtectedHandler)
	}

	return r
}
