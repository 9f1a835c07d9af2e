package main

import (
	"fmt"
	"log"
	"os"

	_ "help_queue/docs"
	"help_queue/internal/auth"
	"help_queue/internal/handlers"
	"help_queue/internal/models"
	"help_queue/internal/storage"
	"help_queue/internal/tasks"
	"help_queue/internal/uploads"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @Title						Очередь вопросов для воркшопа
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	key := os.Getenv("ENV_CHEK")
	if key == "" {
		fmt.Println("Подключение к .env")
		err := godotenv.Load()
		if err != nil {
			log.Fatal("Ошибка получения .env")
		}
	}

	storage.ConnectDatabase()

	if err := storage.DB.AutoMigrate(&models.Queue{}, &models.Question{}); err != nil {
		log.Fatal("Ошибка при миграции... ", err.Error())
	}

	storage.SeedDefaultQueue()
	storage.InitRedis()

	tasks.InitScheduler()

	r := gin.Default()
	r.MaxMultipartMemory = uploads.MaxFileSize

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", handlers.Login)
		authGroup.POST("/refresh", handlers.RefreshToken)
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/queue", handlers.GetQueueHandler)
		apiGroup.GET("/stats", handlers.GetStatsHandler)
		apiGroup.POST("/ask", handlers.AskHandler)
	}

	instructor := r.Group("", auth.AuthMiddleware(), auth.InstructorMiddleware())
	{
		instructor.POST("/api/queue/toggle", handlers.ToggleQueueHandler)
		instructor.POST("/api/questions/:id/start", handlers.StartQuestionHandler)
		instructor.POST("/api/questions/:id/done", handlers.DoneQuestionHandler)
		instructor.POST("/api/questions/:id/cancel", handlers.CancelQuestionHandler)
		instructor.GET("/download/:id", handlers.DownloadResumeHandler)
	}

	if err := r.Run(":8080"); err != nil {
		log.Fatal("Ошибка запуска сервера...", err.Error())
	}
}
