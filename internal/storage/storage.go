package storage

import (
	"context"
	"fmt"
	"log"
	"os"

	"help_queue/internal/models"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDatabase() {
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Ошибка подключения к базе данных:", err)
	}

	DB = db
	fmt.Println("Подключение к базе данных успешно!")
}

func ConnectTestingDatabase() {
	host := os.Getenv("TEST_DB_HOST")
	port := os.Getenv("TEST_DB_PORT")
	user := os.Getenv("TEST_DB_USER")
	password := os.Getenv("TEST_DB_PASSWORD")
	dbname := os.Getenv("TEST_DB_NAME")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Ошибка подключения к тестовой базе данных:", err)
	}

	DB = db
	fmt.Println("Подключение к тестовой базе данных успешно!")
}

var (
	ctx         = context.Background()
	RedisClient *redis.Client
)

func InitRedis() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
}

// SeedDefaultQueue создаёт очередь по умолчанию, если в базе ещё нет ни одной.
// Текущей очередью всегда считается последняя созданная.
func SeedDefaultQueue() {
	var count int64
	if err := DB.Model(&models.Queue{}).Count(&count).Error; err != nil {
		log.Fatal("Ошибка проверки очередей:", err)
	}
	if count > 0 {
		return
	}

	course := os.Getenv("DEFAULT_COURSE")
	if course == "" {
		course = "AHS Resume Review Workshop"
	}

	queue := models.Queue{Course: course, IsOpen: true}
	if err := DB.Create(&queue).Error; err != nil {
		log.Fatal("Ошибка создания очереди по умолчанию:", err)
	}
	log.Printf("Создана очередь по умолчанию '%s' (ID %d)\n", course, queue.ID)
}
