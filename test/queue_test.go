package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"help_queue/internal/handlers"
	"help_queue/internal/models"
	"help_queue/internal/queue"
	"help_queue/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// InstructorMiddlewareTest подменяет проверку JWT на заголовок X-Test-Role.
func InstructorMiddlewareTest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Header.Get("X-Test-Role") != handlers.RoleInstructor {
			c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN"})
			c.Abort()
			return
		}
		c.Set("role", handlers.RoleInstructor)
		c.Next()
	}
}

func setupTestServer() *httptest.Server {
	key := os.Getenv("ENV_CHEK")
	if key == "" {
		fmt.Println("Подключение к .env")
		err := godotenv.Load("../.env")
		if err != nil {
			log.Fatal("Ошибка получения .env")
		}
	}

	storage.ConnectTestingDatabase()
	storage.DB.Exec("TRUNCATE TABLE queues, questions RESTART IDENTITY CASCADE;")

	if err := storage.DB.AutoMigrate(&models.Queue{}, &models.Question{}); err != nil {
		log.Fatal("Ошибка при миграции... ", err.Error())
	}

	storage.InitRedis()

	r := gin.Default()

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

	instructor := r.Group("", InstructorMiddlewareTest())
	{
		instructor.POST("/api/queue/toggle", handlers.ToggleQueueHandler)
		instructor.POST("/api/questions/:id/start", handlers.StartQuestionHandler)
		instructor.POST("/api/questions/:id/done", handlers.DoneQuestionHandler)
		instructor.POST("/api/questions/:id/cancel", handlers.CancelQuestionHandler)
		instructor.GET("/download/:id", handlers.DownloadResumeHandler)
	}

	return httptest.NewServer(r)
}

// askRequest собирает multipart-запрос к /api/ask.
func askRequest(t *testing.T, url, name, body string, fileName string, fileContent []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", name))
	require.NoError(t, w.WriteField("question_body", body))
	if fileName != "" {
		fw, err := w.CreateFormFile("resume", fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileContent)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest("POST", url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, res *http.Response) map[string]interface{} {
	t.Helper()
	defer res.Body.Close()
	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	return payload
}

func TestQuestionFlow(t *testing.T) {
	ts := setupTestServer()
	defer ts.Close()

	// Очередь открыта с самого начала.
	testQueue := models.Queue{Course: "Тестовый воркшоп", IsOpen: true}
	require.NoError(t, storage.DB.Create(&testQueue).Error)

	askURL := ts.URL + "/api/ask"

	// Пустой вопрос отклоняется, запись не создаётся.
	res, err := http.DefaultClient.Do(askRequest(t, askURL, "Иван", "   ", "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	payload := decodeJSON(t, res)
	assert.Equal(t, "VALIDATION_ERROR", payload["code"])

	var count int64
	storage.DB.Model(&models.Question{}).Count(&count)
	assert.EqualValues(t, 0, count)

	// Валидный вопрос создаётся в статусе waiting.
	res, err = http.DefaultClient.Do(askRequest(t, askURL, "Иван", "Посмотрите моё резюме", "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	payload = decodeJSON(t, res)
	assert.Equal(t, queue.StatusWaiting, payload["status"])
	questionID := int(payload["id"].(float64))

	// Гость не может выполнять действия инструктора.
	guestReq, _ := http.NewRequest("POST", ts.URL+"/api/questions/"+strconv.Itoa(questionID)+"/start", nil)
	res, err = http.DefaultClient.Do(guestReq)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// Инструктор берёт вопрос в работу.
	startReq, _ := http.NewRequest("POST", ts.URL+"/api/questions/"+strconv.Itoa(questionID)+"/start", nil)
	startReq.Header.Set("X-Test-Role", handlers.RoleInstructor)
	res, err = http.DefaultClient.Do(startReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	payload = decodeJSON(t, res)
	assert.Equal(t, queue.StatusHelping, payload["status"])

	var afterStart models.Question
	require.NoError(t, storage.DB.First(&afterStart, questionID).Error)
	assert.NotNil(t, afterStart.StartedAt, "После start должен быть установлен started_at")

	// Инструктор отменяет вопрос.
	cancelReq, _ := http.NewRequest("POST", ts.URL+"/api/questions/"+strconv.Itoa(questionID)+"/cancel", nil)
	cancelReq.Header.Set("X-Test-Role", handlers.RoleInstructor)
	res, err = http.DefaultClient.Do(cancelReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	payload = decodeJSON(t, res)
	assert.Equal(t, queue.StatusCancelled, payload["status"])

	var afterCancel models.Question
	require.NoError(t, storage.DB.First(&afterCancel, questionID).Error)
	assert.NotNil(t, afterCancel.FinishedAt, "После cancel должен быть установлен finished_at")

	// Повторный start по отменённому вопросу — no-op с текущим статусом.
	staleReq, _ := http.NewRequest("POST", ts.URL+"/api/questions/"+strconv.Itoa(questionID)+"/start", nil)
	staleReq.Header.Set("X-Test-Role", handlers.RoleInstructor)
	res, err = http.DefaultClient.Do(staleReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	payload = decodeJSON(t, res)
	assert.Equal(t, queue.StatusCancelled, payload["status"])

	// Инструктор закрывает очередь, новые вопросы отклоняются.
	toggleReq, _ := http.NewRequest("POST", ts.URL+"/api/queue/toggle", nil)
	toggleReq.Header.Set("X-Test-Role", handlers.RoleInstructor)
	res, err = http.DefaultClient.Do(toggleReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	payload = decodeJSON(t, res)
	assert.Equal(t, false, payload["is_open"])

	res, err = http.DefaultClient.Do(askRequest(t, askURL, "Пётр", "Ещё вопрос", "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	payload = decodeJSON(t, res)
	assert.Equal(t, "QUEUE_CLOSED", payload["code"])
}

func TestAskWithResume(t *testing.T) {
	ts := setupTestServer()
	defer ts.Close()
	t.Setenv("UPLOAD_DIR", t.TempDir())

	testQueue := models.Queue{Course: "Тестовый воркшоп", IsOpen: true}
	require.NoError(t, storage.DB.Create(&testQueue).Error)

	askURL := ts.URL + "/api/ask"

	// Недопустимое расширение — запрос отклоняется до записи в базу.
	res, err := http.DefaultClient.Do(askRequest(t, askURL, "Иван", "Вопрос", "virus.exe", []byte("MZ")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	payload := decodeJSON(t, res)
	assert.Equal(t, "UNSUPPORTED_EXTENSION", payload["code"])

	var count int64
	storage.DB.Model(&models.Question{}).Count(&count)
	assert.EqualValues(t, 0, count)

	// Вопрос с pdf-резюме.
	res, err = http.DefaultClient.Do(askRequest(t, askURL, "Иван", "Посмотрите резюме", "resume.pdf", []byte("%PDF-1.4 test")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	payload = decodeJSON(t, res)
	questionID := int(payload["id"].(float64))

	var question models.Question
	require.NoError(t, storage.DB.First(&question, questionID).Error)
	require.NotNil(t, question.ResumeFilename)
	require.NotNil(t, question.ResumeOrigName)
	assert.Equal(t, "resume.pdf", *question.ResumeOrigName)

	// Инструктор скачивает файл под оригинальным именем.
	dlReq, _ := http.NewRequest("GET", ts.URL+"/download/"+strconv.Itoa(questionID), nil)
	dlReq.Header.Set("X-Test-Role", handlers.RoleInstructor)
	res, err = http.DefaultClient.Do(dlReq)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Disposition"), "resume.pdf")
}

func TestStatsEndpoint(t *testing.T) {
	ts := setupTestServer()
	defer ts.Close()

	testQueue := models.Queue{Course: "Тестовый воркшоп", IsOpen: true}
	require.NoError(t, storage.DB.Create(&testQueue).Error)

	res, err := http.DefaultClient.Do(askRequest(t, ts.URL+"/api/ask", "Иван", "Вопрос", "", nil))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	statsRes, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, statsRes.StatusCode)
	payload := decodeJSON(t, statsRes)

	queueInfo, ok := payload["queue"].(map[string]interface{})
	require.True(t, ok, "В ответе статистики отсутствует поле queue")
	assert.Equal(t, true, queueInfo["is_open"])

	counts, ok := payload["counts"].(map[string]interface{})
	require.True(t, ok, "В ответе статистики отсутствует поле counts")
	assert.EqualValues(t, 1, counts[queue.StatusWaiting])
	assert.EqualValues(t, 0, counts[queue.StatusDone])

	// Ни один вопрос ещё не брался в работу — оценка ожидания нулевая.
	assert.EqualValues(t, 0, payload["avg_wait_minutes"])
}

func TestLoginRoles(t *testing.T) {
	ts := setupTestServer()
	defer ts.Close()

	login := func(body string) *http.Response {
		res, err := http.Post(ts.URL+"/auth/login", "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		return res
	}

	// Без кода — гость.
	res := login(`{"name": "Иван"}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	payload := decodeJSON(t, res)
	assert.Equal(t, handlers.RoleGuest, payload["role"])
	assert.NotEmpty(t, payload["access_token"])

	// Неверный код инструктора.
	res = login(`{"name": "Иван", "code": "wrong-code"}`)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	payload = decodeJSON(t, res)
	assert.Equal(t, "INVALID_CODE", payload["code"])
}
