package queue

import (
	"testing"
	"time"

	"help_queue/internal/models"
	"help_queue/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createFinished создаёт done-вопрос с заданным временем создания и ожиданием до начала помощи.
func createFinished(t *testing.T, queueID uint, createdAt time.Time, waited time.Duration) {
	t.Helper()
	started := createdAt.Add(waited)
	finished := started.Add(time.Minute)
	q := models.Question{
		QueueID:    queueID,
		Name:       "Иван",
		Body:       "Вопрос",
		Status:     StatusDone,
		StartedAt:  &started,
		FinishedAt: &finished,
	}
	q.CreatedAt = createdAt
	require.NoError(t, storage.DB.Create(&q).Error)
}

func TestEstimateWaitEmpty(t *testing.T) {
	resetTables(t)
	q := createTestQueue(t, true)

	// Только waiting-вопросы — в выборку не попадают.
	createQuestionInStatus(t, q.ID, StatusWaiting)

	minutes, err := EstimateWait(q.ID, DefaultWindowHours)
	require.NoError(t, err)
	assert.Equal(t, 0, minutes)
}

func TestEstimateWaitMean(t *testing.T) {
	resetTables(t)
	q := createTestQueue(t, true)

	createdAt := time.Now().Add(-time.Hour)
	createFinished(t, q.ID, createdAt, 10*time.Minute)
	createFinished(t, q.ID, createdAt, 20*time.Minute)
	createFinished(t, q.ID, createdAt, 30*time.Minute)

	minutes, err := EstimateWait(q.ID, DefaultWindowHours)
	require.NoError(t, err)
	assert.Equal(t, 20, minutes)
}

func TestEstimateWaitIncludesHelping(t *testing.T) {
	resetTables(t)
	q := createTestQueue(t, true)

	createdAt := time.Now().Add(-time.Hour)
	createFinished(t, q.ID, createdAt, 10*time.Minute)
	createFinished(t, q.ID, createdAt, 20*time.Minute)
	createFinished(t, q.ID, createdAt, 30*time.Minute)

	// helping-вопрос без started_at: вместо него подставляется текущий момент,
	// вопрос создан 5 минут назад — его вклад около 5 минут.
	helping := models.Question{QueueID: q.ID, Name: "Пётр", Body: "Вопрос", Status: StatusHelping}
	helping.CreatedAt = time.Now().Add(-5 * time.Minute)
	require.NoError(t, storage.DB.Create(&helping).Error)

	// Среднее (10+20+30+5)/4 = 16.25 → округляется до 16.
	minutes, err := EstimateWait(q.ID, DefaultWindowHours)
	require.NoError(t, err)
	assert.Equal(t, 16, minutes)
}

func TestEstimateWaitWindow(t *testing.T) {
	resetTables(t)
	q := createTestQueue(t, true)

	// Вопрос старше окна в выборку не попадает.
	createFinished(t, q.ID, time.Now().Add(-7*time.Hour), 45*time.Minute)

	minutes, err := EstimateWait(q.ID, DefaultWindowHours)
	require.NoError(t, err)
	assert.Equal(t, 0, minutes)

	// В широком окне тот же вопрос учитывается.
	minutes, err = EstimateWait(q.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 45, minutes)
}

func TestEstimateWaitIgnoresOtherQueues(t *testing.T) {
	resetTables(t)
	q := createTestQueue(t, true)
	other := createTestQueue(t, true)

	createFinished(t, other.ID, time.Now().Add(-time.Hour), 50*time.Minute)

	minutes, err := EstimateWait(q.ID, DefaultWindowHours)
	require.NoError(t, err)
	assert.Equal(t, 0, minutes)
}
