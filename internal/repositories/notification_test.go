package repositories_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karim-Nady/Smart-Task-Reminder/internal/models"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/repositories"
	"github.com/Karim-Nady/Smart-Task-Reminder/testutil"
)

// seedUserAndTask は外部キーを満たすためのユーザーとタスクを作ります。
func seedUserAndTask(t *testing.T, userRepo *repositories.UserRepository, taskRepo *repositories.TaskRepository, email string) (*models.User, *models.Task) {
	t.Helper()

	user := testutil.CreateTestUser(t, userRepo, email, email+"@example.com", "password123")

	now := time.Now().UTC()
	task, err := taskRepo.Create(&models.Task{
		UserID:          user.ID,
		Title:           "Test Task",
		Priority:        models.PriorityMedium,
		Status:          models.StatusPending,
		Category:        "General",
		ReminderEnabled: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	require.NoError(t, err)
	return user, task
}

func newNotification(user *models.User, task *models.Task, fireAt time.Time) *models.Notification {
	return &models.Notification{
		UserID:    user.ID,
		TaskID:    task.ID,
		FireAt:    fireAt,
		Message:   "Reminder: Test Task is due in 30 minutes",
		CreatedAt: time.Now().UTC(),
	}
}

func TestNotificationUpsert_ReplacesUnfired(t *testing.T) {
	db := testutil.OpenTestDB(t)
	userRepo := repositories.NewUserRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	notifRepo := repositories.NewNotificationRepository(db)

	user, task := seedUserAndTask(t, userRepo, taskRepo, "upsert_user")

	fireAt1 := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	first, err := notifRepo.Upsert(newNotification(user, task, fireAt1))
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	// 同じタスクにもう一度Upsert → 未発火の古い通知は置き換えられる
	fireAt2 := time.Date(2025, 1, 1, 11, 30, 0, 0, time.UTC)
	second, err := notifRepo.Upsert(newNotification(user, task, fireAt2))
	require.NoError(t, err)

	due, err := notifRepo.DueUnfired(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 1, "タスク1つにつき未発火の通知は1つだけ")
	assert.Equal(t, second.ID, due[0].ID)
	assert.True(t, due[0].FireAt.Equal(fireAt2))
}

func TestNotificationDueUnfired_OrderAndBoundary(t *testing.T) {
	db := testutil.OpenTestDB(t)
	userRepo := repositories.NewUserRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	notifRepo := repositories.NewNotificationRepository(db)

	user, task1 := seedUserAndTask(t, userRepo, taskRepo, "due_user")
	now := time.Now().UTC()
	task2, err := taskRepo.Create(&models.Task{
		UserID: user.ID, Title: "Second", Priority: 2, Status: models.StatusPending,
		Category: "General", ReminderEnabled: true, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	task3, err := taskRepo.Create(&models.Task{
		UserID: user.ID, Title: "Third", Priority: 2, Status: models.StatusPending,
		Category: "General", ReminderEnabled: true, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	later := newNotification(user, task1, base.Add(20*time.Minute))
	earlier := newNotification(user, task2, base.Add(10*time.Minute))
	future := newNotification(user, task3, base.Add(2*time.Hour))

	_, err = notifRepo.Upsert(later)
	require.NoError(t, err)
	_, err = notifRepo.Upsert(earlier)
	require.NoError(t, err)
	_, err = notifRepo.Upsert(future)
	require.NoError(t, err)

	// 30分後の時点では2件が対象。fire_at昇順で返る
	due, err := notifRepo.DueUnfired(base.Add(30 * time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, earlier.TaskID, due[0].TaskID)
	assert.Equal(t, later.TaskID, due[1].TaskID)

	// fire_atちょうどの時刻も「期限到来」に含む (fire_at <= now)
	due, err = notifRepo.DueUnfired(base.Add(10 * time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, earlier.TaskID, due[0].TaskID)
}

func TestNotificationMarkFired(t *testing.T) {
	db := testutil.OpenTestDB(t)
	userRepo := repositories.NewUserRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	notifRepo := repositories.NewNotificationRepository(db)

	user, task := seedUserAndTask(t, userRepo, taskRepo, "fired_user")

	fireAt := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	n, err := notifRepo.Upsert(newNotification(user, task, fireAt))
	require.NoError(t, err)

	// 空集合はno-op
	require.NoError(t, notifRepo.MarkFired(nil))
	require.NoError(t, notifRepo.MarkFired([]int{}))

	require.NoError(t, notifRepo.MarkFired([]int{n.ID}))

	// 発火済みの行はDueUnfiredに二度と現れない
	due, err := notifRepo.DueUnfired(fireAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	// 同じIDをもう一度発火させても害はない (fired=0条件で0行更新)
	require.NoError(t, notifRepo.MarkFired([]int{n.ID}))

	fired, err := notifRepo.ListFiredForUser(user.ID)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.True(t, fired[0].Fired)
}

func TestNotificationMarkRead(t *testing.T) {
	db := testutil.OpenTestDB(t)
	userRepo := repositories.NewUserRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	notifRepo := repositories.NewNotificationRepository(db)

	user, task := seedUserAndTask(t, userRepo, taskRepo, "read_user")
	other := testutil.CreateTestUser(t, userRepo, "read_other", "read_other@example.com", "password123")

	fireAt := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	n, err := notifRepo.Upsert(newNotification(user, task, fireAt))
	require.NoError(t, err)

	// 存在しないID
	err = notifRepo.MarkRead(99999, user.ID)
	require.ErrorIs(t, err, repositories.ErrNotificationNotFound)

	// 未発火のうちは既読にできない
	err = notifRepo.MarkRead(n.ID, user.ID)
	require.ErrorIs(t, err, repositories.ErrNotificationUnfired)

	require.NoError(t, notifRepo.MarkFired([]int{n.ID}))

	// 他人の通知は既読にできない
	err = notifRepo.MarkRead(n.ID, other.ID)
	require.ErrorIs(t, err, repositories.ErrNotificationForbidden)

	// 本人なら既読にできる
	require.NoError(t, notifRepo.MarkRead(n.ID, user.ID))

	// 2回目も成功扱い (冪等)
	require.NoError(t, notifRepo.MarkRead(n.ID, user.ID))

	fired, err := notifRepo.ListFiredForUser(user.ID)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.True(t, fired[0].Read)
}

func TestNotificationCascadeDeleteWithTask(t *testing.T) {
	db := testutil.OpenTestDB(t)
	userRepo := repositories.NewUserRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	notifRepo := repositories.NewNotificationRepository(db)

	user, task := seedUserAndTask(t, userRepo, taskRepo, "cascade_user")

	fireAt := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	_, err := notifRepo.Upsert(newNotification(user, task, fireAt))
	require.NoError(t, err)

	// タスク削除で通知も消える (外部キーのON DELETE CASCADE)
	require.NoError(t, taskRepo.Delete(task.ID, user.ID))

	due, err := notifRepo.DueUnfired(fireAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}
