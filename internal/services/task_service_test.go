package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karim-Nady/Smart-Task-Reminder/internal/clock"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/models"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/repositories"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/services"
	"github.com/Karim-Nady/Smart-Task-Reminder/testutil"
)

// newTaskServiceForTest はSQLiteのテストDBとモック時計でTaskServiceを組み立てます。
func newTaskServiceForTest(t *testing.T, now time.Time) (*services.TaskService, *repositories.NotificationRepository, *clock.Mock, int) {
	t.Helper()

	db := testutil.OpenTestDB(t)
	userRepo := repositories.NewUserRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	notifRepo := repositories.NewNotificationRepository(db)
	mock := clock.NewMock(now)

	user := testutil.CreateTestUser(t, userRepo, "svc_user", "svc_user@example.com", "password123")
	svc := services.NewTaskService(taskRepo, notifRepo, services.NewReminderService(), mock)
	return svc, notifRepo, mock, user.ID
}

func TestCreateTask_PersistsReminder(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	svc, notifRepo, _, userID := newTaskServiceForTest(t, now)

	due := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	task, err := svc.CreateTask(models.TaskCreateRequest{Title: "Submit report", DueDate: &due}, userID)
	require.NoError(t, err)

	// 期限の30分前の未発火通知が保存される
	pending, err := notifRepo.DueUnfired(due)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, task.ID, pending[0].TaskID)
	assert.True(t, pending[0].FireAt.Equal(due.Add(-30*time.Minute)))
	assert.Equal(t, "Reminder: Submit report is due in 30 minutes", pending[0].Message)
	assert.False(t, pending[0].Fired)
}

func TestCreateTask_TooLateForReminder(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	svc, notifRepo, _, userID := newTaskServiceForTest(t, now)

	// 期限まで15分しかない → 発火時刻が過去なので通知は作られない
	due := now.Add(15 * time.Minute)
	_, err := svc.CreateTask(models.TaskCreateRequest{Title: "Rush job", DueDate: &due}, userID)
	require.NoError(t, err)

	pending, err := notifRepo.DueUnfired(due)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCreateTask_Defaults(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	svc, _, _, userID := newTaskServiceForTest(t, now)

	task, err := svc.CreateTask(models.TaskCreateRequest{Title: "Bare"}, userID)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, "General", task.Category)
	assert.True(t, task.ReminderEnabled)
	assert.Nil(t, task.DueDate)
}

func TestUpdateTask_RederivesReminder(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	svc, notifRepo, _, userID := newTaskServiceForTest(t, now)

	due := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	task, err := svc.CreateTask(models.TaskCreateRequest{Title: "Call dentist", DueDate: &due}, userID)
	require.NoError(t, err)

	// 期限を後ろにずらすと未発火通知が置き換わる
	newDue := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	_, err = svc.UpdateTask(task.ID, models.TaskUpdateRequest{DueDate: &newDue}, userID)
	require.NoError(t, err)

	pending, err := notifRepo.DueUnfired(newDue)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].FireAt.Equal(newDue.Add(-30*time.Minute)))
}

func TestUpdateTask_CompletionClearsUnfiredReminder(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	svc, notifRepo, _, userID := newTaskServiceForTest(t, now)

	due := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	task, err := svc.CreateTask(models.TaskCreateRequest{Title: "Water plants", DueDate: &due}, userID)
	require.NoError(t, err)

	completed := true
	status := models.StatusDone
	_, err = svc.UpdateTask(task.ID, models.TaskUpdateRequest{Completed: &completed, Status: &status}, userID)
	require.NoError(t, err)

	pending, err := notifRepo.DueUnfired(due)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUpdateTask_FiredReminderUntouched(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	svc, notifRepo, mock, userID := newTaskServiceForTest(t, now)

	due := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	task, err := svc.CreateTask(models.TaskCreateRequest{Title: "Ship package", DueDate: &due}, userID)
	require.NoError(t, err)

	// 発火済みにしてからタスクを変更しても、通知フィードには残り続ける
	pending, err := notifRepo.DueUnfired(due)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NoError(t, notifRepo.MarkFired([]int{pending[0].ID}))

	mock.Set(due.Add(time.Hour))
	disabled := false
	_, err = svc.UpdateTask(task.ID, models.TaskUpdateRequest{ReminderEnabled: &disabled}, userID)
	require.NoError(t, err)

	feed, err := notifRepo.ListFiredForUser(userID)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, task.ID, feed[0].TaskID)
}

func TestDeleteTask_RemovesReminders(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	svc, notifRepo, _, userID := newTaskServiceForTest(t, now)

	due := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	task, err := svc.CreateTask(models.TaskCreateRequest{Title: "Old chore", DueDate: &due}, userID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(task.ID, userID))

	pending, err := notifRepo.DueUnfired(due)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFeatureQueries(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	svc, _, _, userID := newTaskServiceForTest(t, now)

	overdueDue := now.Add(-2 * time.Hour)
	soonDue := now.Add(6 * time.Hour)
	farDue := now.Add(72 * time.Hour)
	for _, d := range []*time.Time{&overdueDue, &soonDue, &farDue} {
		_, err := svc.CreateTask(models.TaskCreateRequest{Title: "T", DueDate: d}, userID)
		require.NoError(t, err)
	}

	upcoming, err := svc.Upcoming(userID)
	require.NoError(t, err)
	assert.Len(t, upcoming, 2)

	overdue, err := svc.Overdue(userID)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.True(t, overdue[0].DueDate.Equal(overdueDue))

	dueSoon, err := svc.DueSoon(userID)
	require.NoError(t, err)
	require.Len(t, dueSoon, 1)
	assert.True(t, dueSoon[0].DueDate.Equal(soonDue))
}
