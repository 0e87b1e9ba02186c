package services

import (
	"log"
	"time"

	"github.com/Karim-Nady/Smart-Task-Reminder/internal/clock"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/models"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/repositories"
)

// DueSoonWindow は「まもなく期限」とみなす幅です。
const DueSoonWindow = 24 * time.Hour

// TaskService はタスク関連のビジネスロジックを扱います。
// タスクの作成・更新時にリマインダー通知の導出と永続化も行います。
type TaskService struct {
	taskRepo  *repositories.TaskRepository
	notifRepo *repositories.NotificationRepository
	reminder  *ReminderService
	clock     clock.Clock
}

// NewTaskService は新しいTaskServiceを作成します。
func NewTaskService(
	taskRepo *repositories.TaskRepository,
	notifRepo *repositories.NotificationRepository,
	reminder *ReminderService,
	clk clock.Clock,
) *TaskService {
	return &TaskService{taskRepo: taskRepo, notifRepo: notifRepo, reminder: reminder, clock: clk}
}

// CreateTask は新しいタスクを作成し、条件を満たせばリマインダー通知も登録します。
// 通知の保存失敗はログだけ残してタスク作成自体は成功させます
// (タスクの方が通知より重要)。
func (s *TaskService) CreateTask(req models.TaskCreateRequest, userID int) (*models.Task, error) {
	now := s.clock.Now().UTC()

	task := &models.Task{
		UserID:          userID,
		Title:           req.Title,
		Description:     req.Description,
		DueDate:         normalizeDue(req.DueDate),
		Priority:        req.Priority,
		Status:          req.Status,
		Category:        req.Category,
		Completed:       req.Completed,
		ReminderEnabled: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if task.Priority == 0 {
		task.Priority = models.PriorityMedium
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Category == "" {
		task.Category = "General"
	}
	if req.ReminderEnabled != nil {
		task.ReminderEnabled = *req.ReminderEnabled
	}

	created, err := s.taskRepo.Create(task)
	if err != nil {
		return nil, err
	}

	s.syncReminder(created, now)
	return created, nil
}

// GetTask は指定IDのタスクを取得します (所有者チェック込み)。
func (s *TaskService) GetTask(id, userID int) (*models.Task, error) {
	return s.taskRepo.FindByID(id, userID)
}

// GetTasks はユーザーのタスク一覧をフィルタ条件付きで取得します。
func (s *TaskService) GetTasks(userID int, f repositories.TaskFilter) ([]*models.Task, error) {
	return s.taskRepo.FindByUser(userID, f)
}

// UpdateTask はタスクを部分更新します。
// 期限・リマインダー設定・完了状態が変わったときはリマインダーを導出し直し、
// 未発火の通知を置き換え (または削除) ます。発火済みの通知は変更しません。
func (s *TaskService) UpdateTask(id int, req models.TaskUpdateRequest, userID int) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(id, userID)
	if err != nil {
		return nil, err
	}

	reminderChanged := false

	if req.Title != nil {
		task.Title = *req.Title
		reminderChanged = true // メッセージにタイトルが入るため
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueDate != nil {
		task.DueDate = normalizeDue(req.DueDate)
		reminderChanged = true
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Status != nil {
		task.Status = *req.Status
		reminderChanged = true
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
		reminderChanged = true
	}
	if req.ReminderEnabled != nil {
		task.ReminderEnabled = *req.ReminderEnabled
		reminderChanged = true
	}

	now := s.clock.Now().UTC()
	task.UpdatedAt = now

	updated, err := s.taskRepo.Update(task)
	if err != nil {
		return nil, err
	}

	if reminderChanged {
		s.syncReminder(updated, now)
	}
	return updated, nil
}

// DeleteTask はタスクを削除します。通知は外部キーでカスケード削除されます。
func (s *TaskService) DeleteTask(id, userID int) error {
	return s.taskRepo.Delete(id, userID)
}

// syncReminder はタスクの現在の状態に合わせて未発火の通知を作り直します。
// 導出の結果「通知なし」なら未発火の通知を削除するだけです。
func (s *TaskService) syncReminder(task *models.Task, now time.Time) {
	notification, ok := s.reminder.Derive(task, now)
	if !ok {
		if err := s.notifRepo.DeleteUnfiredForTask(task.ID); err != nil {
			log.Printf("Failed to clear reminder for task %d: %v", task.ID, err)
		}
		return
	}
	if _, err := s.notifRepo.Upsert(notification); err != nil {
		log.Printf("Failed to save reminder for task %d: %v", task.ID, err)
	}
}

// Upcoming は期限が未来のpendingタスクを返します。
func (s *TaskService) Upcoming(userID int) ([]*models.Task, error) {
	return s.taskRepo.FindUpcoming(userID, s.clock.Now())
}

// Overdue は期限切れの未完了タスクを返します。
func (s *TaskService) Overdue(userID int) ([]*models.Task, error) {
	return s.taskRepo.FindOverdue(userID, s.clock.Now())
}

// DueSoon はリマインダー有効で期限が24時間以内のタスクを返します。
func (s *TaskService) DueSoon(userID int) ([]*models.Task, error) {
	return s.taskRepo.FindDueSoon(userID, s.clock.Now(), DueSoonWindow)
}

// Insights はタスクの集計サマリーを返します。
func (s *TaskService) Insights(userID int) (*models.Insights, error) {
	return s.taskRepo.Insights(userID, s.clock.Now())
}

// normalizeDue は期限をUTCに正規化します。nilはそのままnilです。
func normalizeDue(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
