package services

import (
	"fmt"
	"time"

	"github.com/Karim-Nady/Smart-Task-Reminder/internal/models"
)

// DefaultLeadTime はタスク期限の何分前に通知を発火するかのリードタイムです。
const DefaultLeadTime = 30 * time.Minute

// ReminderService はタスクからリマインダー通知を導出します。
// 導出自体は副作用なし。永続化は呼び出し側 (TaskService) が行います。
type ReminderService struct {
	LeadTime time.Duration
}

// NewReminderService は既定の30分リードタイムでReminderServiceを作成します。
func NewReminderService() *ReminderService {
	return &ReminderService{LeadTime: DefaultLeadTime}
}

// Derive はタスクの状態からリマインダー通知を導出します。
// 通知を作らない条件 (エラーではない):
//   - 期限なし、またはリマインダー無効
//   - タスクが完了済み、またはpending以外
//   - 発火時刻 (期限 - リードタイム) がすでに過ぎている
func (s *ReminderService) Derive(task *models.Task, now time.Time) (*models.Notification, bool) {
	if task.DueDate == nil || !task.ReminderEnabled {
		return nil, false
	}
	if task.Completed || task.Status != models.StatusPending {
		return nil, false
	}

	fireAt := task.DueDate.Add(-s.LeadTime)
	if !fireAt.After(now) {
		// リードタイムがすでに経過している場合は黙って作らない
		return nil, false
	}

	return &models.Notification{
		UserID:    task.UserID,
		TaskID:    task.ID,
		FireAt:    fireAt.UTC(),
		Fired:     false,
		Message:   fmt.Sprintf("Reminder: %s is due in %d minutes", task.Title, int(s.LeadTime.Minutes())),
		Read:      false,
		CreatedAt: now.UTC(),
	}, true
}
