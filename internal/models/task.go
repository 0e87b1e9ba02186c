// Package modelsはタスクと通知のデータ構造を定義します。
package models

import (
	"time"
)

// タスクのステータス。原則この3値のみDBに入ります。
const (
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
	StatusDone      = "done"
)

// 優先度は 1=低, 2=中, 3=高 の3段階です。
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// Task はタスクのデータベース構造体を表します。
// JSONタグ: クライアントとの通信用
// dbタグ: sqlxでのスキャン用
type Task struct {
	ID              int        `json:"id,omitempty" db:"id"`
	UserID          int        `json:"user_id" db:"user_id"` // 所有者のユーザーID
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description" db:"description"`
	DueDate         *time.Time `json:"due_date,omitempty" db:"due_date"` // 期限なしの場合はNULL
	Priority        int        `json:"priority" db:"priority"`
	Status          string     `json:"status" db:"status"`
	Category        string     `json:"category" db:"category"`
	Completed       bool       `json:"completed" db:"completed"`
	ReminderEnabled bool       `json:"reminder_enabled" db:"reminder_enabled"` // リマインダー通知を作るかどうか
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// TaskCreateRequest はタスク作成リクエストの構造体です。
// bindingタグ: Ginでのリクエストバリデーション用 (例: titleは必須)
type TaskCreateRequest struct {
	Title           string     `json:"title" binding:"required"`
	Description     string     `json:"description"`
	DueDate         *time.Time `json:"due_date"`
	Priority        int        `json:"priority" binding:"omitempty,min=1,max=3"`
	Status          string     `json:"status" binding:"omitempty,oneof=pending cancelled done"`
	Category        string     `json:"category"`
	Completed       bool       `json:"completed"`
	ReminderEnabled *bool      `json:"reminder_enabled"` // 省略時はtrue
}

// TaskUpdateRequest はタスク更新リクエストの構造体です。
// すべてポインタにして「送られてきたフィールドだけ」更新します (部分更新)。
type TaskUpdateRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	DueDate         *time.Time `json:"due_date"`
	Priority        *int       `json:"priority" binding:"omitempty,min=1,max=3"`
	Status          *string    `json:"status" binding:"omitempty,oneof=pending cancelled done"`
	Category        *string    `json:"category"`
	Completed       *bool      `json:"completed"`
	ReminderEnabled *bool      `json:"reminder_enabled"`
}

// Insights はタスクの集計サマリーです。GET /api/tasks/summary のレスポンス。
type Insights struct {
	TotalTasks        int      `json:"total_tasks"`
	CompletedTasks    int      `json:"completed_tasks"`
	PendingTasks      int      `json:"pending_tasks"`
	OverdueTasks      int      `json:"overdue_tasks"`
	TasksDueToday     int      `json:"tasks_due_today"`
	UpcomingTasks     int      `json:"upcoming_tasks"`
	CompletionRate    float64  `json:"completion_rate"`
	AvgCompletionDays *float64 `json:"avg_completion_time,omitempty"`
}
