// Package repositories はデータベース操作を行うリポジトリを提供します。
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Karim-Nady/Smart-Task-Reminder/internal/models"
)

var ErrTaskNotFound = errors.New("task not found")

// ErrInvalidSortField はsort_byがホワイトリスト外のときに返します。
var ErrInvalidSortField = errors.New("invalid sort field")

// sortableFields はソートに使えるカラムの固定リストです。
// 任意のフィールド名をそのままSQLに入れない (SQLインジェクション対策 + スキーマ変更検知)。
var sortableFields = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"due_date":   "due_date",
	"priority":   "priority",
	"title":      "title",
	"status":     "status",
}

// TaskFilter はタスク一覧のフィルタ・ソート・ページネーション条件です。
type TaskFilter struct {
	Status    *string
	Priority  *int
	DueBefore *time.Time
	DueAfter  *time.Time
	SortBy    string // sortableFields のキーのみ許可 (空なら created_at)
	Order     string // "asc" または "desc" (空なら desc)
	Limit     int
	Offset    int
}

// TaskRepository はデータベース操作を行うための構造体です。
type TaskRepository struct {
	DB *sqlx.DB
}

// NewTaskRepository は新しいTaskRepositoryインスタンスを作成します。
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

// Create は新しいタスクをデータベースに挿入します。
func (r *TaskRepository) Create(t *models.Task) (*models.Task, error) {
	query := `INSERT INTO tasks
		(user_id, title, description, due_date, priority, status, category, completed, reminder_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.DB.Exec(query,
		t.UserID, t.Title, t.Description, t.DueDate, t.Priority, t.Status,
		t.Category, t.Completed, t.ReminderEnabled, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		log.Printf("Failed to insert task: %v", err)
		return nil, fmt.Errorf("could not insert task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("could not get last insert ID: %w", err)
	}
	t.ID = int(id)
	return t, nil
}

// FindByID は指定ユーザーが所有するタスクを取得します。
// 他人のタスクは存在も教えないため ErrTaskNotFound にします。
func (r *TaskRepository) FindByID(id, userID int) (*models.Task, error) {
	var t models.Task
	err := r.DB.Get(&t, "SELECT * FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		log.Printf("Failed to query task by ID: %v", err)
		return nil, fmt.Errorf("could not query task: %w", err)
	}
	return &t, nil
}

// FindByUser はユーザーのタスクをフィルタ条件付きで取得します。
func (r *TaskRepository) FindByUser(userID int, f TaskFilter) ([]*models.Task, error) {
	query := "SELECT * FROM tasks WHERE user_id = ?"
	args := []interface{}{userID}

	if f.Status != nil {
		query += " AND status = ?"
		args = append(args, *f.Status)
	}
	if f.Priority != nil {
		query += " AND priority = ?"
		args = append(args, *f.Priority)
	}
	if f.DueBefore != nil {
		query += " AND due_date <= ?"
		args = append(args, f.DueBefore.UTC())
	}
	if f.DueAfter != nil {
		query += " AND due_date >= ?"
		args = append(args, f.DueAfter.UTC())
	}

	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := sortableFields[sortBy]
	if !ok {
		return nil, ErrInvalidSortField
	}
	direction := "DESC"
	if f.Order == "asc" {
		direction = "ASC"
	}
	// idを第2キーにして順序を決定的にする
	query += fmt.Sprintf(" ORDER BY %s %s, id %s", column, direction, direction)

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	var tasks []*models.Task
	if err := r.DB.Select(&tasks, query, args...); err != nil {
		log.Printf("Failed to query tasks: %v", err)
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	return tasks, nil
}

// Update は指定ユーザーが所有するタスクを更新します。
func (r *TaskRepository) Update(t *models.Task) (*models.Task, error) {
	query := `UPDATE tasks SET
		title = ?, description = ?, due_date = ?, priority = ?, status = ?,
		category = ?, completed = ?, reminder_enabled = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`
	result, err := r.DB.Exec(query,
		t.Title, t.Description, t.DueDate, t.Priority, t.Status,
		t.Category, t.Completed, t.ReminderEnabled, t.UpdatedAt,
		t.ID, t.UserID,
	)
	if err != nil {
		log.Printf("Failed to update task: %v", err)
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

// Delete は指定ユーザーが所有するタスクを削除します。
// 通知は外部キーのON DELETE CASCADEで一緒に消えます。
func (r *TaskRepository) Delete(id, userID int) error {
	result, err := r.DB.Exec("DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		log.Printf("Failed to delete task: %v", err)
		return fmt.Errorf("could not delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// FindUpcoming は期限が未来のpendingタスクを期限昇順で返します。
func (r *TaskRepository) FindUpcoming(userID int, now time.Time) ([]*models.Task, error) {
	var tasks []*models.Task
	err := r.DB.Select(&tasks,
		`SELECT * FROM tasks
		 WHERE user_id = ? AND due_date IS NOT NULL AND due_date >= ? AND status = ?
		 ORDER BY due_date ASC, id ASC`,
		userID, now.UTC(), models.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query upcoming tasks: %w", err)
	}
	return tasks, nil
}

// FindOverdue は期限切れで未完了のpendingタスクを返します。
func (r *TaskRepository) FindOverdue(userID int, now time.Time) ([]*models.Task, error) {
	var tasks []*models.Task
	err := r.DB.Select(&tasks,
		`SELECT * FROM tasks
		 WHERE user_id = ? AND due_date IS NOT NULL AND due_date < ? AND status = ? AND completed = 0
		 ORDER BY due_date ASC, id ASC`,
		userID, now.UTC(), models.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query overdue tasks: %w", err)
	}
	return tasks, nil
}

// FindDueSoon はリマインダー有効で期限がwindow以内に迫った未完了タスクを返します。
func (r *TaskRepository) FindDueSoon(userID int, now time.Time, window time.Duration) ([]*models.Task, error) {
	deadline := now.Add(window)
	var tasks []*models.Task
	err := r.DB.Select(&tasks,
		`SELECT * FROM tasks
		 WHERE user_id = ? AND reminder_enabled = 1 AND completed = 0
		   AND due_date IS NOT NULL AND due_date >= ? AND due_date <= ?
		 ORDER BY due_date ASC, id ASC`,
		userID, now.UTC(), deadline.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("could not query due-soon tasks: %w", err)
	}
	return tasks, nil
}

// Insights はユーザーのタスク集計を計算します。
func (r *TaskRepository) Insights(userID int, now time.Time) (*models.Insights, error) {
	now = now.UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	todayEnd := todayStart.Add(24 * time.Hour)

	var ins models.Insights
	counts := []struct {
		dest  *int
		query string
		args  []interface{}
	}{
		{&ins.TotalTasks, "SELECT COUNT(*) FROM tasks WHERE user_id = ?", []interface{}{userID}},
		{&ins.CompletedTasks, "SELECT COUNT(*) FROM tasks WHERE user_id = ? AND completed = 1", []interface{}{userID}},
		{&ins.PendingTasks, "SELECT COUNT(*) FROM tasks WHERE user_id = ? AND status = ?", []interface{}{userID, models.StatusPending}},
		{&ins.OverdueTasks, "SELECT COUNT(*) FROM tasks WHERE user_id = ? AND due_date IS NOT NULL AND due_date < ? AND status = ? AND completed = 0", []interface{}{userID, now, models.StatusPending}},
		{&ins.TasksDueToday, "SELECT COUNT(*) FROM tasks WHERE user_id = ? AND due_date IS NOT NULL AND due_date >= ? AND due_date < ? AND completed = 0", []interface{}{userID, todayStart, todayEnd}},
		{&ins.UpcomingTasks, "SELECT COUNT(*) FROM tasks WHERE user_id = ? AND due_date IS NOT NULL AND due_date >= ? AND status = ?", []interface{}{userID, now, models.StatusPending}},
	}
	for _, c := range counts {
		if err := r.DB.Get(c.dest, c.query, c.args...); err != nil {
			return nil, fmt.Errorf("could not compute insights: %w", err)
		}
	}

	if ins.TotalTasks > 0 {
		ins.CompletionRate = float64(ins.CompletedTasks) / float64(ins.TotalTasks) * 100
	}

	// 完了済みタスクの「作成から期限まで」の平均日数
	var completed []*models.Task
	err := r.DB.Select(&completed,
		"SELECT * FROM tasks WHERE user_id = ? AND completed = 1 AND due_date IS NOT NULL",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query completed tasks: %w", err)
	}
	if len(completed) > 0 {
		totalDays := 0.0
		for _, t := range completed {
			totalDays += t.DueDate.Sub(t.CreatedAt).Hours() / 24
		}
		avg := totalDays / float64(len(completed))
		ins.AvgCompletionDays = &avg
	}

	return &ins, nil
}
