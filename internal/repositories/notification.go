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

var (
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrNotificationForbidden = errors.New("notification belongs to another user")

	// ErrNotificationUnfired は未発火の通知を既読にしようとしたときに返します。
	// 発火前の既読には意味がないため拒否します。
	ErrNotificationUnfired = errors.New("notification has not fired yet")
)

// NotificationRepository はリマインダー通知のデータベース操作を行います。
// fired の書き換えは MarkFired だけが行い、リクエスト経路からは呼びません。
type NotificationRepository struct {
	DB *sqlx.DB
}

// NewNotificationRepository は新しいNotificationRepositoryインスタンスを作成します。
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

// Upsert はタスクのリマインダーを作成または置き換えます。
// 同じタスクの未発火の通知はトランザクション内で削除してから挿入します。
// すでに発火済みの通知には触りません。
func (r *NotificationRepository) Upsert(n *models.Notification) (*models.Notification, error) {
	tx, err := r.DB.Beginx()
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM notifications WHERE task_id = ? AND fired = 0", n.TaskID); err != nil {
		log.Printf("Failed to delete stale notification: %v", err)
		return nil, fmt.Errorf("could not delete stale notification: %w", err)
	}

	result, err := tx.Exec(
		"INSERT INTO notifications (user_id, task_id, fire_at, fired, message, `read`, created_at) VALUES (?, ?, ?, 0, ?, 0, ?)",
		n.UserID, n.TaskID, n.FireAt.UTC(), n.Message, n.CreatedAt.UTC(),
	)
	if err != nil {
		log.Printf("Failed to insert notification: %v", err)
		return nil, fmt.Errorf("could not insert notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("could not get last insert ID: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit notification upsert: %w", err)
	}

	n.ID = int(id)
	return n, nil
}

// DeleteUnfiredForTask はタスクの未発火の通知を削除します。
// タスクの期限変更や完了でリマインダーが不要になったときに使います。
func (r *NotificationRepository) DeleteUnfiredForTask(taskID int) error {
	if _, err := r.DB.Exec("DELETE FROM notifications WHERE task_id = ? AND fired = 0", taskID); err != nil {
		log.Printf("Failed to delete unfired notifications: %v", err)
		return fmt.Errorf("could not delete unfired notifications: %w", err)
	}
	return nil
}

// DueUnfired は fire_at がnow以前で未発火の通知をfire_at昇順で返します。
func (r *NotificationRepository) DueUnfired(now time.Time) ([]*models.Notification, error) {
	var notifications []*models.Notification
	err := r.DB.Select(&notifications,
		"SELECT * FROM notifications WHERE fired = 0 AND fire_at <= ? ORDER BY fire_at ASC, id ASC",
		now.UTC(),
	)
	if err != nil {
		log.Printf("Failed to query due notifications: %v", err)
		return nil, fmt.Errorf("could not query due notifications: %w", err)
	}
	return notifications, nil
}

// MarkFired は指定IDの集合をまとめて発火済みにします。空集合はno-opです。
// WHERE句の fired = 0 条件により、並行するスイープが同じ行を
// 二重に発火させても2回目は0行更新で済みます。
func (r *NotificationRepository) MarkFired(ids []int) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In("UPDATE notifications SET fired = 1 WHERE id IN (?) AND fired = 0", ids)
	if err != nil {
		return fmt.Errorf("could not build mark-fired query: %w", err)
	}
	query = r.DB.Rebind(query)

	if _, err := r.DB.Exec(query, args...); err != nil {
		log.Printf("Failed to mark notifications fired: %v", err)
		return fmt.Errorf("could not mark notifications fired: %w", err)
	}
	return nil
}

// ListFiredForUser はユーザー宛の発火済み通知を新しい順で返します。
func (r *NotificationRepository) ListFiredForUser(userID int) ([]*models.Notification, error) {
	var notifications []*models.Notification
	err := r.DB.Select(&notifications,
		"SELECT * FROM notifications WHERE user_id = ? AND fired = 1 ORDER BY created_at DESC, id DESC",
		userID,
	)
	if err != nil {
		log.Printf("Failed to query fired notifications: %v", err)
		return nil, fmt.Errorf("could not query fired notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead は通知を既読にします。
//   - 存在しない → ErrNotificationNotFound
//   - 他人の通知 → ErrNotificationForbidden
//   - 未発火     → ErrNotificationUnfired
//   - 既に既読   → 成功扱い (冪等)
func (r *NotificationRepository) MarkRead(id, userID int) error {
	var n models.Notification
	err := r.DB.Get(&n, "SELECT * FROM notifications WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotificationNotFound
		}
		log.Printf("Failed to query notification: %v", err)
		return fmt.Errorf("could not query notification: %w", err)
	}

	if n.UserID != userID {
		return ErrNotificationForbidden
	}
	if !n.Fired {
		return ErrNotificationUnfired
	}
	if n.Read {
		return nil
	}

	if _, err := r.DB.Exec("UPDATE notifications SET `read` = 1 WHERE id = ?", id); err != nil {
		log.Printf("Failed to mark notification read: %v", err)
		return fmt.Errorf("could not mark notification read: %w", err)
	}
	return nil
}
