package models

import "time"

// Notification はタスクのリマインダー通知を表します。
// タスク作成時に fire_at = due_date - 30分 で作られ、
// バックグラウンドのスイープ処理が fire_at を過ぎた行を fired=true に遷移させます。
type Notification struct {
	ID     int `json:"id,omitempty" db:"id"`
	UserID int `json:"user_id" db:"user_id"` // タスク所有者のユーザーID
	TaskID int `json:"task_id" db:"task_id"`

	// FireAt: 通知を発火すべき時刻。作成時に一度だけ決まります。
	FireAt time.Time `json:"fire_at" db:"fire_at"`

	// Fired: false→true に一度だけ遷移。書き換えるのはスイープ処理のみ。
	Fired bool `json:"fired" db:"fired"`

	// Message: 表示用のテキスト (例: "Reminder: 買い物 is due in 30 minutes")
	Message string `json:"message" db:"message"`

	// Read: ユーザーが既読にしたかどうか。Firedとは独立だが、
	// fired=false のうちは既読にできません。
	Read bool `json:"read" db:"read"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
