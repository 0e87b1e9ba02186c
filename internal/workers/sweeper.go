// Package workers はバックグラウンドのリマインダー発火処理を提供します。
package workers

import (
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/clock"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/repositories"
)

// Sweeper は発火時刻を過ぎた未発火の通知を fired=true に遷移させます。
// 状態はすべてデータベースにあり、Sweeper自身はティック間で何も覚えません。
// 失敗したティックのやり直しは「次のティックでまた全部拾う」だけで済みます。
type Sweeper struct {
	notifRepo *repositories.NotificationRepository
	clock     clock.Clock
}

// NewSweeper は新しいSweeperを作成します。
func NewSweeper(notifRepo *repositories.NotificationRepository, clk clock.Clock) *Sweeper {
	return &Sweeper{notifRepo: notifRepo, clock: clk}
}

// Sweep は1回のスイープを実行し、発火させた通知の数を返します。
//  1. nowをティック開始時に一度だけ取得する (行ごとに読み直さない)
//  2. fired=0 かつ fire_at<=now の通知を取得
//  3. 空なら何もしない (エラーでもない)
//  4. 取得したID集合をまとめて発火済みにする
//
// 発火済みの行はDueUnfiredに二度と現れないため、同じnowで再実行しても冪等です。
func (s *Sweeper) Sweep() (int, error) {
	now := s.clock.Now()

	due, err := s.notifRepo.DueUnfired(now)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	ids := make([]int, 0, len(due))
	for _, n := range due {
		ids = append(ids, n.ID)
	}

	if err := s.notifRepo.MarkFired(ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}
