// Package clock は現在時刻の取得を抽象化します。
// リマインダーの発火判定は時刻に依存するため、テストで時間を進められるように注入可能にしています。
package clock

import "time"

// Clock は現在時刻を返すインターフェースです。
type Clock interface {
	Now() time.Time
}

// systemClock は実際のシステム時刻を返します。
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// System は本番用のClockを返します。
func System() Clock {
	return systemClock{}
}

// Mock はテスト用の固定時刻Clockです。Setで任意の時刻に変更できます。
type Mock struct {
	now time.Time
}

// NewMock は指定時刻で固定されたMockを作成します。
func NewMock(now time.Time) *Mock {
	return &Mock{now: now}
}

func (m *Mock) Now() time.Time {
	return m.now
}

// Set は現在時刻を差し替えます。
func (m *Mock) Set(now time.Time) {
	m.now = now
}

// Advance は現在時刻をdだけ進めます。
func (m *Mock) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}
