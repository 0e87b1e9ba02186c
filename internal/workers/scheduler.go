package workers

import (
	"log"
	"os"
	"sync"
	"time"
)

// DefaultSweepInterval はスイープ周期の既定値です。
// 正確なタイマーではなく周期ポーリングなので、遅れは発火を遅らせるだけで、
// 早発火や二重発火にはなりません。
const DefaultSweepInterval = time.Minute

// SweepIntervalFromEnv は環境変数SWEEP_INTERVALから周期を読み取ります。
// 未設定・不正値のときは既定の1分です。
func SweepIntervalFromEnv() time.Duration {
	raw := os.Getenv("SWEEP_INTERVAL")
	if raw == "" {
		return DefaultSweepInterval
	}
	interval, err := time.ParseDuration(raw)
	if err != nil || interval <= 0 {
		log.Printf("Invalid SWEEP_INTERVAL %q, using default %s", raw, DefaultSweepInterval)
		return DefaultSweepInterval
	}
	return interval
}

// Scheduler は一定周期でSweeperを起動するループです。
// プロセス起動時にStartを一度呼び、シャットダウンでStopを呼びます。
// ループは1つのゴルーチンなのでスイープが同時に2つ走ることはありません。
// スイープ中に次のティックが来た場合は待たせる方針です (スキップではなく遅延)。
type Scheduler struct {
	sweeper  *Sweeper
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler は新しいSchedulerを作成します。
func NewScheduler(sweeper *Sweeper, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Scheduler{sweeper: sweeper, interval: interval}
}

// Start はスイープループを開始します。二重起動はno-opです。
// 起動直後に一度スイープするので、プロセス停止中に期限が来た通知も
// 次の周期を待たずに拾えます。
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.run(s.stopCh)
	log.Printf("Reminder scheduler started (interval: %s)", s.interval)
}

// Stop はループを止め、実行中のスイープが終わるまで待ちます。
// mark-firedのバッチが途中で切られることはありません。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("Reminder scheduler stopped")
}

// Running はループが動作中かどうかを返します。
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepOnce()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

// sweepOnce は1回のスイープを実行します。
// ストレージ障害はログに残すだけで、次のティックで自然に再試行されます。
func (s *Scheduler) sweepOnce() {
	fired, err := s.sweeper.Sweep()
	if err != nil {
		log.Printf("Reminder sweep failed (will retry next tick): %v", err)
		return
	}
	if fired > 0 {
		log.Printf("Reminder sweep fired %d notification(s)", fired)
	}
}
