package thumbs

import "time"

// TimerHandle is a cancellable pending timer.
type TimerHandle interface {
	Stop() bool
}

// TimerFactory schedules fn after d. Tests substitute a manual factory so
// backoff is exercised without real sleeps.
type TimerFactory func(d time.Duration, fn func()) TimerHandle

func realTimer(d time.Duration, fn func()) TimerHandle {
	return time.AfterFunc(d, fn)
}

// scheduledTask is the single outstanding continuation for a session. It
// records which attempt it carries and after what delay, so cancellation on
// asset switch is one deterministic call.
type scheduledTask struct {
	timer   TimerHandle
	attempt int
	delay   time.Duration
}

func (t *scheduledTask) cancel() {
	if t == nil || t.timer == nil {
		return
	}
	t.timer.Stop()
}
