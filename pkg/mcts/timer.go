package mcts

import (
	"time"
)

type timer struct {
	start    time.Time
	duration time.Duration
}

func newTimer() *timer {
	return &timer{time.Now(), -1}
}

// Check if this timer has ended
func (t *timer) IsEnd() bool {
	return t.duration > 0 && time.Since(t.start) >= t.duration
}

func (t *timer) IsSet() bool {
	return t.duration > 0
}

// Set the 'start' as now
func (t *timer) Reset() {
	t.start = time.Now()
}

func (t *timer) Start() time.Time {
	return t.start
}

func (t *timer) Deltatime() time.Duration {
	return time.Since(t.start)
}

// Non-positive durations disable the timer
func (t *timer) Movetime(movetime time.Duration) {
	if movetime <= 0 {
		t.duration = -1
	} else {
		t.duration = movetime
	}
}
