package mcts

import (
	"context"
	"math"
	"strings"
	"sync/atomic"
	"time"
)

type StopReason int

const (
	StopNone      StopReason = 0
	StopInterrupt StopReason = 1  // Stopped by calling .SetStop(true) or by context cancellation
	StopMovetime  StopReason = 2  // Time limit reached
	StopMemory    StopReason = 4  // Node or memory limit reached
	StopDepth     StopReason = 8  // Depth limit reached
	StopCycles    StopReason = 16 // Cycle limit reached
)

func (sr StopReason) String() string {
	if sr == StopNone {
		return "None"
	}

	reasons := []struct {
		flag StopReason
		name string
	}{
		{StopInterrupt, "Interrupt"},
		{StopMovetime, "Movetime"},
		{StopMemory, "Memory"},
		{StopDepth, "Depth"},
		{StopCycles, "Cycles"},
	}

	names := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if sr&r.flag == r.flag {
			names = append(names, r.name)
		}
	}

	return strings.Join(names, "|")
}

func flagIf(cond bool, flag StopReason) StopReason {
	if cond {
		return flag
	}
	return StopNone
}

// Decides, once per iteration, whether the search may continue and whether the tree may grow.
// SetStop and context cancellation may come from other goroutines, everything else
// belongs to the search session.
type Limiter struct {
	limits   *Limits
	timer    *timer
	nodeSize uint32
	maxSize  uint32
	expand   bool
	stop     atomic.Bool
	reason   StopReason
	ctx      context.Context
}

// nodesize is the approximate number of bytes one arena entry occupies
func NewLimiter(nodesize uint32) *Limiter {
	return &Limiter{
		limits:   DefaultLimits(),
		timer:    newTimer(),
		nodeSize: max(nodesize, 1),
		maxSize:  math.MaxUint32,
		expand:   true,
		ctx:      context.Background(),
	}
}

// Reset the limiter's flags, called on search setup
func (l *Limiter) Reset() {
	l.timer.Movetime(l.limits.Movetime)
	l.timer.Reset()
	l.stop.Store(false)
	l.expand = true
	l.reason = StopNone

	// Calculate the node cap from both the node and the memory limits
	l.maxSize = l.limits.Nodes
	if l.limits.ByteSize != DefaultByteSizeLimit {
		l.maxSize = min(l.maxSize, uint32(min(l.limits.ByteSize/int64(l.nodeSize), math.MaxUint32)))
	}
}

func (l *Limiter) SetContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	l.ctx = ctx
}

// Set the stop signal, the search exits before its next iteration
func (l *Limiter) SetStop(v bool) {
	l.stop.Store(v)
}

func (l *Limiter) Stop() bool {
	select {
	case <-l.ctx.Done():
		l.stop.Store(true)
	default:
	}
	return l.stop.Load()
}

func (l *Limiter) SetLimits(limits *Limits) {
	if limits == nil {
		limits = DefaultLimits()
	}
	l.limits = limits
}

func (l *Limiter) Limits() *Limits {
	return l.limits
}

// Time since the last Reset
func (l *Limiter) Elapsed() time.Duration {
	return l.timer.Deltatime()
}

// Whether the tree can grow
func (l *Limiter) Expand() bool {
	return l.expand
}

// Get the reason why the search was stopped, valid after search ends
func (l *Limiter) StopReason() StopReason {
	return l.reason
}

// Every limit currently reached
func (l *Limiter) LimitMask(size, depth, cycles uint32) StopReason {
	stop := flagIf(l.Stop(), StopInterrupt)
	if l.limits.Infinite {
		return stop
	}

	return stop |
		flagIf(l.timer.IsEnd(), StopMovetime) |
		flagIf(l.maxSize <= size, StopMemory) |
		flagIf(l.limits.Depth <= int(depth), StopDepth) |
		flagIf(l.limits.Cycles <= cycles, StopCycles)
}

// Same as LimitMask, but a full arena only stops the search when nothing else
// can end it. With a time or cycle limit present the tree stops growing instead.
func (l *Limiter) OkMask(size, depth, cycles uint32) StopReason {
	mask := l.LimitMask(size, depth, cycles)

	timeOrCycles := l.timer.IsSet() || l.limits.Cycles != DefaultCyclesLimit
	if mask&StopMemory == StopMemory && timeOrCycles {
		l.expand = false
		mask &^= StopMemory
	}

	return mask
}

// Whether the search should continue, called once per iteration
func (l *Limiter) Ok(size, depth, cycles uint32) bool {
	return l.OkMask(size, depth, cycles) == StopNone
}

// Record why the search ended, called once after the loop exits
func (l *Limiter) EvaluateStopReason(size, depth, cycles uint32) {
	l.reason = l.OkMask(size, depth, cycles)
}
