package mcts

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

type Limits struct {
	Depth    int
	Nodes    uint32
	Cycles   uint32
	Movetime time.Duration
	Infinite bool
	ByteSize int64
	MultiPv  int
}

func (l Limits) String() string {
	builder := strings.Builder{}
	_ = json.NewEncoder(&builder).Encode(l)
	return strings.TrimSpace(builder.String())
}

const (
	DefaultDepthLimit    int           = math.MaxInt
	DefaultNodeLimit     uint32        = math.MaxUint32
	DefaultMovetimeLimit time.Duration = -1
	DefaultByteSizeLimit int64         = -1
	DefaultCyclesLimit   uint32        = math.MaxUint32
)

// No limits at all, the search runs until interrupted
func DefaultLimits() *Limits {
	return &Limits{
		Depth:    DefaultDepthLimit,
		Nodes:    DefaultNodeLimit,
		Cycles:   DefaultCyclesLimit,
		Movetime: DefaultMovetimeLimit,
		Infinite: true,
		ByteSize: DefaultByteSizeLimit,
		MultiPv:  1,
	}
}

// Set the maximum depth of the tree
func (l *Limits) SetDepth(depth int) *Limits {
	l.Depth = depth
	l.Infinite = false
	return l
}

// Set the maximum number of nodes in the arena
func (l *Limits) SetNodes(nodes uint32) *Limits {
	l.Nodes = nodes
	l.Infinite = false
	return l
}

// Set the number of select-expand-evaluate-backpropagate iterations
func (l *Limits) SetCycles(cycles uint32) *Limits {
	l.Cycles = cycles
	l.Infinite = false
	return l
}

// Set the maximum time for engine to think
func (l *Limits) SetMovetime(movetime time.Duration) *Limits {
	l.Movetime = movetime
	l.Infinite = false
	return l
}

func (l *Limits) SetInfinite(infinite bool) *Limits {
	l.Infinite = infinite
	return l
}

func (l *Limits) SetMultiPv(multipv int) *Limits {
	l.MultiPv = max(1, multipv)
	return l
}

func (l *Limits) SetMbSize(mbsize int) *Limits {
	return l.SetByteSize(int64(mbsize) * (1 << 20))
}

// Set the approximate memory budget of the arena
func (l *Limits) SetByteSize(bytesize int64) *Limits {
	l.ByteSize = bytesize
	l.Infinite = false
	return l
}

func (l *Limits) InfiniteSize() bool {
	return l.ByteSize == DefaultByteSizeLimit && l.Nodes == DefaultNodeLimit
}
