package mcts

import "time"

type SearchLine[A MoveLike] struct {
	BestMove A
	Moves    []A
	Eval     float32
	Error    float32
	Terminal bool
	Draw     bool
}

type ListenerTreeStats[A MoveLike] struct {
	Maxdepth   int
	Cycles     uint32
	Elapsed    time.Duration
	Cps        uint32
	Size       int
	Lines      []SearchLine[A]
	StopReason StopReason
}

// Convert the tree state to 'ListenerTreeStats' struct
func toListenerStats[A MoveLike, P PlayerLike, S GameState[A, P, S]](tree *MCTS[A, P, S]) ListenerTreeStats[A] {
	pv := tree.MultiPv()
	lines := make([]SearchLine[A], len(pv))
	for i := range pv {
		lines[i] = SearchLine[A]{
			BestMove: pv[i].Root.Action,
			Moves:    pv[i].Pv,
			Eval:     pv[i].Root.Value,
			Error:    pv[i].Root.Error,
			Terminal: pv[i].Terminal,
			Draw:     pv[i].Draw,
		}
	}

	return ListenerTreeStats[A]{
		Lines:      lines,
		Maxdepth:   tree.MaxDepth(),
		Cycles:     tree.Cycles(),
		Elapsed:    tree.Limiter.Elapsed(),
		Cps:        tree.Cps(),
		Size:       tree.Size(),
		StopReason: tree.Limiter.StopReason(),
	}
}

// Listener function callback, will receive current tree statistics, like
// max depth of tree, number of iterations so far
type ListenerFunc[A MoveLike] func(ListenerTreeStats[A])

// Callbacks run on the search goroutine, between two iterations
type StatsListener[A MoveLike] struct {
	// called when 'max depth' increases
	onDepth ListenerFunc[A]

	// called every N iterations of the current run
	onCycle ListenerFunc[A]
	nCycles uint32

	// called when the search stops (either by limiter or 'stop' signal)
	onStop ListenerFunc[A]
}

func NewStatsListener[A MoveLike]() *StatsListener[A] {
	return &StatsListener[A]{nCycles: 1}
}

func (listener *StatsListener[A]) OnDepth(onDepth ListenerFunc[A]) *StatsListener[A] {
	listener.onDepth = onDepth
	return listener
}

// Attach new on iteration callback, computing the lines is not free,
// so use a large interval
func (listener *StatsListener[A]) OnCycle(onCycle ListenerFunc[A]) *StatsListener[A] {
	listener.onCycle = onCycle
	return listener
}

func (listener *StatsListener[A]) SetCycleInterval(n uint32) *StatsListener[A] {
	listener.nCycles = max(n, 1)
	return listener
}

// Attach 'on search end' callback, makes 'StopReason' available in the stats
func (listener *StatsListener[A]) OnStop(onStop ListenerFunc[A]) *StatsListener[A] {
	listener.onStop = onStop
	return listener
}
