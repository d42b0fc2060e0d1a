// Package mcts implements a generic Monte Carlo tree search engine for
// two-player, perfect-information, turn-based games.
//
// A session owns an arena of tagged nodes, addressed by dense index or by state
// hash, and grows it with UCT selection, threshold expansion, random or custom
// evaluation and negamax backpropagation. Sessions are single-threaded.
package mcts

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

var ErrTerminalRoot = errors.New("mcts: root position is terminal")

type MCTS[A MoveLike, P PlayerLike, S GameState[A, P, S]] struct {
	Limiter  *Limiter
	cfg      Config
	listener *StatsListener[A]
	store    Store[A, P]
	root     Key
	state    S
	// transposition table, hash -> first key populated with it
	table   map[uint64]Key
	rng     *rand.Rand
	actions []A
	status  Status

	cycles       uint32
	runCycles    uint32
	maxdepth     int
	depthChanged bool
	log          zerolog.Logger
}

// Create a new search session rooted at 'state'. Most callers name the action
// and player types and let the state type be inferred:
//
//	tree, err := mcts.New[ttt.Square, ttt.Player](ttt.NewPosition(), mcts.WithSeed(7))
func New[A MoveLike, P PlayerLike, S GameState[A, P, S]](state S, opts ...Option) (*MCTS[A, P, S], error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(state); err != nil {
		return nil, err
	}
	listener := NewStatsListener[A]()
	if cfg.listener != nil {
		l, ok := cfg.listener.(StatsListener[A])
		if !ok {
			return nil, fmt.Errorf("%w: listener %T does not match the action type", ErrInvalidConfig, cfg.listener)
		}
		l.nCycles = max(l.nCycles, 1)
		*listener = l
	}

	mcts := &MCTS[A, P, S]{
		Limiter:  NewLimiter(uint32(nodeSize[A, P]() + edgeSize[A]())),
		cfg:      cfg,
		listener: listener,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		log:      cfg.Logger.With().Str("component", "mcts").Logger(),
	}
	mcts.Reset(state)
	return mcts, nil
}

// Discard the whole arena and start over from 'state'.
// The root is expanded right away unless the game is already over.
func (mcts *MCTS[A, P, S]) Reset(state S) {
	mcts.state = state
	mcts.cycles = 0
	mcts.runCycles = 0
	mcts.maxdepth = 0
	mcts.depthChanged = false
	mcts.status = StatusIdle
	mcts.table = nil
	if mcts.cfg.Transposition && mcts.cfg.Layout == LayoutIndex {
		mcts.table = make(map[uint64]Key)
	}

	switch mcts.cfg.Layout {
	case LayoutHash:
		mcts.store = newHashStore[A, P](defaultStoreCapacity)
		mcts.root = Key(any(state).(Hasher).Hash())
	default:
		stack := newStackStore[A, P](defaultStoreCapacity)
		mcts.root = stack.Push()
		mcts.store = stack
	}

	if outcome, over := state.Gameover(); over {
		mcts.store.Set(mcts.root, newTerminal[A](state.Player(), outcome.Value()))
		return
	}

	// Counts as one visit worth a draw, so the children can be scored at once
	root := Node[A, P]{Kind: KindLeaf, Player: state.Player(), Visits: 1, Sum: 0.5}
	mcts.store.Set(mcts.root, mcts.expand(state, root))
}

func (mcts *MCTS[A, P, S]) invokeListener(f ListenerFunc[A]) {
	if f != nil {
		f(toListenerStats(mcts))
	}
}

func (mcts *MCTS[A, P, S]) StatsListener() *StatsListener[A] {
	return mcts.listener
}

func (mcts *MCTS[A, P, S]) SetListener(listener StatsListener[A]) {
	listener.nCycles = max(listener.nCycles, 1)
	*mcts.listener = listener
}

func (mcts *MCTS[A, P, S]) ResetListener() {
	mcts.listener.OnCycle(nil).OnDepth(nil).OnStop(nil)
}

// Maximum depth reached so far, note that usually MaxDepth != len(pv)
func (mcts *MCTS[A, P, S]) MaxDepth() int {
	return mcts.maxdepth
}

// Total number of iterations ran on this arena
func (mcts *MCTS[A, P, S]) Cycles() uint32 {
	return mcts.cycles
}

// Cycles per second of the last run
func (mcts *MCTS[A, P, S]) Cps() uint32 {
	ms := max(mcts.Limiter.Elapsed().Milliseconds(), 1)
	return uint32(int64(mcts.runCycles) * 1000 / ms)
}

func (mcts *MCTS[A, P, S]) Status() Status {
	return mcts.status
}

// Get the reason why the search was stopped, valid after search ends
func (mcts *MCTS[A, P, S]) StopReason() StopReason {
	return mcts.Limiter.StopReason()
}

func (mcts *MCTS[A, P, S]) SetLimits(limits *Limits) {
	mcts.Limiter.SetLimits(limits)
}

func (mcts *MCTS[A, P, S]) Limits() *Limits {
	return mcts.Limiter.Limits()
}

func (mcts *MCTS[A, P, S]) Config() Config {
	return mcts.cfg
}

// The position the tree is rooted at
func (mcts *MCTS[A, P, S]) State() S {
	return mcts.state
}

// Number of entries in the arena
func (mcts *MCTS[A, P, S]) Size() int {
	return mcts.store.Len()
}

// Returns approximation of memory usage of the arena, each entry is
// assumed to be referenced by exactly one edge
func (mcts *MCTS[A, P, S]) MemoryUsage() uint64 {
	return uint64(mcts.store.Len()) * uint64(nodeSize[A, P]()+edgeSize[A]())
}

func (mcts *MCTS[A, P, S]) String() string {
	root := mcts.store.Get(mcts.root)
	return fmt.Sprintf("MCTS={Size=%d, Stats:{maxdepth=%d, cps=%d, cycles=%d}, Status=%s, Root=%v}",
		mcts.Size(), mcts.MaxDepth(), mcts.Cps(), mcts.Cycles(), mcts.status, root)
}

// Make 'action' the new root, keeping the subtree below it. Returns false
// when the action is not a legal root action, the tree is then left untouched.
func (mcts *MCTS[A, P, S]) MakeMove(action A) bool {
	root := mcts.store.Get(mcts.root)
	if root.Kind != KindBranch {
		return false
	}

	for _, edge := range root.Children {
		if edge.Action != action {
			continue
		}

		next := mcts.state.Make(action)
		key := edge.Key
		child := mcts.store.Get(key)
		if child.Kind == KindTranspose {
			key = child.Target
			child = mcts.store.Get(key)
		}

		if child.Kind != KindBranch {
			// Nothing below a leaf worth keeping
			mcts.Reset(next)
			return true
		}

		mcts.reroot(next, key)
		return true
	}

	return false
}

func (mcts *MCTS[A, P, S]) reroot(state S, key Key) {
	store, root, remap := compact(mcts.store, mcts.cfg.Layout, key)

	if mcts.table != nil {
		table := make(map[uint64]Key, len(mcts.table))
		for h, k := range mcts.table {
			if nk, ok := remap[k]; ok && nk != root {
				table[h] = nk
			}
		}
		mcts.table = table
	}

	// The first ply never redirects
	node := store.Get(root)
	for i, edge := range node.Children {
		if child := store.Get(edge.Key); child.Kind == KindTranspose {
			node.Children[i].Key = child.Target
		}
	}
	store.Set(root, node)

	mcts.store = store
	mcts.root = root
	mcts.state = state
	mcts.maxdepth = max(0, mcts.maxdepth-1)
	mcts.status = StatusIdle
}
