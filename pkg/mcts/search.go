package mcts

import (
	"context"
	"time"
)

// Run iterations under the current limits until one of them is reached, the
// context is cancelled or Limiter.SetStop(true) is called. Interruptions are only
// observed between iterations. Panics if the root has no legal actions.
func (mcts *MCTS[A, P, S]) Run(ctx context.Context) StopReason {
	if root := mcts.store.Get(mcts.root); root.Kind != KindBranch {
		panic("mcts: search on a root without legal actions (" + root.Kind.String() + ")")
	}

	mcts.setupSearch(ctx)

	for mcts.Limiter.Ok(uint32(mcts.store.Len()), uint32(mcts.maxdepth), mcts.runCycles) {
		mcts.iterate()

		if mcts.depthChanged {
			mcts.depthChanged = false
			mcts.invokeListener(mcts.listener.onDepth)
		}
		if mcts.listener.onCycle != nil && mcts.runCycles%mcts.listener.nCycles == 0 {
			mcts.invokeListener(mcts.listener.onCycle)
		}
	}

	mcts.Limiter.EvaluateStopReason(uint32(mcts.store.Len()), uint32(mcts.maxdepth), mcts.runCycles)
	mcts.status = StatusStopped
	mcts.invokeListener(mcts.listener.onStop)

	mcts.log.Debug().
		Uint32("cycles", mcts.runCycles).
		Dur("elapsed", mcts.Limiter.Elapsed()).
		Int("nodes", mcts.store.Len()).
		Int("maxdepth", mcts.maxdepth).
		Stringer("reason", mcts.Limiter.StopReason()).
		Msg("search stopped")

	return mcts.Limiter.StopReason()
}

// Search for 'budget' wall-clock time on the retained arena and return the
// root actions ranked by estimated value
func (mcts *MCTS[A, P, S]) Search(budget time.Duration) []ActionValue[A] {
	if budget > 0 {
		mcts.runWith(func(l *Limits) { l.SetMovetime(budget) })
	}
	return mcts.Ranked()
}

// Run exactly n more iterations without discarding the tree
func (mcts *MCTS[A, P, S]) Ponder(n uint32) {
	if n > 0 {
		mcts.runWith(func(l *Limits) { l.SetCycles(n) })
	}
}

// One-shot search on a fresh arena, returns the best root action
func SearchBest[A MoveLike, P PlayerLike, S GameState[A, P, S]](state S, budget time.Duration, opts ...Option) (A, error) {
	var none A
	tree, err := New[A, P](state, opts...)
	if err != nil {
		return none, err
	}
	if _, over := state.Gameover(); over {
		return none, ErrTerminalRoot
	}

	tree.Search(budget)
	best, _ := tree.Best()
	return best, nil
}

// Run with a copy of the current limits where only the memory caps and
// MultiPv are kept, adjusted by 'set'
func (mcts *MCTS[A, P, S]) runWith(set func(*Limits)) {
	prev := mcts.Limiter.Limits()
	limits := DefaultLimits()
	limits.Nodes = prev.Nodes
	limits.ByteSize = prev.ByteSize
	limits.MultiPv = prev.MultiPv
	set(limits)

	mcts.Limiter.SetLimits(limits)
	defer mcts.Limiter.SetLimits(prev)
	mcts.Run(context.Background())
}

// This function only sets the limits, resets the counters, and the stop flag
// doesn't actually start the search
func (mcts *MCTS[A, P, S]) setupSearch(ctx context.Context) {
	mcts.Limiter.SetContext(ctx)
	mcts.Limiter.Reset()
	mcts.runCycles = 0
	mcts.status = StatusRunning
}

// One select-expand-evaluate-backpropagate pass from the root
func (mcts *MCTS[A, P, S]) iterate() {
	mcts.step(mcts.state, mcts.root, 0)
	mcts.cycles++
	mcts.runCycles++
}

// Descend into the node at 'key' holding 'state', and return the value found,
// from the perspective of the player moving in 'state'. The node is taken out
// of the arena for the duration of the call and written back before returning.
func (mcts *MCTS[A, P, S]) step(state S, key Key, depth int) float32 {
	node := mcts.store.Take(key)

	switch node.Kind {
	case KindBranch:
		edge := node.Children[mcts.selectChild(&node)]
		next := state.Make(edge.Action)
		v := mcts.step(next, edge.Key, depth+1)
		v = backup(&node, next.Player(), v)
		mcts.store.Set(key, node)
		return v

	case KindLeaf:
		if node.Visits > mcts.cfg.ExpansionMinimum && mcts.Limiter.Expand() {
			mcts.store.Set(key, mcts.expand(state, node))
			return mcts.step(state, key, depth)
		}
		v := mcts.evaluate(state)
		node.update(v)
		mcts.store.Set(key, node)
		mcts.reach(depth)
		return v

	case KindTerminal:
		node.Visits++
		mcts.store.Set(key, node)
		mcts.reach(depth)
		return node.Sum

	case KindTranspose:
		mcts.store.Set(key, node)
		return mcts.step(state, node.Target, depth)
	}

	return mcts.populate(state, key, depth)
}

// First visit of an unexplored node
func (mcts *MCTS[A, P, S]) populate(state S, key Key, depth int) float32 {
	if mcts.table != nil {
		hash := any(state).(Hasher).Hash()
		if target, ok := mcts.table[hash]; ok && target != key && depth > 1 {
			mcts.store.Set(key, newTranspose[A, P](target))
			return mcts.step(state, target, depth)
		}
		if _, ok := mcts.table[hash]; !ok {
			mcts.table[hash] = key
		}
	}

	if outcome, over := state.Gameover(); over {
		node := newTerminal[A](state.Player(), outcome.Value())
		mcts.store.Set(key, node)
		mcts.reach(depth)
		return node.Sum
	}

	mcts.store.Set(key, newLeaf[A](state.Player()))
	return mcts.step(state, key, depth)
}

// Convert a leaf into a branch with one unexplored child per legal action
func (mcts *MCTS[A, P, S]) expand(state S, node Node[A, P]) Node[A, P] {
	children := make([]Edge[A], 0, 8)
	state.Actions(func(a A) {
		children = append(children, Edge[A]{Action: a, Key: mcts.childKey(state, a)})
	})

	if len(children) == 0 {
		panic("mcts: expanding a position without legal actions")
	}

	node.Kind = KindBranch
	node.Children = children
	return node
}

func (mcts *MCTS[A, P, S]) childKey(state S, a A) Key {
	if stack, ok := mcts.store.(*stackStore[A, P]); ok {
		return stack.Push()
	}
	return Key(any(state.Make(a)).(Hasher).Hash())
}

func (mcts *MCTS[A, P, S]) reach(depth int) {
	if depth > mcts.maxdepth {
		mcts.maxdepth = depth
		mcts.depthChanged = true
	}
}
