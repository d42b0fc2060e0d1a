package mcts

import (
	"fmt"
	"time"
)

// Read-only snapshot of the arena
type Info struct {
	// Expected value of the root position for the player to move there
	Q float32
	// Root visits
	N uint32

	Branch     int
	Leaf       int
	Terminal   int
	Unexplored int
	Transpose  int
	// Approximate memory footprint of the arena and the transposition table
	Bytes uint64

	Cycles     uint32
	MaxDepth   int
	Elapsed    time.Duration
	StopReason StopReason
}

func (info Info) Nodes() int {
	return info.Branch + info.Leaf + info.Terminal + info.Transpose
}

func (info Info) String() string {
	return fmt.Sprintf("q=%.3f n=%d branch=%d leaf=%d terminal=%d unexplored=%d transpose=%d bytes=%d",
		info.Q, info.N, info.Branch, info.Leaf, info.Terminal, info.Unexplored, info.Transpose, info.Bytes)
}

// Count the arena by node kind. Unexplored counts the edges pointing
// at positions never visited, whatever the layout.
func (mcts *MCTS[A, P, S]) Stats() Info {
	info := Info{
		Cycles:     mcts.cycles,
		MaxDepth:   mcts.maxdepth,
		Elapsed:    mcts.Limiter.Elapsed(),
		StopReason: mcts.Limiter.StopReason(),
	}

	edges := 0
	mcts.store.Range(func(_ Key, n Node[A, P]) bool {
		switch n.Kind {
		case KindBranch:
			info.Branch++
			edges += len(n.Children)
			for _, e := range n.Children {
				if mcts.store.Get(e.Key).Kind == KindUnexplored {
					info.Unexplored++
				}
			}
		case KindLeaf:
			info.Leaf++
		case KindTerminal:
			info.Terminal++
		case KindTranspose:
			info.Transpose++
		}
		return true
	})

	info.Bytes = uint64(mcts.store.Len())*uint64(nodeSize[A, P]()) +
		uint64(edges)*uint64(edgeSize[A]()) +
		uint64(len(mcts.table))*16

	root := mcts.store.Get(mcts.root)
	info.Q = root.Value()
	info.N = root.Visits
	return info
}
