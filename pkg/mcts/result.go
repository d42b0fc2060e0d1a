package mcts

import (
	"cmp"

	"github.com/chewxy/math32"
	"golang.org/x/exp/slices"
)

// Estimate for one root action, Value is seen by the root player
type ActionValue[A MoveLike] struct {
	Action A
	Value  float32
	Error  float32
	Visits uint32
}

func actionValue[A MoveLike, P PlayerLike](player P, action A, child *Node[A, P]) ActionValue[A] {
	switch child.Kind {
	case KindLeaf, KindBranch:
		w := perspective(child.Player, player, child.Value())
		n := float32(child.Visits)
		return ActionValue[A]{
			Action: action,
			Value:  w,
			Error:  0.5/n + math32.Sqrt(w*(1-w)/n),
			Visits: child.Visits,
		}
	case KindTerminal:
		return ActionValue[A]{
			Action: action,
			Value:  perspective(child.Player, player, child.Sum),
			Error:  0,
			Visits: child.Visits,
		}
	}
	return ActionValue[A]{Action: action, Value: 0.5, Error: 0.5}
}

// Current estimates of every root action, in the order the game listed them
func (mcts *MCTS[A, P, S]) Ply() []ActionValue[A] {
	root := mcts.store.Get(mcts.root)
	if root.Kind != KindBranch {
		return nil
	}

	ply := make([]ActionValue[A], len(root.Children))
	for i, edge := range root.Children {
		child := mcts.resolve(edge.Key)
		ply[i] = actionValue(root.Player, edge.Action, &child)
	}
	return ply
}

// Same as Ply, best first. Equal values rank the tighter error first, then
// the most visited, so a proven win beats a lucky single playout. Exact ties
// keep their order.
func (mcts *MCTS[A, P, S]) Ranked() []ActionValue[A] {
	ply := mcts.Ply()
	slices.SortStableFunc(ply, compareActionValues[A])
	return ply
}

// Action ranked first by Ranked, the first one listed on exact ties.
// ok is false when the root has no actions.
func (mcts *MCTS[A, P, S]) Best() (best A, ok bool) {
	var top ActionValue[A]
	for _, av := range mcts.Ply() {
		if !ok || compareActionValues(av, top) < 0 {
			top = av
			ok = true
		}
	}
	return top.Action, ok
}

func compareActionValues[A MoveLike](a, b ActionValue[A]) int {
	if c := cmp.Compare(b.Value, a.Value); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Error, b.Error); c != 0 {
		return c
	}
	return cmp.Compare(b.Visits, a.Visits)
}

// Expected value of the root position for the player to move
func (mcts *MCTS[A, P, S]) RootScore() float32 {
	root := mcts.store.Get(mcts.root)
	return root.Value()
}

// Return the index of the best child of a branch, based on the policy, or -1
func (mcts *MCTS[A, P, S]) BestChild(node *Node[A, P], policy BestChildPolicy) int {
	if node.Kind != KindBranch {
		return -1
	}

	index := -1
	switch policy {
	case BestChildMostVisits:
		var maxVisits uint32
		for i, edge := range node.Children {
			if child := mcts.resolve(edge.Key); child.Visits > maxVisits {
				maxVisits = child.Visits
				index = i
			}
		}
	case BestChildWinRate:
		best := math32.Inf(-1)
		for i, edge := range node.Children {
			child := mcts.resolve(edge.Key)
			if child.Kind == KindUnexplored {
				continue
			}
			if child.Kind == KindTerminal && perspective(child.Player, node.Player, child.Sum) >= 1 {
				return i
			}
			if v := perspective(child.Player, node.Player, child.Value()); v > best {
				best = v
				index = i
			}
		}
	}
	return index
}

type PvResult[A MoveLike] struct {
	Root     ActionValue[A]
	Pv       []A
	Terminal bool
	Draw     bool
}

// Get the principal variation (ie. the best sequence of actions) from the root,
// following the most visited children. Terminal reports whether the line ends
// in a finished game, and Draw whether that game is drawn.
func (mcts *MCTS[A, P, S]) Pv() (pv []A, terminal, draw bool) {
	return mcts.pvFrom(mcts.root, nil)
}

func (mcts *MCTS[A, P, S]) pvFrom(key Key, pv []A) ([]A, bool, bool) {
	limit := mcts.maxdepth + 1
	node := mcts.resolve(key)
	for len(pv) < limit {
		i := mcts.BestChild(&node, BestChildMostVisits)
		if i < 0 {
			break
		}
		edge := node.Children[i]
		pv = append(pv, edge.Action)
		node = mcts.resolve(edge.Key)
	}

	if node.Kind == KindTerminal {
		return pv, true, node.Sum == Draw.Value()
	}
	return pv, false, false
}

// Returns the best lines, as many as Limits.MultiPv, starting from the most visited root actions
func (mcts *MCTS[A, P, S]) MultiPv() []PvResult[A] {
	root := mcts.store.Get(mcts.root)
	if root.Kind != KindBranch {
		return nil
	}

	ply := mcts.Ply()
	order := make([]int, len(ply))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(ply[b].Visits, ply[a].Visits)
	})

	count := min(max(mcts.Limiter.Limits().MultiPv, 1), len(order))
	multipv := make([]PvResult[A], 0, count)
	for _, i := range order[:count] {
		edge := root.Children[i]
		pv, terminal, draw := mcts.pvFrom(edge.Key, []A{edge.Action})
		multipv = append(multipv, PvResult[A]{
			Root:     ply[i],
			Pv:       pv,
			Terminal: terminal,
			Draw:     draw,
		})
	}
	return multipv
}
