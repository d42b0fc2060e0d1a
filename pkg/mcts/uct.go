package mcts

import (
	"github.com/chewxy/math32"
)

// Score of one child, as seen by the player moving at the parent.
// Unexplored children score +Inf, win reports whether the child is a terminal
// position won by the parent's player.
func uct[A MoveLike, P PlayerLike](parent P, lnParentVisits, c float32, child *Node[A, P]) (score float32, win bool) {
	switch child.Kind {
	case KindUnexplored:
		return math32.Inf(1), false
	case KindTerminal:
		s := perspective(child.Player, parent, child.Sum)
		if s >= 1 {
			return s, true
		}
		return s + c*math32.Sqrt(lnParentVisits/float32(max(child.Visits, 1))), false
	case KindLeaf, KindBranch:
		s := perspective(child.Player, parent, child.Value())
		return s + c*math32.Sqrt(lnParentVisits/float32(child.Visits)), false
	}
	panic("mcts: uct called on a " + child.Kind.String() + " node")
}

// Pick the index of the child to descend into. Ties keep the first child seen.
func (mcts *MCTS[A, P, S]) selectChild(node *Node[A, P]) int {
	if len(node.Children) == 0 {
		panic("mcts: selection on a branch without children")
	}
	if node.Visits == 0 {
		panic("mcts: selection on a branch without visits")
	}

	lnParentVisits := math32.Log(float32(node.Visits))
	best := math32.Inf(-1)
	index := 0

	for i := range node.Children {
		child := mcts.resolve(node.Children[i].Key)
		score, win := uct(node.Player, lnParentVisits, mcts.cfg.Exploration, &child)
		if win {
			return i
		}
		if score > best {
			best = score
			index = i
		}
	}

	return index
}

// Read the node at key, following a transposition redirect
func (mcts *MCTS[A, P, S]) resolve(key Key) Node[A, P] {
	node := mcts.store.Get(key)
	if node.Kind == KindTranspose {
		node = mcts.store.Get(node.Target)
		if node.Kind == KindTranspose {
			panic("mcts: transposition chain")
		}
	}
	return node
}
