package mcts

import (
	"fmt"
	"unsafe"
)

type NodeKind uint8

const (
	// Never visited, the zero value of a node
	KindUnexplored NodeKind = iota
	// Visited, but without children yet
	KindLeaf
	// Expanded, has one edge per legal action
	KindBranch
	// Game over, the value is fixed
	KindTerminal
	// Redirects to the first node created for the same state
	KindTranspose
)

func (k NodeKind) String() string {
	switch k {
	case KindLeaf:
		return "Leaf"
	case KindBranch:
		return "Branch"
	case KindTerminal:
		return "Terminal"
	case KindTranspose:
		return "Transpose"
	}
	return "Unexplored"
}

type Edge[A MoveLike] struct {
	Action A
	Key    Key
}

// Tagged tree node. Which fields are meaningful depends on Kind:
//
//	Leaf, Branch: Player, Visits, Sum (value sum from Player's perspective)
//	Branch:       Children
//	Terminal:     Player, Sum (fixed value), Visits (times reached)
//	Transpose:    Target
type Node[A MoveLike, P PlayerLike] struct {
	Kind     NodeKind
	Player   P
	Visits   uint32
	Sum      float32
	Children []Edge[A]
	Target   Key
}

func newLeaf[A MoveLike, P PlayerLike](player P) Node[A, P] {
	return Node[A, P]{Kind: KindLeaf, Player: player}
}

func newTerminal[A MoveLike, P PlayerLike](player P, value float32) Node[A, P] {
	return Node[A, P]{Kind: KindTerminal, Player: player, Sum: value, Visits: 1}
}

func newTranspose[A MoveLike, P PlayerLike](target Key) Node[A, P] {
	return Node[A, P]{Kind: KindTranspose, Target: target}
}

// Average value from the perspective of the node's player
func (n *Node[A, P]) Value() float32 {
	switch n.Kind {
	case KindTerminal:
		return n.Sum
	case KindLeaf, KindBranch:
		if n.Visits == 0 {
			return 0.5
		}
		return n.Sum / float32(n.Visits)
	}
	return 0.5
}

// Add a value (already flipped to this node's perspective) and count the visit
func (n *Node[A, P]) update(v float32) {
	n.Sum += v
	n.Visits++
}

func (n Node[A, P]) String() string {
	switch n.Kind {
	case KindLeaf, KindBranch:
		return fmt.Sprintf("%s{player=%v, n=%d, q=%.3f, children=%d}", n.Kind, n.Player, n.Visits, n.Value(), len(n.Children))
	case KindTerminal:
		return fmt.Sprintf("Terminal{player=%v, value=%.1f}", n.Player, n.Sum)
	case KindTranspose:
		return fmt.Sprintf("Transpose{target=%d}", n.Target)
	}
	return "Unexplored"
}

// Flip value v, seen by player 'from', to the perspective of player 'to'
func perspective[P PlayerLike](from, to P, v float32) float32 {
	if from == to {
		return v
	}
	return 1 - v
}

func nodeSize[A MoveLike, P PlayerLike]() uintptr {
	return unsafe.Sizeof(Node[A, P]{})
}

func edgeSize[A MoveLike]() uintptr {
	return unsafe.Sizeof(Edge[A]{})
}
