package mcts

const (
	// Nodes live in a slice, keys are dense indexes (default)
	LayoutIndex Layout = iota
	// Nodes live in a map keyed by state hash, transpositions merge implicitly
	LayoutHash
)

func (l Layout) String() string {
	if l == LayoutHash {
		return "hash"
	}
	return "index"
}

// Arena owning every explored node. Get never fails, an absent key reads as Unexplored.
type Store[A MoveLike, P PlayerLike] interface {
	Get(Key) Node[A, P]
	Set(Key, Node[A, P])
	// Remove the node and return it, the caller writes it back with Set
	Take(Key) Node[A, P]
	Len() int
	Range(func(Key, Node[A, P]) bool)
}

type stackStore[A MoveLike, P PlayerLike] struct {
	nodes []Node[A, P]
}

func newStackStore[A MoveLike, P PlayerLike](capacity int) *stackStore[A, P] {
	return &stackStore[A, P]{nodes: make([]Node[A, P], 0, capacity)}
}

func (s *stackStore[A, P]) Get(k Key) Node[A, P] {
	if int(k) >= len(s.nodes) {
		return Node[A, P]{}
	}
	return s.nodes[k]
}

func (s *stackStore[A, P]) Set(k Key, n Node[A, P]) {
	for int(k) >= len(s.nodes) {
		s.nodes = append(s.nodes, Node[A, P]{})
	}
	s.nodes[k] = n
}

func (s *stackStore[A, P]) Take(k Key) Node[A, P] {
	if int(k) >= len(s.nodes) {
		return Node[A, P]{}
	}
	n := s.nodes[k]
	s.nodes[k] = Node[A, P]{}
	return n
}

// Append an unexplored placeholder and return its key
func (s *stackStore[A, P]) Push() Key {
	s.nodes = append(s.nodes, Node[A, P]{})
	return Key(len(s.nodes) - 1)
}

func (s *stackStore[A, P]) Len() int {
	return len(s.nodes)
}

func (s *stackStore[A, P]) Range(f func(Key, Node[A, P]) bool) {
	for i := range s.nodes {
		if !f(Key(i), s.nodes[i]) {
			return
		}
	}
}

type hashStore[A MoveLike, P PlayerLike] struct {
	nodes map[Key]Node[A, P]
}

func newHashStore[A MoveLike, P PlayerLike](capacity int) *hashStore[A, P] {
	return &hashStore[A, P]{nodes: make(map[Key]Node[A, P], capacity)}
}

func (s *hashStore[A, P]) Get(k Key) Node[A, P] {
	return s.nodes[k]
}

func (s *hashStore[A, P]) Set(k Key, n Node[A, P]) {
	s.nodes[k] = n
}

func (s *hashStore[A, P]) Take(k Key) Node[A, P] {
	n, ok := s.nodes[k]
	if ok {
		delete(s.nodes, k)
	}
	return n
}

func (s *hashStore[A, P]) Len() int {
	return len(s.nodes)
}

func (s *hashStore[A, P]) Range(f func(Key, Node[A, P]) bool) {
	for k, n := range s.nodes {
		if !f(k, n) {
			return
		}
	}
}

// Copy the part of the arena reachable from root into a fresh store.
// For the index layout keys are renumbered in their original order, so a
// transposition target still precedes every node redirecting to it.
// Returns the new store, the new root key and the old->new key mapping.
func compact[A MoveLike, P PlayerLike](src Store[A, P], layout Layout, root Key) (Store[A, P], Key, map[Key]Key) {
	reachable := make(map[Key]struct{})
	stack := []Key{root}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := reachable[k]; seen {
			continue
		}
		reachable[k] = struct{}{}

		n := src.Get(k)
		switch n.Kind {
		case KindBranch:
			for _, e := range n.Children {
				stack = append(stack, e.Key)
			}
		case KindTranspose:
			stack = append(stack, n.Target)
		}
	}

	if layout == LayoutHash {
		dst := newHashStore[A, P](len(reachable))
		remap := make(map[Key]Key, len(reachable))
		for k := range reachable {
			if n := src.Get(k); n.Kind != KindUnexplored {
				dst.Set(k, n)
			}
			remap[k] = k
		}
		return dst, root, remap
	}

	keys := make([]Key, 0, len(reachable))
	src.Range(func(k Key, _ Node[A, P]) bool {
		if _, ok := reachable[k]; ok {
			keys = append(keys, k)
		}
		return true
	})

	remap := make(map[Key]Key, len(keys))
	for i, k := range keys {
		remap[k] = Key(i)
	}

	dst := newStackStore[A, P](len(keys))
	for _, k := range keys {
		n := src.Get(k)
		switch n.Kind {
		case KindBranch:
			children := make([]Edge[A], len(n.Children))
			for i, e := range n.Children {
				children[i] = Edge[A]{Action: e.Action, Key: remap[e.Key]}
			}
			n.Children = children
		case KindTranspose:
			n.Target = remap[n.Target]
		}
		dst.Set(remap[k], n)
	}
	return dst, remap[root], remap
}
