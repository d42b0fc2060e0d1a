package mcts

import "golang.org/x/exp/rand"

// State of a two-player, turn-based game. Implementations must be pure:
// Make returns a new state and never mutates the receiver.
type GameState[A MoveLike, P PlayerLike, S any] interface {
	// Call yield once per legal action, always in the same order
	Actions(yield func(A))
	// Play the action and return the resulting state
	Make(A) S
	// Player to move in this state
	Player() P
	// Outcome from the perspective of Player(), ok is false while the game continues
	Gameover() (Outcome, bool)
}

// Required by transposition detection and by LayoutHash
type Hasher interface {
	Hash() uint64
}

// Static evaluation, returns the estimated value in [0, 1] for the player to move
type Evaluator interface {
	Evaluate() float32
}

// Custom playout, returns the value in [0, 1] for the player to move.
// The generator is owned by the search session.
type Rollouter interface {
	Rollout(r *rand.Rand) float32
}
