package mcts

// Other types, which didn't fit to MCTS or Node files

type MoveLike interface{ comparable }
type PlayerLike interface{ comparable }

// Arena address of a node, either a dense index or a state hash depending on the layout
type Key uint64

// Outcome of a finished game, always from the perspective of the player to move
type Outcome int8

const (
	Lose Outcome = iota
	Draw
	Win
)

// Value of the outcome in [0, 1]
func (o Outcome) Value() float32 {
	switch o {
	case Win:
		return 1
	case Draw:
		return 0.5
	}
	return 0
}

func (o Outcome) String() string {
	switch o {
	case Win:
		return "Win"
	case Draw:
		return "Draw"
	}
	return "Lose"
}

type BestChildPolicy int
type Layout int
type Status int32

const (
	StatusIdle Status = iota
	StatusRunning
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	}
	return "idle"
}
