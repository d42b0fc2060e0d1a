package mcts

import (
	"testing"

	"golang.org/x/exp/rand"
)

// Subtraction game: take 1 to 3 stones, whoever takes the last one wins.
// Multiples of 4 are lost for the player to move.
type nim struct {
	stones int8
	player int8
}

func (n nim) Actions(yield func(int8)) {
	for take := int8(1); take <= 3 && take <= n.stones; take++ {
		yield(take)
	}
}

func (n nim) Make(take int8) nim {
	return nim{stones: n.stones - take, player: 1 - n.player}
}

func (n nim) Player() int8 {
	return n.player
}

func (n nim) Gameover() (Outcome, bool) {
	if n.stones == 0 {
		return Lose, true
	}
	return Draw, false
}

func (n nim) Hash() uint64 {
	return uint64(n.stones) | uint64(n.player)<<8
}

// Same game, counting every custom playout
type countingNim struct {
	nim
	rollouts *int
}

func (n countingNim) Make(take int8) countingNim {
	return countingNim{nim: n.nim.Make(take), rollouts: n.rollouts}
}

func (n countingNim) Rollout(r *rand.Rand) float32 {
	*n.rollouts++
	return 0.5
}

// The first player picks one of four lanes, the second one answers with one
// of three replies and the game ends. Lanes 0 and 3 (and 1 and 2) lead to
// identical games. In the outer lanes the best reply holds a draw, in the
// inner lanes it wins for the second player. No Hash, so it also serves as
// a state without optional capabilities.
type mirror struct {
	ply   int8
	lane  int8
	reply int8
}

func (m mirror) Actions(yield func(int8)) {
	if m.ply >= 2 {
		return
	}
	n := int8(3)
	if m.ply == 0 {
		n = 4
	}
	for a := int8(0); a < n; a++ {
		yield(a)
	}
}

func (m mirror) Make(a int8) mirror {
	if m.ply == 0 {
		m.lane = a
	} else {
		m.reply = a
	}
	m.ply++
	return m
}

func (m mirror) Player() int8 {
	return m.ply % 2
}

// Seen by the first player, who is to move again once the game is over
var mirrorOutcomes = [2][3]Outcome{
	{Draw, Win, Win},
	{Lose, Draw, Win},
}

func (m mirror) Gameover() (Outcome, bool) {
	if m.ply < 2 {
		return Draw, false
	}
	return mirrorOutcomes[min(m.lane, 3-m.lane)][m.reply], true
}

func newNim(t testing.TB, stones int8, opts ...Option) *MCTS[int8, int8, nim] {
	t.Helper()
	tree, err := New[int8, int8](nim{stones: stones}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return tree
}
