package bench

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/prestonmlangford/arbor/pkg/mcts"
	"gonum.org/v1/gonum/stat"
)

type VersusMatchResult int

const (
	VersusPl1Win VersusMatchResult = 1
	VersusPl2Win VersusMatchResult = -1
	VersusDraw   VersusMatchResult = 0
)

func (r VersusMatchResult) String() string {
	switch r {
	case VersusPl1Win:
		return "1-0"
	case VersusPl2Win:
		return "0-1"
	}
	return "1/2-1/2"
}

// Score of player 1
func (r VersusMatchResult) Score() float64 {
	switch r {
	case VersusPl1Win:
		return 1
	case VersusPl2Win:
		return 0
	}
	return 0.5
}

// One engine configuration taking part in the arena
type Engine struct {
	Name    string
	Options []mcts.Option
	// Budget of every move, must not be infinite
	Limits *mcts.Limits
}

type VersusArenaStats struct {
	p1Wins           atomic.Uint32
	p2Wins           atomic.Uint32
	draws            atomic.Uint32
	firstToMoveWins  atomic.Uint32
	secondToMoveWins atomic.Uint32
}

func (vas *VersusArenaStats) Total() int {
	return vas.P1Wins() + vas.P2Wins() + vas.Draws()
}

func (vas *VersusArenaStats) P1Wins() int {
	return int(vas.p1Wins.Load())
}

func (vas *VersusArenaStats) P2Wins() int {
	return int(vas.p2Wins.Load())
}

func (vas *VersusArenaStats) Draws() int {
	return int(vas.draws.Load())
}

func (vas *VersusArenaStats) FirstToMoveWins() int {
	return int(vas.firstToMoveWins.Load())
}

func (vas *VersusArenaStats) SecondToMoveWins() int {
	return int(vas.secondToMoveWins.Load())
}

func (vas *VersusArenaStats) add(result VersusMatchResult, p1First bool) {
	switch result {
	case VersusDraw:
		vas.draws.Add(1)
		return
	case VersusPl1Win:
		vas.p1Wins.Add(1)
	case VersusPl2Win:
		vas.p2Wins.Add(1)
	}

	if (result == VersusPl1Win) == p1First {
		vas.firstToMoveWins.Add(1)
	} else {
		vas.secondToMoveWins.Add(1)
	}
}

type VersusWorkerInfo[A mcts.MoveLike] struct {
	WorkerID         int
	NGames           int
	FinishedGames    int
	GameMoveNum      int
	Moves            []A
	P1Wins           int
	P2Wins           int
	Draws            int
	FirstToMoveWins  int
	SecondToMoveWins int
	P1Name           string
	P2Name           string
}

type VersusSummaryInfo struct {
	TotalGames       int     `json:"total_games"`
	P1Wins           int     `json:"player1_wins"`
	P2Wins           int     `json:"player2_wins"`
	FirstToMoveWins  int     `json:"first_to_move_wins"`
	SecondToMoveWins int     `json:"second_to_move_wins"`
	Draws            int     `json:"draws"`
	Workers          int     `json:"workers"`
	P1Name           string  `json:"player1_name"`
	P2Name           string  `json:"player2_name"`
	Score            float64 `json:"player1_score"`
	StdErr           float64 `json:"player1_score_stderr"`
	Elo              float64 `json:"elo_diff"`
	EloMargin        float64 `json:"elo_margin"`
}

// A finished game, Moves are in play order
type GameRecord[A mcts.MoveLike] struct {
	Game     int
	Worker   int
	P1First  bool
	Result   VersusMatchResult
	Moves    []A
	Duration time.Duration
}

// represents result from the first-player's perspective in a single game
type GameOutcome struct {
	FirstPlayerWon bool
	IsDraw         bool
}

// maps a game outcome to which agent won, given player assignments
func toAgentResult(outcome GameOutcome, p1WentFirst bool) VersusMatchResult {
	if outcome.IsDraw {
		return VersusDraw
	}

	if p1WentFirst == outcome.FirstPlayerWon {
		return VersusPl1Win
	}
	return VersusPl2Win
}

// determines the winner from the final state, 'first' is the player who
// moved first in the game
func computeOutcome[A mcts.MoveLike, P mcts.PlayerLike, S mcts.GameState[A, P, S]](final S, first P) GameOutcome {
	outcome, over := final.Gameover()
	if !over {
		panic("computeOutcome: position not terminated")
	}

	if outcome == mcts.Draw {
		return GameOutcome{IsDraw: true}
	}

	moverWon := outcome == mcts.Win
	return GameOutcome{FirstPlayerWon: (final.Player() == first) == moverWon}
}

// 95% confidence
const eloZ = 1.96

// Fill the score statistics of the summary from the per-game results
func summarize(info *VersusSummaryInfo, results []VersusMatchResult) {
	if len(results) == 0 {
		return
	}

	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.Score()
	}

	mean, std := stat.MeanStdDev(scores, nil)
	if len(scores) < 2 {
		std = 0
	}
	info.Score = mean
	info.StdErr = stat.StdErr(std, float64(len(scores)))

	n := float64(len(scores))
	info.Elo = eloDiff(mean, n)
	info.EloMargin = (eloDiff(mean+eloZ*info.StdErr, n) - eloDiff(mean-eloZ*info.StdErr, n)) / 2
}

// Elo difference for an expected score, the score is kept half a game away
// from 0 and 1 so that sweeps stay finite
func eloDiff(score, games float64) float64 {
	eps := 0.5 / games
	score = min(max(score, eps), 1-eps)
	return -400 * math.Log10(1/score-1)
}
