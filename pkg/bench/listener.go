package bench

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"github.com/prestonmlangford/arbor/pkg/mcts"
)

// Receives arena events. Workers call it concurrently, implementations
// must be safe for concurrent use.
type Listener[A mcts.MoveLike] interface {
	OnStart(workers int)
	OnMoveMade(info VersusWorkerInfo[A])
	OnFinishedGame(info VersusWorkerInfo[A])
	OnFinishedWork(info VersusWorkerInfo[A])
	Summary(info VersusSummaryInfo)
}

type NopListener[A mcts.MoveLike] struct{}

func (NopListener[A]) OnStart(int) {}
func (NopListener[A]) OnMoveMade(VersusWorkerInfo[A]) {}
func (NopListener[A]) OnFinishedGame(VersusWorkerInfo[A]) {}
func (NopListener[A]) OnFinishedWork(VersusWorkerInfo[A]) {}
func (NopListener[A]) Summary(VersusSummaryInfo) {}

// Maximum number of moves printed on a progress line
const maxPrintedMoves = 16

// Prints one live progress line per worker, followed by a summary
type TermListener[A mcts.MoveLike] struct {
	mu   sync.Mutex
	out  *termenv.Output
	rows int
}

func NewTermListener[A mcts.MoveLike](w io.Writer, opts ...termenv.OutputOption) *TermListener[A] {
	return &TermListener[A]{out: termenv.NewOutput(w, opts...)}
}

func (l *TermListener[A]) OnStart(workers int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rows = workers
	l.out.HideCursor()
	// reserve one line per worker
	fmt.Fprint(l.out, strings.Repeat("\n", workers))
}

func (l *TermListener[A]) OnMoveMade(info VersusWorkerInfo[A]) {
	moves := info.Moves
	if len(moves) > maxPrintedMoves {
		moves = moves[len(moves)-maxPrintedMoves:]
	}
	l.line(info.WorkerID, fmt.Sprintf("%s game %d/%d move %d %v",
		l.worker(info.WorkerID), info.FinishedGames+1, info.NGames, info.GameMoveNum, moves))
}

func (l *TermListener[A]) OnFinishedGame(info VersusWorkerInfo[A]) {
	l.line(info.WorkerID, fmt.Sprintf("%s game %d/%d done in %d moves, %s",
		l.worker(info.WorkerID), info.FinishedGames, info.NGames, info.GameMoveNum, l.score(info)))
}

func (l *TermListener[A]) OnFinishedWork(info VersusWorkerInfo[A]) {
	done := l.out.String("finished").Foreground(l.out.Color("2"))
	l.line(info.WorkerID, fmt.Sprintf("%s %s %d games, %s",
		l.worker(info.WorkerID), done, info.FinishedGames, l.score(info)))
}

func (l *TermListener[A]) Summary(info VersusSummaryInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.out.ShowCursor()
	title := l.out.String(fmt.Sprintf("%s vs %s", info.P1Name, info.P2Name)).Bold()
	fmt.Fprintf(l.out, "%s: %d games on %d workers\n", title, info.TotalGames, info.Workers)
	fmt.Fprintf(l.out, "  +%d =%d -%d, first to move won %d, second %d\n",
		info.P1Wins, info.Draws, info.P2Wins, info.FirstToMoveWins, info.SecondToMoveWins)

	color := "3"
	switch {
	case info.Elo-info.EloMargin > 0:
		color = "2"
	case info.Elo+info.EloMargin < 0:
		color = "1"
	}
	elo := l.out.String(fmt.Sprintf("%+.1f +/- %.1f", info.Elo, info.EloMargin)).Foreground(l.out.Color(color))
	fmt.Fprintf(l.out, "  score %.3f (stderr %.3f), elo %s\n", info.Score, info.StdErr, elo)
}

func (l *TermListener[A]) worker(id int) termenv.Style {
	return l.out.String(fmt.Sprintf("[worker %d]", id)).Foreground(l.out.Color("6"))
}

func (l *TermListener[A]) score(info VersusWorkerInfo[A]) string {
	return fmt.Sprintf("%s +%d =%d -%d %s", info.P1Name, info.P1Wins, info.Draws, info.P2Wins, info.P2Name)
}

// Rewrite the worker's reserved line, the cursor stays below the block
func (l *TermListener[A]) line(row int, s string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	up := l.rows - row
	if row < 0 || up <= 0 {
		fmt.Fprintln(l.out, s)
		return
	}

	l.out.CursorPrevLine(up)
	l.out.ClearLine()
	fmt.Fprint(l.out, s)
	l.out.CursorNextLine(up)
}
