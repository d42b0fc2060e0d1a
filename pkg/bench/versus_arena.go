package bench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prestonmlangford/arbor/pkg/mcts"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

/*
Arena benchmark subpackage, plays a series of games between two engine
configurations from the same starting position.
*/

var ErrInvalidArena = errors.New("bench: invalid arena setup")

type VersusArena[A mcts.MoveLike, P mcts.PlayerLike, S mcts.GameState[A, P, S]] struct {
	VersusArenaStats
	Player1  Engine
	Player2  Engine
	NGames   int
	NWorkers int
	Position S
	Logger   zerolog.Logger

	group    *errgroup.Group
	listener Listener[A]
	mu       sync.Mutex
	records  []GameRecord[A]
	ctx      context.Context
}

// Both engines play from 'position', names default to "player1" and "player2"
func NewVersusArena[A mcts.MoveLike, P mcts.PlayerLike, S mcts.GameState[A, P, S]](
	position S, p1, p2 Engine,
) *VersusArena[A, P, S] {
	if p1.Name == "" {
		p1.Name = "player1"
	}
	if p2.Name == "" {
		p2.Name = "player2"
	}

	return &VersusArena[A, P, S]{
		Player1:  p1,
		Player2:  p2,
		NGames:   100,
		NWorkers: 2,
		Position: position,
		Logger:   log.Logger.With().Str("component", "bench").Logger(),
		ctx:      context.Background(),
	}
}

func (va *VersusArena[A, P, S]) WithContext(ctx context.Context) *VersusArena[A, P, S] {
	va.ctx = ctx
	return va
}

func (va *VersusArena[A, P, S]) WithLogger(logger zerolog.Logger) *VersusArena[A, P, S] {
	va.Logger = logger.With().Str("component", "bench").Logger()
	return va
}

func (va *VersusArena[A, P, S]) Setup(nGames, nWorkers int) {
	va.NGames = nGames
	va.NWorkers = nWorkers
}

func (va *VersusArena[A, P, S]) validate() error {
	if va.NGames <= 0 || va.NWorkers <= 0 {
		return fmt.Errorf("%w: games=%d workers=%d", ErrInvalidArena, va.NGames, va.NWorkers)
	}
	if _, over := va.Position.Gameover(); over {
		return fmt.Errorf("%w: starting position is terminal", ErrInvalidArena)
	}

	for _, engine := range []Engine{va.Player1, va.Player2} {
		if engine.Limits == nil || engine.Limits.Infinite {
			return fmt.Errorf("%w: %s has no move budget", ErrInvalidArena, engine.Name)
		}
		if _, err := mcts.New[A, P](va.Position, engine.Options...); err != nil {
			return fmt.Errorf("%s: %w", engine.Name, err)
		}
	}
	return nil
}

// Start the workers, games are distributed equally between them
func (va *VersusArena[A, P, S]) Start(listener Listener[A]) error {
	va.group = nil
	if err := va.validate(); err != nil {
		return err
	}
	if listener == nil {
		listener = NopListener[A]{}
	}

	va.listener = listener
	va.records = make([]GameRecord[A], 0, va.NGames)
	workers := min(va.NWorkers, va.NGames)
	listener.OnStart(workers)

	va.Logger.Info().
		Str("player1", va.Player1.Name).
		Str("player2", va.Player2.Name).
		Int("games", va.NGames).
		Int("workers", workers).
		Msg("arena started")

	group, ctx := errgroup.WithContext(va.ctx)
	va.group = group

	nGames := va.NGames / workers
	rest := va.NGames % workers
	offset := 0
	for id := range workers {
		n := nGames
		if rest > 0 {
			n++
			rest--
		}
		first := offset
		offset += n
		group.Go(func() error {
			return va.worker(ctx, id, first, n)
		})
	}
	return nil
}

// Wait for every worker and summarize the games played. On cancellation the
// summary covers the finished games and the context error is returned.
func (va *VersusArena[A, P, S]) Wait() (VersusSummaryInfo, error) {
	if va.group == nil {
		return VersusSummaryInfo{}, fmt.Errorf("%w: no games started", ErrInvalidArena)
	}
	err := va.group.Wait()

	records := va.Records()
	results := make([]VersusMatchResult, len(records))
	for i := range records {
		results[i] = records[i].Result
	}

	info := VersusSummaryInfo{
		TotalGames:       va.Total(),
		P1Wins:           va.P1Wins(),
		P2Wins:           va.P2Wins(),
		Draws:            va.Draws(),
		FirstToMoveWins:  va.FirstToMoveWins(),
		SecondToMoveWins: va.SecondToMoveWins(),
		Workers:          min(va.NWorkers, va.NGames),
		P1Name:           va.Player1.Name,
		P2Name:           va.Player2.Name,
	}
	summarize(&info, results)
	va.listener.Summary(info)

	va.Logger.Info().
		Int("games", info.TotalGames).
		Float64("score", info.Score).
		Float64("elo", info.Elo).
		Err(err).
		Msg("arena finished")

	return info, err
}

func (va *VersusArena[A, P, S]) Run(listener Listener[A]) (VersusSummaryInfo, error) {
	if err := va.Start(listener); err != nil {
		return VersusSummaryInfo{}, err
	}
	return va.Wait()
}

// Finished games ordered by game number
func (va *VersusArena[A, P, S]) Records() []GameRecord[A] {
	va.mu.Lock()
	defer va.mu.Unlock()

	records := slices.Clone(va.records)
	slices.SortFunc(records, func(a, b GameRecord[A]) int {
		return a.Game - b.Game
	})
	return records
}

type side[A mcts.MoveLike, P mcts.PlayerLike, S mcts.GameState[A, P, S]] struct {
	name string
	tree *mcts.MCTS[A, P, S]
}

func newSide[A mcts.MoveLike, P mcts.PlayerLike, S mcts.GameState[A, P, S]](engine Engine, position S) (*side[A, P, S], error) {
	tree, err := mcts.New[A, P](position, engine.Options...)
	if err != nil {
		return nil, err
	}
	limits := *engine.Limits
	tree.SetLimits(&limits)
	return &side[A, P, S]{name: engine.Name, tree: tree}, nil
}

// Play games [offset, offset+nGames), player 1 moves first in even games
func (va *VersusArena[A, P, S]) worker(ctx context.Context, id, offset, nGames int) error {
	p1, err := newSide[A, P](va.Player1, va.Position)
	if err != nil {
		return err
	}
	p2, err := newSide[A, P](va.Player2, va.Position)
	if err != nil {
		return err
	}

	local := &VersusArenaStats{}
	info := func(finished int) VersusWorkerInfo[A] {
		return VersusWorkerInfo[A]{
			WorkerID:         id,
			NGames:           nGames,
			FinishedGames:    finished,
			P1Wins:           local.P1Wins(),
			P2Wins:           local.P2Wins(),
			Draws:            local.Draws(),
			FirstToMoveWins:  local.FirstToMoveWins(),
			SecondToMoveWins: local.SecondToMoveWins(),
			P1Name:           va.Player1.Name,
			P2Name:           va.Player2.Name,
		}
	}

	for i := range nGames {
		game := offset + i
		p1First := game%2 == 0
		first, second := p1, p2
		if !p1First {
			first, second = p2, p1
		}

		start := time.Now()
		moves, outcome, err := va.playGame(ctx, info(i), first, second)
		if err != nil {
			return err
		}

		result := toAgentResult(outcome, p1First)
		va.add(result, p1First)
		local.add(result, p1First)

		record := GameRecord[A]{
			Game:     game,
			Worker:   id,
			P1First:  p1First,
			Result:   result,
			Moves:    moves,
			Duration: time.Since(start),
		}
		va.mu.Lock()
		va.records = append(va.records, record)
		va.mu.Unlock()

		finished := info(i + 1)
		finished.Moves = moves
		finished.GameMoveNum = len(moves)
		va.listener.OnFinishedGame(finished)

		va.Logger.Info().
			Int("game", game).
			Int("worker", id).
			Str("first", first.name).
			Stringer("result", result).
			Int("moves", len(moves)).
			Dur("duration", record.Duration).
			Msg("game finished")
	}

	va.listener.OnFinishedWork(info(nGames))
	return nil
}

// Play one game to the end, both sides keep their trees between moves
func (va *VersusArena[A, P, S]) playGame(
	ctx context.Context, info VersusWorkerInfo[A], first, second *side[A, P, S],
) ([]A, GameOutcome, error) {
	state := va.Position
	firstPlayer := state.Player()
	first.tree.Reset(state)
	second.tree.Reset(state)

	moves := make([]A, 0, 64)
	for {
		if _, over := state.Gameover(); over {
			break
		}

		mover := first
		if state.Player() != firstPlayer {
			mover = second
		}

		mover.tree.Run(ctx)
		if err := ctx.Err(); err != nil {
			return moves, GameOutcome{}, err
		}

		action, ok := mover.tree.Best()
		if !ok {
			panic("bench: no legal action in a running game")
		}
		state = state.Make(action)
		moves = append(moves, action)

		for _, s := range [2]*side[A, P, S]{first, second} {
			if !s.tree.MakeMove(action) {
				va.Logger.Warn().
					Str("engine", s.name).
					Int("move", len(moves)).
					Msg("tree reuse missed, resetting")
				s.tree.Reset(state)
			}
		}

		info.Moves = moves
		info.GameMoveNum = len(moves)
		va.listener.OnMoveMade(info)
	}

	return moves, computeOutcome[A, P](state, firstPlayer), nil
}
