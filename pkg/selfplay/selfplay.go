// Package selfplay builds value datasets: positions reached by random play,
// each labelled with a fixed-budget search.
package selfplay

import (
	"context"
	"fmt"
	"runtime"

	"github.com/chewxy/math32"
	"github.com/prestonmlangford/arbor/pkg/dataset"
	"github.com/prestonmlangford/arbor/pkg/mcts"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	// Start depths are 0 .. MaxLength-1
	MaxLength  int
	Iterations uint32
	// Number of passes over every start depth
	Batches int
	Workers int
	Seed    uint64
	// Engine options, the seed option is set per sample
	Options []mcts.Option
	Logger  zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		MaxLength:  60,
		Iterations: 10000,
		Batches:    1,
		Workers:    runtime.NumCPU(),
		Seed:       mcts.DefaultSeed,
		Logger:     log.Logger,
	}
}

// Labelled position. Value and Error are seen by Player, the player to move
// after Moves. Terminal samples are labelled with the game's outcome.
type Sample[A mcts.MoveLike, P mcts.PlayerLike] struct {
	Batch      int
	Depth      int
	Seed       uint64
	Moves      []A
	Player     P
	Iterations uint32
	Value      float32
	Error      float32
	Best       A
	Ply        []mcts.ActionValue[A]
	Terminal   bool
}

// Generate one sample per batch and start depth, in that order. The result
// only depends on the configuration, not on the number of workers.
func Generate[A mcts.MoveLike, P mcts.PlayerLike, S mcts.GameState[A, P, S]](
	ctx context.Context, start S, cfg Config,
) ([]Sample[A, P], error) {
	if cfg.MaxLength <= 0 || cfg.Iterations == 0 || cfg.Batches <= 0 {
		return nil, fmt.Errorf("selfplay: invalid config: length=%d iterations=%d batches=%d",
			cfg.MaxLength, cfg.Iterations, cfg.Batches)
	}
	// Fail on bad engine options before spawning anything
	if _, err := mcts.New[A, P](start, cfg.Options...); err != nil {
		return nil, err
	}

	logger := cfg.Logger.With().Str("component", "selfplay").Logger()
	samples := make([]Sample[A, P], cfg.Batches*cfg.MaxLength)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(max(cfg.Workers, 1))

	for i := range samples {
		batch, depth := i/cfg.MaxLength, i%cfg.MaxLength
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			sample, err := label[A, P](ctx, start, cfg, batch, depth)
			if err != nil {
				return err
			}
			samples[i] = sample

			logger.Info().
				Int("batch", batch).
				Int("depth", depth).
				Float32("value", sample.Value).
				Bool("terminal", sample.Terminal).
				Msg("sample done")
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return samples, nil
}

func label[A mcts.MoveLike, P mcts.PlayerLike, S mcts.GameState[A, P, S]](
	ctx context.Context, start S, cfg Config, batch, depth int,
) (Sample[A, P], error) {
	seed := cfg.Seed + uint64(batch*cfg.MaxLength+depth)
	state, moves := randomStart[A, P](start, depth, rand.New(rand.NewSource(seed)))

	sample := Sample[A, P]{
		Batch:  batch,
		Depth:  depth,
		Seed:   seed,
		Moves:  moves,
		Player: state.Player(),
	}

	if outcome, over := state.Gameover(); over {
		sample.Terminal = true
		sample.Value = outcome.Value()
		return sample, nil
	}

	opts := append(append([]mcts.Option(nil), cfg.Options...), mcts.WithSeed(seed))
	tree, err := mcts.New[A, P](state, opts...)
	if err != nil {
		return sample, err
	}

	tree.SetLimits(mcts.DefaultLimits().SetCycles(cfg.Iterations))
	tree.Run(ctx)
	if err := ctx.Err(); err != nil {
		return sample, err
	}

	info := tree.Stats()
	n := float32(info.N)
	sample.Iterations = tree.Cycles()
	sample.Value = info.Q
	sample.Error = 0.5/n + math32.Sqrt(info.Q*(1-info.Q)/n)
	sample.Best, _ = tree.Best()
	sample.Ply = tree.Ply()
	return sample, nil
}

// Play up to 'depth' uniformly random moves, stopping early at the end of the game
func randomStart[A mcts.MoveLike, P mcts.PlayerLike, S mcts.GameState[A, P, S]](state S, depth int, r *rand.Rand) (S, []A) {
	moves := make([]A, 0, depth)
	actions := make([]A, 0, 16)

	for range depth {
		if _, over := state.Gameover(); over {
			break
		}

		actions = actions[:0]
		state.Actions(func(a A) {
			actions = append(actions, a)
		})
		a := actions[r.Intn(len(actions))]
		state = state.Make(a)
		moves = append(moves, a)
	}
	return state, moves
}

// Convert samples to parquet rows, actions and players in their text form
func Rows[A mcts.MoveLike, P mcts.PlayerLike](samples []Sample[A, P]) []dataset.SampleRow {
	rows := make([]dataset.SampleRow, len(samples))
	for i, s := range samples {
		row := dataset.SampleRow{
			Depth:      int32(s.Depth),
			Seed:       int64(s.Seed),
			Moves:      texts(s.Moves),
			Player:     fmt.Sprint(s.Player),
			Iterations: int32(s.Iterations),
			Value:      s.Value,
			Error:      s.Error,
			Terminal:   s.Terminal,
		}
		if !s.Terminal {
			row.Best = fmt.Sprint(s.Best)
		}

		for _, av := range s.Ply {
			row.Actions = append(row.Actions, fmt.Sprint(av.Action))
			row.Values = append(row.Values, av.Value)
			row.Visits = append(row.Visits, int32(av.Visits))
		}
		rows[i] = row
	}
	return rows
}

func texts[A any](items []A) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = fmt.Sprint(item)
	}
	return out
}
