package mcts

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"
)

type Config struct {
	Exploration      float32
	ExpansionMinimum uint32
	// Use the state's own Rollout instead of uniform random playouts
	CustomRollout bool
	// Use the state's Evaluate instead of playouts
	Heuristic bool
	// Maximum random playout length, 0 plays until the game ends
	RolloutCutoff int
	Layout        Layout
	Transposition bool
	Seed          uint64
	Logger        zerolog.Logger
	// StatsListener[A] set by WithListener, typed by the session's action
	listener any
}

type Option func(*Config)

func DefaultConfig() Config {
	return Config{
		Exploration:      DefaultExploration,
		ExpansionMinimum: DefaultExpansionMinimum,
		Layout:           LayoutIndex,
		Seed:             DefaultSeed,
		Logger:           log.Logger,
	}
}

func WithExploration(c float32) Option {
	return func(cfg *Config) {
		cfg.Exploration = c
	}
}

func WithExpansionMinimum(n uint32) Option {
	return func(cfg *Config) {
		cfg.ExpansionMinimum = n
	}
}

// Evaluate leaves with the state's Rollout method, the state must implement Rollouter
func WithCustomRollout() Option {
	return func(cfg *Config) {
		cfg.CustomRollout = true
	}
}

// Evaluate leaves with the state's Evaluate method, the state must implement Evaluator
func WithHeuristic() Option {
	return func(cfg *Config) {
		cfg.Heuristic = true
	}
}

// Stop random playouts after 'depth' moves. The position reached is then scored
// by its Evaluate method if it has one, otherwise counts as a draw.
func WithRolloutCutoff(depth int) Option {
	return func(cfg *Config) {
		cfg.RolloutCutoff = depth
	}
}

func WithLayout(layout Layout) Option {
	return func(cfg *Config) {
		cfg.Layout = layout
	}
}

// Share nodes between different move orders reaching the same state.
// Correctness depends on the quality of the state's Hash, collisions merge silently.
// Games with move repetition can loop, bound them with Limits.SetDepth.
func WithTransposition() Option {
	return func(cfg *Config) {
		cfg.Transposition = true
	}
}

func WithSeed(seed uint64) Option {
	return func(cfg *Config) {
		cfg.Seed = seed
	}
}

// Seed the session from the operating system's entropy
func WithEntropy() Option {
	return func(cfg *Config) {
		cfg.Seed = frand.Uint64n(math.MaxUint64)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = logger
	}
}

// Attach search callbacks at construction, same as calling SetListener.
// The action type must match the session's.
func WithListener[A MoveLike](listener StatsListener[A]) Option {
	return func(cfg *Config) {
		cfg.listener = listener
	}
}

// Validate the configuration against the capabilities of the root state
func (cfg *Config) validate(state any) error {
	if !(cfg.Exploration > 0) || math.IsInf(float64(cfg.Exploration), 0) {
		return fmt.Errorf("%w: exploration must be a positive number, got %v", ErrInvalidConfig, cfg.Exploration)
	}
	if cfg.ExpansionMinimum == 0 {
		return fmt.Errorf("%w: expansion minimum must be greater than 0", ErrInvalidConfig)
	}
	if cfg.CustomRollout && cfg.Heuristic {
		return fmt.Errorf("%w: custom rollout and heuristic evaluation are mutually exclusive", ErrInvalidConfig)
	}
	if cfg.RolloutCutoff < 0 {
		return fmt.Errorf("%w: rollout cutoff must not be negative, got %d", ErrInvalidConfig, cfg.RolloutCutoff)
	}
	if cfg.Layout != LayoutIndex && cfg.Layout != LayoutHash {
		return fmt.Errorf("%w: unknown layout %d", ErrInvalidConfig, cfg.Layout)
	}
	if _, ok := state.(Rollouter); cfg.CustomRollout && !ok {
		return fmt.Errorf("%w: custom rollout requires the state to implement Rollouter", ErrInvalidConfig)
	}
	if _, ok := state.(Evaluator); cfg.Heuristic && !ok {
		return fmt.Errorf("%w: heuristic evaluation requires the state to implement Evaluator", ErrInvalidConfig)
	}
	if _, ok := state.(Hasher); (cfg.Transposition || cfg.Layout == LayoutHash) && !ok {
		return fmt.Errorf("%w: %s layout with transposition=%v requires the state to implement Hasher",
			ErrInvalidConfig, cfg.Layout, cfg.Transposition)
	}
	return nil
}
