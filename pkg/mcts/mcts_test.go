package mcts

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		opts []Option
	}{
		{"zero exploration", []Option{WithExploration(0)}},
		{"negative exploration", []Option{WithExploration(-1)}},
		{"infinite exploration", []Option{WithExploration(float32(math.Inf(1)))}},
		{"zero expansion minimum", []Option{WithExpansionMinimum(0)}},
		{"negative cutoff", []Option{WithRolloutCutoff(-1)}},
		{"unknown layout", []Option{WithLayout(Layout(7))}},
		{"custom rollout without rollouter", []Option{WithCustomRollout()}},
		{"heuristic without evaluator", []Option{WithHeuristic()}},
		{"transposition without hasher", []Option{WithTransposition()}},
		{"hash layout without hasher", []Option{WithLayout(LayoutHash)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New[int8, int8](mirror{}, tc.opts...)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}

	t.Run("rollout and heuristic together", func(t *testing.T) {
		rollouts := 0
		_, err := New[int8, int8](countingNim{nim{stones: 3}, &rollouts}, WithCustomRollout(), WithHeuristic())
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestNewAcceptsCapableStates(t *testing.T) {
	_, err := New[int8, int8](mirror{})
	require.NoError(t, err)

	_, err = New[int8, int8](nim{stones: 5}, WithTransposition(), WithRolloutCutoff(4), WithExploration(0.7))
	require.NoError(t, err)

	_, err = New[int8, int8](nim{stones: 5}, WithLayout(LayoutHash))
	require.NoError(t, err)
}

func TestEntropySeeds(t *testing.T) {
	a, b := DefaultConfig(), DefaultConfig()
	WithEntropy()(&a)
	WithEntropy()(&b)
	require.NotEqual(t, a.Seed, b.Seed)
	require.NotEqual(t, DefaultSeed, a.Seed)
}

func TestFreshTree(t *testing.T) {
	tree := newNim(t, 5)

	info := tree.Stats()
	require.Equal(t, 1, info.Branch)
	require.Equal(t, 3, info.Unexplored)
	require.Equal(t, uint32(1), info.N)
	require.Equal(t, float32(0.5), info.Q)
	require.Equal(t, 4, tree.Size())
	require.Equal(t, StatusIdle, tree.Status())

	ply := tree.Ply()
	require.Len(t, ply, 3)
	for i, av := range ply {
		require.Equal(t, int8(i+1), av.Action)
		require.Equal(t, float32(0.5), av.Value)
		require.Equal(t, float32(0.5), av.Error)
		require.Zero(t, av.Visits)
	}

	best, ok := tree.Best()
	require.True(t, ok)
	require.Equal(t, int8(1), best)
}

func TestTerminalRoot(t *testing.T) {
	tree := newNim(t, 0)

	require.Nil(t, tree.Ply())
	require.Nil(t, tree.MultiPv())
	_, ok := tree.Best()
	require.False(t, ok)
	require.Equal(t, 1, tree.Stats().Terminal)

	require.Panics(t, func() { tree.Run(context.Background()) })
	require.Panics(t, func() { tree.Ponder(10) })

	_, err := SearchBest[int8, int8](nim{}, time.Millisecond)
	require.ErrorIs(t, err, ErrTerminalRoot)
}

func TestSearchFindsWinningTake(t *testing.T) {
	cases := []struct {
		stones int8
		cycles uint32
		want   int8
	}{
		{5, 5000, 1},
		{6, 5000, 2},
		{10, 30000, 2},
		{11, 30000, 3},
	}

	for _, tc := range cases {
		tree := newNim(t, tc.stones)
		tree.Ponder(tc.cycles)

		best, ok := tree.Best()
		require.True(t, ok)
		require.Equal(t, tc.want, best, "stones=%d ply=%v", tc.stones, tree.Ply())
	}
}

func TestTerminalShortCircuit(t *testing.T) {
	rollouts := 0
	tree, err := New[int8, int8](countingNim{nim{stones: 2}, &rollouts}, WithCustomRollout())
	require.NoError(t, err)

	tree.Ponder(100)

	// Only the one-stone leaf is ever played out, the winning take is found
	// on the second iteration and selected from then on
	require.Equal(t, 1, rollouts)
	best, _ := tree.Best()
	require.Equal(t, int8(2), best)

	ply := tree.Ply()
	require.Equal(t, float32(1), ply[1].Value)
	require.Zero(t, ply[1].Error)
	require.Equal(t, uint32(99), ply[1].Visits)
}

func TestDeterministicWithSeed(t *testing.T) {
	a := newNim(t, 15, WithSeed(99))
	b := newNim(t, 15, WithSeed(99))
	a.Ponder(3000)
	b.Ponder(3000)

	require.Equal(t, a.Ply(), b.Ply())
	require.Equal(t, a.Size(), b.Size())
	require.Equal(t, a.MaxDepth(), b.MaxDepth())
}

func TestMirroredActionsAgree(t *testing.T) {
	tree, err := New[int8, int8](mirror{})
	require.NoError(t, err)
	tree.Ponder(20000)

	ply := tree.Ply()
	require.Len(t, ply, 4)

	// the outer lanes hold a draw, their early playouts overrate them
	require.InDelta(t, 0.5, ply[0].Value, 0.05)
	tolerance := 2 * float64(ply[0].Error+ply[3].Error)
	require.InDelta(t, ply[0].Value, ply[3].Value, tolerance)

	// the inner lanes lose once the reply is found
	require.Less(t, ply[1].Value, ply[0].Value)
	tolerance = 2 * float64(ply[1].Error+ply[2].Error)
	require.InDelta(t, ply[1].Value, ply[2].Value, tolerance)
}

func TestErrorShrinks(t *testing.T) {
	tree := newNim(t, 13)
	tree.Ponder(2000)

	best, _ := tree.Best()
	before := errorOf(tree.Ply(), best)
	tree.Ponder(18000)
	after := errorOf(tree.Ply(), best)

	require.LessOrEqual(t, after, before)
}

func errorOf(ply []ActionValue[int8], action int8) float32 {
	for _, av := range ply {
		if av.Action == action {
			return av.Error
		}
	}
	return -1
}

func TestRankedIsSortedAndStable(t *testing.T) {
	tree := newNim(t, 9)
	tree.Ponder(3000)

	ranked := tree.Ranked()
	require.Len(t, ranked, 3)
	for i := 1; i < len(ranked); i++ {
		require.GreaterOrEqual(t, ranked[i-1].Value, ranked[i].Value)
	}

	best, _ := tree.Best()
	require.Equal(t, best, ranked[0].Action)
}

func TestPonderAccumulates(t *testing.T) {
	tree := newNim(t, 12)
	tree.SetLimits(DefaultLimits().SetMultiPv(2))

	tree.Ponder(100)
	tree.Ponder(150)

	require.Equal(t, uint32(250), tree.Cycles())
	require.Equal(t, StopCycles, tree.StopReason())
	require.Equal(t, StatusStopped, tree.Status())

	// Limits given by the caller survive a ponder
	require.True(t, tree.Limits().Infinite)
	require.Equal(t, 2, tree.Limits().MultiPv)
	require.Len(t, tree.MultiPv(), 2)
}

func TestRunStops(t *testing.T) {
	t.Run("cancelled context", func(t *testing.T) {
		tree := newNim(t, 10)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.Equal(t, StopInterrupt, tree.Run(ctx))
		require.Zero(t, tree.Cycles())
	})

	t.Run("stop signal", func(t *testing.T) {
		tree := newNim(t, 10)
		tree.StatsListener().
			SetCycleInterval(50).
			OnCycle(func(ListenerTreeStats[int8]) { tree.Limiter.SetStop(true) })

		require.Equal(t, StopInterrupt, tree.Run(context.Background()))
		require.Equal(t, uint32(50), tree.Cycles())
	})

	t.Run("depth", func(t *testing.T) {
		tree := newNim(t, 10)
		tree.SetLimits(DefaultLimits().SetDepth(3))

		require.Equal(t, StopDepth, tree.Run(context.Background()))
		require.GreaterOrEqual(t, tree.MaxDepth(), 3)
	})

	t.Run("nodes", func(t *testing.T) {
		tree := newNim(t, 10)
		tree.SetLimits(DefaultLimits().SetNodes(50))

		require.Equal(t, StopMemory, tree.Run(context.Background()))
		require.GreaterOrEqual(t, tree.Size(), 50)
	})

	t.Run("nodes with cycles stops growing", func(t *testing.T) {
		tree := newNim(t, 10)
		tree.SetLimits(DefaultLimits().SetNodes(50))
		tree.Ponder(2000)

		require.Equal(t, StopCycles, tree.StopReason())
		require.Equal(t, uint32(2000), tree.Cycles())
		require.LessOrEqual(t, tree.Size(), 53)
	})

	t.Run("movetime", func(t *testing.T) {
		tree := newNim(t, 20)
		ranked := tree.Search(10 * time.Millisecond)

		require.Len(t, ranked, 3)
		require.Equal(t, StopMovetime, tree.StopReason()&StopMovetime)
		require.Positive(t, tree.Cycles())
	})
}

func TestSearchBest(t *testing.T) {
	best, err := SearchBest[int8, int8](nim{stones: 5}, 20*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, int8(1), best)

	_, err = SearchBest[int8, int8](nim{stones: 5}, time.Millisecond, WithExpansionMinimum(0))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTransposition(t *testing.T) {
	tree := newNim(t, 10, WithTransposition())
	tree.Ponder(20000)

	info := tree.Stats()
	require.Positive(t, info.Transpose)

	best, _ := tree.Best()
	require.Equal(t, int8(2), best)

	_, rootRegistered := tree.table[nim{stones: 10}.Hash()]
	require.False(t, rootRegistered)

	// Every redirect points at a real node
	tree.store.Range(func(_ Key, n Node[int8, int8]) bool {
		if n.Kind == KindTranspose {
			target := tree.store.Get(n.Target).Kind
			require.NotEqual(t, KindTranspose, target)
			require.NotEqual(t, KindUnexplored, target)
		}
		return true
	})
}

func TestHashLayout(t *testing.T) {
	tree := newNim(t, 10, WithLayout(LayoutHash))
	require.Equal(t, 1, tree.Size())
	require.Equal(t, 3, tree.Stats().Unexplored)

	tree.Ponder(20000)

	best, _ := tree.Best()
	require.Equal(t, int8(2), best)
	// one entry per distinct position at most
	require.LessOrEqual(t, tree.Size(), 22)

	require.True(t, tree.MakeMove(best))
	require.Equal(t, int8(8), tree.State().stones)
	require.Equal(t, Key(tree.State().Hash()), tree.root)
}

func TestMakeMoveKeepsSubtree(t *testing.T) {
	tree := newNim(t, 10)
	tree.Ponder(20000)

	pv, _, _ := tree.Pv()
	require.GreaterOrEqual(t, len(pv), 2)
	size := tree.Size()
	maxdepth := tree.MaxDepth()

	require.True(t, tree.MakeMove(pv[0]))
	require.Less(t, tree.Size(), size)
	require.Equal(t, maxdepth-1, tree.MaxDepth())
	require.Equal(t, nim{stones: 10 - pv[0], player: 1}, tree.State())
	require.Equal(t, Key(0), tree.root)

	newPv, _, _ := tree.Pv()
	require.Equal(t, pv[1:], newPv)

	// The kept tree keeps searching
	tree.Ponder(1000)
	_, ok := tree.Best()
	require.True(t, ok)
}

func TestMakeMove(t *testing.T) {
	t.Run("illegal", func(t *testing.T) {
		tree := newNim(t, 10)
		require.False(t, tree.MakeMove(7))
		require.Equal(t, int8(10), tree.State().stones)
	})

	t.Run("unexpanded child resets", func(t *testing.T) {
		tree := newNim(t, 10)
		require.True(t, tree.MakeMove(3))
		require.Equal(t, int8(7), tree.State().stones)
		require.Equal(t, 4, tree.Size())
		require.Zero(t, tree.Cycles())
	})

	t.Run("with transpositions", func(t *testing.T) {
		tree := newNim(t, 12, WithTransposition())
		tree.Ponder(5000)
		pv, _, _ := tree.Pv()

		require.True(t, tree.MakeMove(pv[0]))
		root := tree.store.Get(tree.root)
		for _, edge := range root.Children {
			require.NotEqual(t, KindTranspose, tree.store.Get(edge.Key).Kind)
		}
		for _, k := range tree.table {
			require.Less(t, int(k), tree.Size())
		}
		tree.Ponder(1000)
	})
}

func TestListener(t *testing.T) {
	tree := newNim(t, 12)

	var cycles, stops int
	lastDepth := 0
	tree.StatsListener().
		SetCycleInterval(100).
		OnCycle(func(stats ListenerTreeStats[int8]) {
			cycles++
			require.Zero(t, stats.Cycles%100)
			require.Len(t, stats.Lines, 1)
		}).
		OnDepth(func(stats ListenerTreeStats[int8]) {
			require.Greater(t, stats.Maxdepth, lastDepth)
			lastDepth = stats.Maxdepth
		}).
		OnStop(func(stats ListenerTreeStats[int8]) {
			stops++
			require.Equal(t, StopCycles, stats.StopReason)
			require.Equal(t, stats.Lines[0].BestMove, stats.Lines[0].Moves[0])
		})

	tree.Ponder(1000)
	require.Equal(t, 10, cycles)
	require.Equal(t, 1, stops)
	require.Equal(t, tree.MaxDepth(), lastDepth)

	tree.ResetListener()
	tree.Ponder(100)
	require.Equal(t, 10, cycles)
}

func TestSetListenerWithoutInterval(t *testing.T) {
	tree := newNim(t, 8)
	calls := 0
	tree.SetListener(StatsListener[int8]{onCycle: func(ListenerTreeStats[int8]) { calls++ }})

	tree.Ponder(10)
	require.Equal(t, 10, calls)
}

func TestWithListener(t *testing.T) {
	stops := 0
	listener := NewStatsListener[int8]().OnStop(func(ListenerTreeStats[int8]) { stops++ })
	tree := newNim(t, 8, WithListener(*listener))

	tree.Ponder(10)
	tree.Ponder(10)
	require.Equal(t, 2, stops)

	_, err := New[int8, int8](nim{stones: 8}, WithListener(StatsListener[string]{}))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLogger(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	tree := newNim(t, 6, WithLogger(zerolog.New(&buf)))
	tree.Ponder(10)

	require.Contains(t, buf.String(), `"component":"mcts"`)
	require.Contains(t, buf.String(), `"message":"search stopped"`)
	require.Contains(t, buf.String(), `"reason":"Cycles"`)
}
