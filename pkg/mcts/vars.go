package mcts

import (
	"errors"
	"math"
)

// Exploration parameter used in the UCT formula, higher values increase exploration
// while lower values increase exploitation. Theoretical value is sqrt(2).
const DefaultExploration float32 = math.Sqrt2

// A leaf is expanded once its visit count exceeds this value
const DefaultExpansionMinimum uint32 = 10

// Seed used when neither WithSeed nor WithEntropy is given,
// so that two sessions built with the same options behave identically
const DefaultSeed uint64 = 0x0102030405060708

// Initial capacity of the node store
const defaultStoreCapacity = 1 << 10

var (
	// Returned (wrapped) by New for every rejected option
	ErrInvalidConfig = errors.New("mcts: invalid configuration")
)

const (
	// When choosing the best child, choose the one with most visits,
	// this is the go-to method for lines and tree reuse
	BestChildMostVisits BestChildPolicy = iota

	// Choose the child with the best estimated value, what Best() reports
	BestChildWinRate
)
