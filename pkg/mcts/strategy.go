package mcts

// Value of the state for the player to move, with the configured evaluation.
// Finished games return the outcome value without playing anything.
func (mcts *MCTS[A, P, S]) evaluate(state S) float32 {
	if outcome, over := state.Gameover(); over {
		return outcome.Value()
	}

	switch {
	case mcts.cfg.Heuristic:
		return clamp(any(state).(Evaluator).Evaluate())
	case mcts.cfg.CustomRollout:
		return clamp(any(state).(Rollouter).Rollout(mcts.rng))
	}
	return mcts.rollout(state)
}

// Uniform random playout, the result is seen by the player to move in 'state'
func (mcts *MCTS[A, P, S]) rollout(state S) float32 {
	player := state.Player()
	cutoff := mcts.cfg.RolloutCutoff

	for depth := 0; ; depth++ {
		if outcome, over := state.Gameover(); over {
			return perspective(state.Player(), player, outcome.Value())
		}

		if cutoff > 0 && depth >= cutoff {
			if e, ok := any(state).(Evaluator); ok {
				return perspective(state.Player(), player, clamp(e.Evaluate()))
			}
			return 0.5
		}

		mcts.actions = mcts.actions[:0]
		state.Actions(func(a A) {
			mcts.actions = append(mcts.actions, a)
		})
		if len(mcts.actions) == 0 {
			panic("mcts: rollout reached a position without actions that is not game over")
		}

		state = state.Make(mcts.actions[mcts.rng.Intn(len(mcts.actions))])
	}
}

// Negamax backup: the child's value counts as is for the same mover, flipped otherwise
func backup[A MoveLike, P PlayerLike](node *Node[A, P], childPlayer P, v float32) float32 {
	v = perspective(childPlayer, node.Player, v)
	node.update(v)
	return v
}

func clamp(v float32) float32 {
	return min(max(v, 0), 1)
}
