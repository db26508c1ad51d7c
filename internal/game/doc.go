// Package game implements the Texas Hold'em table engine.
//
// A Table seats players, deals, posts blinds, runs the four betting rounds
// and pays the whole pot to a single showdown winner, then deals the next
// hand until at most two seats still hold chips. Every transition happens
// synchronously inside the call that triggered it; there are no timers.
//
// # Basic Usage
//
//	tbl, err := game.NewTable(game.Config{
//	    Capacity:       3,
//	    SmallBlind:     10,
//	    BigBlind:       20,
//	    InitialBalance: 100,
//	})
//	id, err := tbl.Join(0, "alice", game.JoinOptions{})
//	err = tbl.SetReady(id, true)
//	// once three seats are ready the first hand is dealt
//	err = tbl.Act(id, game.Call, 0)
//
// # Deterministic Testing
//
// Inject a seeded source and a rigged evaluator:
//
//	tbl, _ := game.NewTable(cfg,
//	    game.WithRand(randutil.New(42)),
//	    game.WithEvaluator(fake),
//	)
//
// A Table is not safe for concurrent use. The registry package owns the
// locking.
package game
