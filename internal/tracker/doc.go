// Package tracker owns the lifecycle of in-flight generations.
//
// A Tracker holds the active set, submits each new generation through the
// proxy client, and moves generations into history once they reach a
// terminal status. Progress between submission and completion is simulated:
// Run advances every active generation by a random increment capped at 90,
// and a one-shot timer marks processing generations completed with a
// placeholder video after a fixed delay. Neither signal reflects real
// provider state.
//
// Every write checks active-set membership first. Submission results and
// simulated completions that arrive after a cancel are dropped instead of
// resurrecting the generation.
package tracker
