// Package node implements the voting session state machine and the vote
// submission pipeline.
//
// A session moves through Unidentified, Identified, SessionBound,
// Submitting and Completed. Every accepted vote is applied to the local
// store unconditionally; the remote store is written through on a
// best-effort basis and reconciled via the initial sync and the change
// feed. The simulated mining window between submission and acceptance is
// driven by MiningTimer and can be cancelled by a session reset, in which
// case the vote leaves no trace.
package node
