// Package vote defines the domain model of the voting simulation: the
// candidate set, the transaction ledger, the voter registry, the wallet
// session, and the audience evaluations.
//
// A vote is recorded as a Transaction, an immutable ledger entry styled after
// a blockchain transaction: it carries a unique hash, a monotonically
// increasing block number, the pseudonymous address of the session that cast
// it, and a simulated gas cost. Blank (id 0) and null (negative id) votes are
// ordinary members of the candidate set and follow the exact same path as any
// other vote.
//
// The collections are serialized with the canonical JSON handle of the ugorji
// codec so that the persisted form of a slot is stable across runs.
package vote
