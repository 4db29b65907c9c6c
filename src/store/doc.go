// Package store implements the local cache: a persisted slot store holding
// the typed state slices of the simulation (candidates, ledger, voter
// registry, wallet session, evaluations).
//
// The Store object is abstracted behind an interface with two
// implementations. InmemStore holds everything in memory and is used for
// tests and for nodes run without the --store flag. BadgerStore is a wrapper
// around InmemStore that also persists every slot to a key-value store on
// disk, synchronously with the in-memory update, so that a crash immediately
// after a write cannot diverge the two. On open, BadgerStore loads each slot
// from disk and degrades to the supplied seed value when a key is absent or
// unparsable; a corrupt entry is treated as absent, never as a fatal error.
//
// Slot keys carry the tcc_v3_ namespace prefix inherited from the original
// simulation, so a database written by one version of the node remains
// readable by the next.
package store
