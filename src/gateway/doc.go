// Package gateway abstracts the optional durable remote store behind the
// Gateway interface. A node without a gateway runs in pure local mode; a
// node with one treats it as a best-effort mirror of the local cache, later
// reconciled through the change feed.
//
// There are two implementations. PostgresGateway talks to a Postgres
// database through lib/pq and implements the change feed with LISTEN/NOTIFY
// triggers, so the feed comes from the durable store itself rather than a
// separate broker. InmemGateway is a full in-process implementation used by
// tests and examples; it supports fault injection and can disable its atomic
// increment to force the documented read-modify-write fallback.
//
// None of the gateway operations are transactional across tables, and the
// increment fallback is not race-free: two concurrent fallback increments can
// lose an update. That weakness is inherited deliberately from the system
// being simulated; see IncrementVote.
package gateway
