package gateway

import (
	"github.com/leandrolasalle/voto-apresentacao/src/vote"
)

// CandidateCount is the remote projection of a candidate: the durable store
// only ever holds the id and the vote count. Display fields (name, party,
// image) live in the local cache and are never overwritten by remote data.
type CandidateCount struct {
	ID    int `json:"id"`
	Votes int `json:"votes"`
}

// FeedHandlers regroups the callbacks invoked by a change-feed subscription.
// Handlers are called from the subscription's dispatch goroutine, in delivery
// order. A nil handler skips that event kind.
type FeedHandlers struct {
	CandidateUpdate   func(CandidateCount)
	TransactionInsert func(*vote.Transaction)
	EvaluationInsert  func(*vote.Evaluation)
}

// Subscription is a handle on an active change-feed subscription. It must be
// unsubscribed on teardown so the feed does not leak across session resets.
type Subscription interface {
	Unsubscribe()
}

// Gateway is the boundary to the durable remote store. All operations are
// best-effort: a returned error means the remote is unavailable or rejected
// the call, and callers on the optimistic vote path log it without failing.
type Gateway interface {
	// FetchCandidates returns the authoritative remote vote counts.
	FetchCandidates() ([]CandidateCount, error)

	// FetchTransactions returns the authoritative remote ledger.
	FetchTransactions() (vote.TransactionList, error)

	// FetchVoters returns the authoritative remote voter registry.
	FetchVoters() (vote.VoterList, error)

	// FetchEvaluations returns the remote feedback entries, newest-first.
	FetchEvaluations() (vote.EvaluationList, error)

	// IncrementVote increments a candidate's count, atomically when the
	// server supports it. Otherwise it falls back to reading the current
	// value and writing value+1, which is NOT race-free: two concurrent
	// fallback increments can lose an update. Known weakness, kept on
	// purpose.
	IncrementVote(candidateID int) error

	// InsertTransaction appends a ledger entry to the remote store.
	InsertTransaction(tx *vote.Transaction) error

	// InsertVoter records a voter identifier in the remote registry.
	InsertVoter(voterID string) error

	// InsertEvaluation appends a feedback entry to the remote store.
	InsertEvaluation(e *vote.Evaluation) error

	// ResetAll deletes all transactions and voters and zeroes every
	// candidate count. Evaluations are not touched.
	ResetAll(candidateIDs []int) error

	// Subscribe starts a change-feed subscription.
	Subscribe(handlers FeedHandlers) (Subscription, error)

	Close() error
}
