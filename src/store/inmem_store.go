package store

import (
	"sync"

	cm "github.com/leandrolasalle/voto-apresentacao/src/common"
	"github.com/leandrolasalle/voto-apresentacao/src/vote"
)

// InmemStore implements the Store interface with plain in-memory state. It is
// also embedded by BadgerStore, which mirrors every mutation to disk.
type InmemStore struct {
	sync.RWMutex

	candidates   vote.CandidateList
	transactions vote.TransactionList
	evaluations  vote.EvaluationList
	voters       vote.VoterList
	wallet       *vote.Wallet
}

// NewInmemStore creates an InmemStore initialised from the seed.
func NewInmemStore(seed *Seed) *InmemStore {
	s := &InmemStore{}
	s.load(seed)
	return s
}

func (s *InmemStore) load(seed *Seed) {
	s.candidates = seed.Candidates.Clone()
	s.transactions = seed.Transactions.Clone()
	s.evaluations = seed.Evaluations.Clone()
	s.voters = seed.Voters.Clone()
	s.wallet = seed.Wallet.Clone()
}

// Candidates ...
func (s *InmemStore) Candidates() vote.CandidateList {
	s.RLock()
	defer s.RUnlock()
	return s.candidates.Clone()
}

// SetCandidates ...
func (s *InmemStore) SetCandidates(candidates vote.CandidateList) error {
	s.Lock()
	defer s.Unlock()
	s.candidates = candidates.Clone()
	return nil
}

// Transactions ...
func (s *InmemStore) Transactions() vote.TransactionList {
	s.RLock()
	defer s.RUnlock()
	return s.transactions.Clone()
}

// SetTransactions ...
func (s *InmemStore) SetTransactions(transactions vote.TransactionList) error {
	s.Lock()
	defer s.Unlock()
	s.transactions = transactions.Clone()
	return nil
}

// AppendTransaction appends a ledger entry. Appending a hash that is already
// present returns a KeyAlreadyExists StoreErr; the ledger is append-only and
// hashes are unique.
func (s *InmemStore) AppendTransaction(tx *vote.Transaction) error {
	s.Lock()
	defer s.Unlock()
	if s.transactions.ContainsHash(tx.Hash) {
		return cm.NewStoreErr(TransactionsSlot, cm.KeyAlreadyExists, tx.Hash)
	}
	txc := *tx
	s.transactions = append(s.transactions, &txc)
	return nil
}

// Evaluations ...
func (s *InmemStore) Evaluations() vote.EvaluationList {
	s.RLock()
	defer s.RUnlock()
	return s.evaluations.Clone()
}

// SetEvaluations ...
func (s *InmemStore) SetEvaluations(evaluations vote.EvaluationList) error {
	s.Lock()
	defer s.Unlock()
	s.evaluations = evaluations.Clone()
	return nil
}

// PrependEvaluation inserts a feedback entry at the head, newest-first.
func (s *InmemStore) PrependEvaluation(e *vote.Evaluation) error {
	s.Lock()
	defer s.Unlock()
	if s.evaluations.ContainsID(e.ID) {
		return cm.NewStoreErr(EvaluationsSlot, cm.KeyAlreadyExists, e.Name)
	}
	ec := *e
	s.evaluations = append(vote.EvaluationList{&ec}, s.evaluations...)
	return nil
}

// Voters ...
func (s *InmemStore) Voters() vote.VoterList {
	s.RLock()
	defer s.RUnlock()
	return s.voters.Clone()
}

// HasVoter ...
func (s *InmemStore) HasVoter(voterID string) bool {
	s.RLock()
	defer s.RUnlock()
	return s.voters.Contains(voterID)
}

// AddVoter records that voterID has cast a vote. The set is write-once; a
// duplicate returns a KeyAlreadyExists StoreErr.
func (s *InmemStore) AddVoter(voterID string) error {
	s.Lock()
	defer s.Unlock()
	if s.voters.Contains(voterID) {
		return cm.NewStoreErr(VotersSlot, cm.KeyAlreadyExists, voterID)
	}
	s.voters = append(s.voters, voterID)
	return nil
}

// Wallet ...
func (s *InmemStore) Wallet() *vote.Wallet {
	s.RLock()
	defer s.RUnlock()
	return s.wallet.Clone()
}

// SetWallet ...
func (s *InmemStore) SetWallet(w *vote.Wallet) error {
	s.Lock()
	defer s.Unlock()
	s.wallet = w.Clone()
	return nil
}

// Reset restores candidates, transactions, voters and wallet from the seed.
// Evaluations survive a reset.
func (s *InmemStore) Reset(seed *Seed) error {
	s.Lock()
	defer s.Unlock()
	s.candidates = seed.Candidates.Clone()
	s.transactions = seed.Transactions.Clone()
	s.voters = seed.Voters.Clone()
	s.wallet = seed.Wallet.Clone()
	return nil
}

// Close ...
func (s *InmemStore) Close() error {
	return nil
}
