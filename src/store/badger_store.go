package store

import (
	"os"

	"github.com/dgraph-io/badger"

	cm "github.com/leandrolasalle/voto-apresentacao/src/common"
	"github.com/leandrolasalle/voto-apresentacao/src/vote"
)

// BadgerStore is a write-through wrapper around InmemStore that persists
// every slot to a Badger key-value database. Writes are synchronous
// (SyncWrites) so the disk can never lag behind the in-memory view by more
// than the write that crashed.
type BadgerStore struct {
	inmemStore    *InmemStore
	db            *badger.DB
	path          string
	needBootstrap bool
}

// NewBadgerStore creates a brand new BadgerStore seeded from scratch.
func NewBadgerStore(seed *Seed, path string) (*BadgerStore, error) {
	inmemStore := NewInmemStore(seed)

	handle, err := openDB(path)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		inmemStore: inmemStore,
		db:         handle,
		path:       path,
	}

	if err := store.dbSetAll(); err != nil {
		return nil, err
	}

	return store, nil
}

// LoadBadgerStore creates a BadgerStore from an existing database. Each slot
// that is absent or unparsable falls back to its seed value; a corrupt entry
// is never fatal.
func LoadBadgerStore(seed *Seed, path string) (*BadgerStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	handle, err := openDB(path)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		db:            handle,
		path:          path,
		needBootstrap: true,
	}

	loaded := &Seed{
		Candidates:   seed.Candidates,
		Transactions: seed.Transactions,
		Evaluations:  seed.Evaluations,
		Voters:       seed.Voters,
		Wallet:       seed.Wallet,
	}

	// An existing database must contain at least one slot; an entirely empty
	// one is not a store to bootstrap from.
	found := false

	if data, err := store.dbGet(CandidatesSlot); err == nil {
		found = true
		var candidates vote.CandidateList
		if err := candidates.Unmarshal(data); err == nil {
			loaded.Candidates = candidates
		}
	}

	if data, err := store.dbGet(TransactionsSlot); err == nil {
		found = true
		var transactions vote.TransactionList
		if err := transactions.Unmarshal(data); err == nil {
			loaded.Transactions = transactions
		}
	}

	if data, err := store.dbGet(EvaluationsSlot); err == nil {
		found = true
		var evaluations vote.EvaluationList
		if err := evaluations.Unmarshal(data); err == nil {
			loaded.Evaluations = evaluations
		}
	}

	if data, err := store.dbGet(VotersSlot); err == nil {
		found = true
		var voters vote.VoterList
		if err := voters.Unmarshal(data); err == nil {
			loaded.Voters = voters
		}
	}

	if data, err := store.dbGet(WalletSlot); err == nil {
		found = true
		wallet := &vote.Wallet{}
		if err := wallet.Unmarshal(data); err == nil {
			loaded.Wallet = wallet
		}
	}

	if !found {
		store.db.Close()
		return nil, cm.NewStoreErr("store", cm.Empty, path)
	}

	store.inmemStore = NewInmemStore(loaded)

	return store, nil
}

// LoadOrCreateBadgerStore tries to load an existing database and creates a
// fresh one when there is none.
func LoadOrCreateBadgerStore(seed *Seed, path string) (*BadgerStore, error) {
	store, err := LoadBadgerStore(seed, path)

	if err != nil {
		store, err = NewBadgerStore(seed, path)

		if err != nil {
			return nil, err
		}
	}

	return store, nil
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	return badger.Open(opts)
}

// NeedBootstrap returns true when the store was loaded from an existing
// database.
func (s *BadgerStore) NeedBootstrap() bool {
	return s.needBootstrap
}

//==============================================================================
//Keys

func slotKey(slot string) []byte {
	return []byte(SlotPrefix + slot)
}

//==============================================================================
//DB Methods

func (s *BadgerStore) dbGet(slot string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(slotKey(slot))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err == badger.ErrKeyNotFound {
		return nil, cm.NewStoreErr(slot, cm.KeyNotFound, string(slotKey(slot)))
	}
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (s *BadgerStore) dbSet(slot string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(slotKey(slot), data)
	})
}

func (s *BadgerStore) dbSetAll() error {
	if err := s.dbSetCandidates(); err != nil {
		return err
	}
	if err := s.dbSetTransactions(); err != nil {
		return err
	}
	if err := s.dbSetEvaluations(); err != nil {
		return err
	}
	if err := s.dbSetVoters(); err != nil {
		return err
	}
	return s.dbSetWallet()
}

func (s *BadgerStore) dbSetCandidates() error {
	data, err := s.inmemStore.Candidates().Marshal()
	if err != nil {
		return err
	}
	return s.dbSet(CandidatesSlot, data)
}

func (s *BadgerStore) dbSetTransactions() error {
	data, err := s.inmemStore.Transactions().Marshal()
	if err != nil {
		return err
	}
	return s.dbSet(TransactionsSlot, data)
}

func (s *BadgerStore) dbSetEvaluations() error {
	data, err := s.inmemStore.Evaluations().Marshal()
	if err != nil {
		return err
	}
	return s.dbSet(EvaluationsSlot, data)
}

func (s *BadgerStore) dbSetVoters() error {
	data, err := s.inmemStore.Voters().Marshal()
	if err != nil {
		return err
	}
	return s.dbSet(VotersSlot, data)
}

func (s *BadgerStore) dbSetWallet() error {
	data, err := s.inmemStore.Wallet().Marshal()
	if err != nil {
		return err
	}
	return s.dbSet(WalletSlot, data)
}

//==============================================================================
//Store interface

// Candidates ...
func (s *BadgerStore) Candidates() vote.CandidateList {
	return s.inmemStore.Candidates()
}

// SetCandidates ...
func (s *BadgerStore) SetCandidates(candidates vote.CandidateList) error {
	if err := s.inmemStore.SetCandidates(candidates); err != nil {
		return err
	}
	return s.dbSetCandidates()
}

// Transactions ...
func (s *BadgerStore) Transactions() vote.TransactionList {
	return s.inmemStore.Transactions()
}

// SetTransactions ...
func (s *BadgerStore) SetTransactions(transactions vote.TransactionList) error {
	if err := s.inmemStore.SetTransactions(transactions); err != nil {
		return err
	}
	return s.dbSetTransactions()
}

// AppendTransaction ...
func (s *BadgerStore) AppendTransaction(tx *vote.Transaction) error {
	if err := s.inmemStore.AppendTransaction(tx); err != nil {
		return err
	}
	return s.dbSetTransactions()
}

// Evaluations ...
func (s *BadgerStore) Evaluations() vote.EvaluationList {
	return s.inmemStore.Evaluations()
}

// SetEvaluations ...
func (s *BadgerStore) SetEvaluations(evaluations vote.EvaluationList) error {
	if err := s.inmemStore.SetEvaluations(evaluations); err != nil {
		return err
	}
	return s.dbSetEvaluations()
}

// PrependEvaluation ...
func (s *BadgerStore) PrependEvaluation(e *vote.Evaluation) error {
	if err := s.inmemStore.PrependEvaluation(e); err != nil {
		return err
	}
	return s.dbSetEvaluations()
}

// Voters ...
func (s *BadgerStore) Voters() vote.VoterList {
	return s.inmemStore.Voters()
}

// HasVoter ...
func (s *BadgerStore) HasVoter(voterID string) bool {
	return s.inmemStore.HasVoter(voterID)
}

// AddVoter ...
func (s *BadgerStore) AddVoter(voterID string) error {
	if err := s.inmemStore.AddVoter(voterID); err != nil {
		return err
	}
	return s.dbSetVoters()
}

// Wallet ...
func (s *BadgerStore) Wallet() *vote.Wallet {
	return s.inmemStore.Wallet()
}

// SetWallet ...
func (s *BadgerStore) SetWallet(w *vote.Wallet) error {
	if err := s.inmemStore.SetWallet(w); err != nil {
		return err
	}
	return s.dbSetWallet()
}

// Reset ...
func (s *BadgerStore) Reset(seed *Seed) error {
	if err := s.inmemStore.Reset(seed); err != nil {
		return err
	}
	// Evaluations are not part of the reset but rewriting every slot keeps
	// the disk image whole.
	return s.dbSetAll()
}

// Close ...
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
