package store

import (
	"io/ioutil"
	"log"
	"os"
	"reflect"
	"testing"

	cm "github.com/leandrolasalle/voto-apresentacao/src/common"
	"github.com/leandrolasalle/voto-apresentacao/src/vote"
)

func initBadgerStore(t *testing.T) *BadgerStore {
	os.RemoveAll("test_data")
	os.Mkdir("test_data", os.ModeDir|0777)
	dir, err := ioutil.TempDir("test_data", "badger")
	if err != nil {
		log.Fatal(err)
	}

	store, err := NewBadgerStore(DefaultSeed(), dir)
	if err != nil {
		t.Fatal(err)
	}

	return store
}

func removeBadgerStore(store *BadgerStore, t *testing.T) {
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(store.path); err != nil {
		t.Fatal(err)
	}
}

func TestInmemStoreSeed(t *testing.T) {
	store := NewInmemStore(DefaultSeed())

	candidates := store.Candidates()
	if len(candidates) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(candidates))
	}

	if len(store.Transactions()) != 0 {
		t.Fatal("ledger should start empty")
	}

	if len(store.Evaluations()) != 2 {
		t.Fatal("expected 2 seed evaluations")
	}

	if w := store.Wallet(); w.Connected || w.HasVoted || w.IsMining {
		t.Fatalf("seed wallet should be zero-valued, got %#v", w)
	}
}

func TestInmemStoreReadsAreCopies(t *testing.T) {
	store := NewInmemStore(DefaultSeed())

	candidates := store.Candidates()
	candidates.Get(1).Votes = 42

	if store.Candidates().Get(1).Votes != 0 {
		t.Fatal("mutating a read result should not change the store")
	}
}

func TestInmemStoreAppendTransaction(t *testing.T) {
	store := NewInmemStore(DefaultSeed())

	tx, err := vote.NewTransaction("0xabc", 1, vote.BaseBlockNumber)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.AppendTransaction(tx); err != nil {
		t.Fatal(err)
	}

	err = store.AppendTransaction(tx)
	if !cm.IsStore(err, cm.KeyAlreadyExists) {
		t.Fatalf("appending a duplicate hash should return KeyAlreadyExists, got %v", err)
	}

	if len(store.Transactions()) != 1 {
		t.Fatal("duplicate append should not grow the ledger")
	}
}

func TestInmemStoreVoters(t *testing.T) {
	store := NewInmemStore(DefaultSeed())

	if err := store.AddVoter("123"); err != nil {
		t.Fatal(err)
	}

	if !store.HasVoter("123") {
		t.Fatal("expected voter 123 to be recorded")
	}

	err := store.AddVoter("123")
	if !cm.IsStore(err, cm.KeyAlreadyExists) {
		t.Fatalf("duplicate voter should return KeyAlreadyExists, got %v", err)
	}

	if len(store.Voters()) != 1 {
		t.Fatal("voter set should be write-once")
	}
}

func TestInmemStoreReset(t *testing.T) {
	store := NewInmemStore(DefaultSeed())

	candidates := store.Candidates()
	candidates.Get(1).Votes = 1
	store.SetCandidates(candidates)

	tx, _ := vote.NewTransaction("0xabc", 1, vote.BaseBlockNumber)
	store.AppendTransaction(tx)
	store.AddVoter("123")
	store.SetWallet(&vote.Wallet{Connected: true, Address: "0xabc", HasVoted: true})
	store.PrependEvaluation(&vote.Evaluation{ID: 99, Name: "Aluno", Grade: 8})

	if err := store.Reset(DefaultSeed()); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(store.Candidates(), vote.SeedCandidates()) {
		t.Fatal("reset should restore the seed candidates")
	}

	if len(store.Transactions()) != 0 {
		t.Fatal("reset should clear the ledger")
	}

	if len(store.Voters()) != 0 {
		t.Fatal("reset should clear the voter set")
	}

	if store.Wallet().Connected {
		t.Fatal("reset should clear the wallet")
	}

	if len(store.Evaluations()) != 3 {
		t.Fatal("reset should leave evaluations untouched")
	}
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store := initBadgerStore(t)
	dir := store.path

	candidates := store.Candidates()
	candidates.Get(2).Votes = 2
	if err := store.SetCandidates(candidates); err != nil {
		t.Fatal(err)
	}

	tx, err := vote.NewTransaction("0xabc", 2, vote.BaseBlockNumber)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.AppendTransaction(tx); err != nil {
		t.Fatal(err)
	}

	if err := store.AddVoter("123"); err != nil {
		t.Fatal(err)
	}

	wallet := &vote.Wallet{Connected: true, Address: "0xabc", HasVoted: true}
	if err := store.SetWallet(wallet); err != nil {
		t.Fatal(err)
	}

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := LoadBadgerStore(DefaultSeed(), dir)
	if err != nil {
		t.Fatal(err)
	}
	defer removeBadgerStore(reloaded, t)

	if !reloaded.NeedBootstrap() {
		t.Fatal("a loaded store should report NeedBootstrap")
	}

	if got := reloaded.Candidates().Get(2).Votes; got != 2 {
		t.Fatalf("expected candidate 2 to have 2 votes after reload, got %d", got)
	}

	transactions := reloaded.Transactions()
	if len(transactions) != 1 || transactions[0].Hash != tx.Hash {
		t.Fatalf("ledger did not survive reload: %#v", transactions)
	}

	if !reloaded.HasVoter("123") {
		t.Fatal("voter set did not survive reload")
	}

	if !reflect.DeepEqual(reloaded.Wallet(), wallet) {
		t.Fatalf("wallet did not survive reload. got %#v", reloaded.Wallet())
	}
}

func TestBadgerStoreCorruptSlot(t *testing.T) {
	store := initBadgerStore(t)
	dir := store.path

	// scribble over the candidates slot
	if err := store.dbSet(CandidatesSlot, []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := LoadBadgerStore(DefaultSeed(), dir)
	if err != nil {
		t.Fatal(err)
	}
	defer removeBadgerStore(reloaded, t)

	if !reflect.DeepEqual(reloaded.Candidates(), vote.SeedCandidates()) {
		t.Fatal("a corrupt slot should degrade to the seed value")
	}
}

func TestLoadOrCreateBadgerStore(t *testing.T) {
	os.RemoveAll("test_data")
	os.Mkdir("test_data", os.ModeDir|0777)
	dir, err := ioutil.TempDir("test_data", "badger")
	if err != nil {
		t.Fatal(err)
	}

	store, err := LoadOrCreateBadgerStore(DefaultSeed(), dir)
	if err != nil {
		t.Fatal(err)
	}

	if store.NeedBootstrap() {
		t.Fatal("a fresh database should not report NeedBootstrap")
	}

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = LoadOrCreateBadgerStore(DefaultSeed(), dir)
	if err != nil {
		t.Fatal(err)
	}
	defer removeBadgerStore(store, t)

	if !store.NeedBootstrap() {
		t.Fatal("the second open should load the existing database")
	}
}
