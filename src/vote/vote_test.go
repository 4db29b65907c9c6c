package vote

import (
	"reflect"
	"strings"
	"testing"
)

func TestSeedCandidates(t *testing.T) {
	seed := SeedCandidates()

	if len(seed) != 5 {
		t.Fatalf("expected 5 seed candidates, got %d", len(seed))
	}

	for _, c := range seed {
		if c.Votes != 0 {
			t.Fatalf("seed candidate %d should have 0 votes, got %d", c.ID, c.Votes)
		}
	}

	if !seed.Contains(BlankCandidateID) {
		t.Fatal("seed should contain the blank vote")
	}

	if !seed.Contains(NullCandidateID) {
		t.Fatal("seed should contain the null vote")
	}

	if seed.Contains(99) {
		t.Fatal("seed should not contain id 99")
	}
}

func TestCandidateListClone(t *testing.T) {
	seed := SeedCandidates()
	clone := seed.Clone()

	clone.Get(1).Votes = 10

	if seed.Get(1).Votes != 0 {
		t.Fatal("mutating a clone should not touch the original")
	}
}

func TestCandidateListCodec(t *testing.T) {
	seed := SeedCandidates()
	seed.Get(2).Votes = 3

	data, err := seed.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	var decoded CandidateList
	if err := decoded.Unmarshal(data); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(seed, decoded) {
		t.Fatalf("candidate list changed across codec round-trip.\n got: %#v\nwant: %#v", decoded, seed)
	}
}

func TestNewTransaction(t *testing.T) {
	tx, err := NewTransaction("0xabc", 1, BaseBlockNumber)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(tx.Hash, "0x") {
		t.Fatalf("hash should start with 0x, got %s", tx.Hash)
	}

	if tx.GasUsed < BaseGas || tx.GasUsed >= BaseGas+1000 {
		t.Fatalf("gas out of range: %d", tx.GasUsed)
	}

	if tx.To != ContractAddress {
		t.Fatalf("destination should be %s, got %s", ContractAddress, tx.To)
	}

	other, err := NewTransaction("0xabc", 1, BaseBlockNumber)
	if err != nil {
		t.Fatal(err)
	}

	if tx.Hash == other.Hash {
		t.Fatal("two transactions with identical fields should still have distinct hashes")
	}
}

func TestTransactionListContainsHash(t *testing.T) {
	tx, err := NewTransaction("0xabc", 1, BaseBlockNumber)
	if err != nil {
		t.Fatal(err)
	}

	ledger := TransactionList{tx}

	if !ledger.ContainsHash(tx.Hash) {
		t.Fatal("ledger should contain its own entry")
	}

	if ledger.ContainsHash("0xdeadbeef") {
		t.Fatal("ledger should not contain an unknown hash")
	}
}

func TestWalletCodec(t *testing.T) {
	w := &Wallet{Connected: true, Address: "0xabc", HasVoted: true}

	data, err := w.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	decoded := &Wallet{}
	if err := decoded.Unmarshal(data); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(w, decoded) {
		t.Fatalf("wallet changed across codec round-trip. got %#v want %#v", decoded, w)
	}
}

func TestVoterList(t *testing.T) {
	voters := VoterList{"123", "456"}

	if !voters.Contains("123") {
		t.Fatal("expected membership for 123")
	}

	if voters.Contains("789") {
		t.Fatal("did not expect membership for 789")
	}
}
