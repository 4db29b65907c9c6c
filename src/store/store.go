package store

import (
	"github.com/leandrolasalle/voto-apresentacao/src/vote"
)

// SlotPrefix namespaces every persisted key.
const SlotPrefix = "tcc_v3_"

// Slot names.
const (
	CandidatesSlot   = "candidates"
	TransactionsSlot = "transactions"
	EvaluationsSlot  = "evaluations"
	VotersSlot       = "used_voter_ids"
	WalletSlot       = "wallet"
)

// Seed bundles the initial value of every slot. It is what a Reset restores.
type Seed struct {
	Candidates   vote.CandidateList
	Transactions vote.TransactionList
	Evaluations  vote.EvaluationList
	Voters       vote.VoterList
	Wallet       *vote.Wallet
}

// DefaultSeed returns the initial state of the simulation.
func DefaultSeed() *Seed {
	return &Seed{
		Candidates:   vote.SeedCandidates(),
		Transactions: vote.TransactionList{},
		Evaluations:  vote.SeedEvaluations(),
		Voters:       vote.VoterList{},
		Wallet:       vote.SeedWallet(),
	}
}

// Store is the single read model consumed by presentation. Reads hand out
// deep copies; writes persist synchronously with the in-memory update.
type Store interface {
	Candidates() vote.CandidateList
	SetCandidates(vote.CandidateList) error

	Transactions() vote.TransactionList
	SetTransactions(vote.TransactionList) error
	AppendTransaction(*vote.Transaction) error

	Evaluations() vote.EvaluationList
	SetEvaluations(vote.EvaluationList) error
	PrependEvaluation(*vote.Evaluation) error

	Voters() vote.VoterList
	HasVoter(voterID string) bool
	AddVoter(voterID string) error

	Wallet() *vote.Wallet
	SetWallet(*vote.Wallet) error

	// Reset restores candidates, transactions, voters and wallet to the
	// seed. Evaluations are deliberately left untouched.
	Reset(*Seed) error

	Close() error
}
