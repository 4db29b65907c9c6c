package vote

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/ugorji/go/codec"

	"github.com/leandrolasalle/voto-apresentacao/src/common"
	"github.com/leandrolasalle/voto-apresentacao/src/crypto"
)

const (
	// BaseBlockNumber is the block number of the first ledger entry. Purely
	// cosmetic, inherited from the original simulation.
	BaseBlockNumber = 12406

	// BaseGas is the minimum simulated gas cost of a vote transaction.
	BaseGas = 21000

	// ContractAddress is the fixed destination of every vote transaction.
	ContractAddress = "0xContractVoting"
)

// Transaction is an immutable ledger entry recording one accepted vote.
type Transaction struct {
	Hash        string `json:"hash"`
	BlockNumber int    `json:"blockNumber"`
	From        string `json:"from"`
	To          string `json:"to"`
	Timestamp   string `json:"timestamp"`
	GasUsed     int    `json:"gasUsed"`
	CandidateID int    `json:"candidateId"`
}

// TransactionList is the ledger as held in a store slot.
type TransactionList []*Transaction

// NewTransaction builds the ledger entry for a vote before it is mined. The
// hash is derived from the entry's own fields plus a random nonce, which
// keeps it unique without pretending to be a proof of anything. blockNumber
// is expected to be BaseBlockNumber plus the current ledger length, which
// makes block numbers non-decreasing in insertion order.
func NewTransaction(from string, candidateID int, blockNumber int) (*Transaction, error) {
	gas, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	tx := &Transaction{
		BlockNumber: blockNumber,
		From:        from,
		To:          ContractAddress,
		Timestamp:   time.Now().Format("15:04:05"),
		GasUsed:     BaseGas + int(gas.Int64()),
		CandidateID: candidateID,
	}

	body := fmt.Sprintf("%s|%d|%d|%s|%x", from, candidateID, blockNumber, tx.Timestamp, nonce)
	sum := crypto.SHA256([]byte(body))
	tx.Hash = common.EncodeToString(sum[:20])

	return tx, nil
}

// Clone returns a copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	tc := *t
	return &tc
}

// ContainsHash reports whether a transaction with the given hash is already
// in the ledger. Used to keep change-feed merges idempotent.
func (l TransactionList) ContainsHash(hash string) bool {
	for _, tx := range l {
		if tx.Hash == hash {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the ledger.
func (l TransactionList) Clone() TransactionList {
	clone := make(TransactionList, len(l))
	for i, tx := range l {
		tc := *tx
		clone[i] = &tc
	}
	return clone
}

// Marshal - json encoding of TransactionList
func (l TransactionList) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(l); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (l *TransactionList) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(l)
}
