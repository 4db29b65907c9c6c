package vote

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

// Wallet is the per-session state: whether a pseudonymous address is bound,
// whether this session has already cast its vote, and whether a submission is
// currently being mined.
//
// HasVoted may only become true as the terminal effect of exactly one
// successful vote submission for the current address. A freshly bound wallet
// never inherits a previous session's HasVoted flag; letting that leak is the
// stale-session bug the state machine actively guards against.
type Wallet struct {
	Connected bool   `json:"isConnected"`
	Address   string `json:"address"`
	HasVoted  bool   `json:"hasVoted"`
	IsMining  bool   `json:"isMining"`
}

// SeedWallet returns the initial, disconnected wallet.
func SeedWallet() *Wallet {
	return &Wallet{}
}

// Clone returns a copy of the wallet.
func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	wc := *w
	return &wc
}

// Marshal - json encoding of Wallet
func (w *Wallet) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(w); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (w *Wallet) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(w)
}

// VoterList is the write-once membership set of voter identifiers. Presence
// means that identity has cast a vote and may not cast another.
type VoterList []string

// Contains reports whether voterID is already a member.
func (l VoterList) Contains(voterID string) bool {
	for _, v := range l {
		if v == voterID {
			return true
		}
	}
	return false
}

// Clone returns a copy of the list.
func (l VoterList) Clone() VoterList {
	clone := make(VoterList, len(l))
	copy(clone, l)
	return clone
}

// Marshal - json encoding of VoterList
func (l VoterList) Marshal() ([]byte, error) {
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
func (l *VoterList) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(l)
}
