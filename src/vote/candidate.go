package vote

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

// Candidate ids are signed on purpose: 0 is the blank vote and negative ids
// are spoiled/null votes. They are seeded with the real candidates and
// increment the same way.
const (
	// BlankCandidateID is the id of the blank vote.
	BlankCandidateID = 0
	// NullCandidateID is the id of the null (spoiled) vote.
	NullCandidateID = -1
)

// Candidate is one entry of the fixed candidate set. Votes only ever
// increases, by exactly one per accepted vote.
type Candidate struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Party string `json:"party"`
	Image string `json:"image"`
	Votes int    `json:"votes"`
}

// CandidateList is the candidate collection as held in a store slot.
type CandidateList []*Candidate

// SeedCandidates returns the initial candidate set. The id set is fixed for
// the lifetime of the simulation; only the vote counts change.
func SeedCandidates() CandidateList {
	return CandidateList{
		{ID: 3, Name: "Ana Souza", Party: "Frente Blockchain", Image: "https://picsum.photos/400/300?random=3"},
		{ID: 1, Name: "Maria Silva", Party: "Partido da Inovação", Image: "https://picsum.photos/400/300?random=1"},
		{ID: 2, Name: "João Santos", Party: "União Digital", Image: "https://picsum.photos/400/300?random=2"},
		{ID: BlankCandidateID, Name: "Voto em Branco", Party: "Abstenção"},
		{ID: NullCandidateID, Name: "Voto Nulo", Party: "Anulado"},
	}
}

// Get returns the candidate with the given id, or nil.
func (l CandidateList) Get(id int) *Candidate {
	for _, c := range l {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Contains reports whether id belongs to the candidate set.
func (l CandidateList) Contains(id int) bool {
	return l.Get(id) != nil
}

// TotalVotes returns the sum of all vote counts. It always equals the length
// of the ledger.
func (l CandidateList) TotalVotes() int {
	total := 0
	for _, c := range l {
		total += c.Votes
	}
	return total
}

// Clone returns a deep copy of the list. Stores hand out clones so that
// callers cannot mutate cached state in place.
func (l CandidateList) Clone() CandidateList {
	clone := make(CandidateList, len(l))
	for i, c := range l {
		cc := *c
		clone[i] = &cc
	}
	return clone
}

// Marshal - json encoding of CandidateList
func (l CandidateList) Marshal() ([]byte, error) {
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
func (l *CandidateList) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(l)
}
