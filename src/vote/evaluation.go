package vote

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

// Evaluation is an append-only audience feedback entry. It is not a vote and
// is excluded from every ledger invariant, including reset-all.
type Evaluation struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Grade     int    `json:"grade"`
	Comment   string `json:"comment"`
	Timestamp string `json:"timestamp"`
}

// EvaluationList holds evaluations newest-first.
type EvaluationList []*Evaluation

// SeedEvaluations returns the initial feedback entries.
func SeedEvaluations() EvaluationList {
	return EvaluationList{
		{ID: 1, Name: "Prof. Alessandro", Grade: 10, Comment: "Excelente demonstração prática dos conceitos de Blockchain.", Timestamp: "2024-05-20 14:30"},
		{ID: 2, Name: "Visitante", Grade: 9, Comment: "Interface muito intuitiva, parabéns.", Timestamp: "2024-05-21 09:15"},
	}
}

// Clone returns a copy of the evaluation.
func (e *Evaluation) Clone() *Evaluation {
	ec := *e
	return &ec
}

// ContainsID reports whether an evaluation with the given id is already
// present.
func (l EvaluationList) ContainsID(id int64) bool {
	for _, e := range l {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the list.
func (l EvaluationList) Clone() EvaluationList {
	clone := make(EvaluationList, len(l))
	for i, e := range l {
		ec := *e
		clone[i] = &ec
	}
	return clone
}

// Marshal - json encoding of EvaluationList
func (l EvaluationList) Marshal() ([]byte, error) {
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
func (l *EvaluationList) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(l)
}
