package node

import (
	"github.com/leandrolasalle/voto-apresentacao/src/vote"
)

// VoteResponse is the outcome of a mined submission.
type VoteResponse struct {
	Tx  *vote.Transaction
	Err error
}

// VotePromise is handed to the caller of SubmitVote and resolved when the
// mining window closes or the session is reset.
type VotePromise struct {
	CandidateID int
	RespCh      chan VoteResponse
}

func NewVotePromise(candidateID int) *VotePromise {
	return &VotePromise{
		CandidateID: candidateID,
		//buffered because we don't want to block if the caller went away
		RespCh: make(chan VoteResponse, 2),
	}
}

func (p *VotePromise) Respond(tx *vote.Transaction, err error) {
	p.RespCh <- VoteResponse{Tx: tx, Err: err}
}
