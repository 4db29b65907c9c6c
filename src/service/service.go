package service

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/leandrolasalle/voto-apresentacao/src/node"
	"github.com/leandrolasalle/voto-apresentacao/src/vote"
)

// Service exposes the voting node over a local HTTP API.
type Service struct {
	bindAddress string
	node        *node.Node
	mux         *http.ServeMux
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, n *node.Node, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		node:        n,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.HandleFunc("/candidates", s.makeHandler(s.GetCandidates))
	s.mux.HandleFunc("/transactions", s.makeHandler(s.GetTransactions))
	s.mux.HandleFunc("/voters", s.makeHandler(s.GetVoters))
	s.mux.HandleFunc("/wallet", s.makeHandler(s.GetWallet))
	s.mux.HandleFunc("/evaluations", s.makeHandler(s.Evaluations))
	s.mux.HandleFunc("/identify", s.makeHandler(s.Identify))
	s.mux.HandleFunc("/connect", s.makeHandler(s.Connect))
	s.mux.HandleFunc("/vote", s.makeHandler(s.Vote))
	s.mux.HandleFunc("/reset", s.makeHandler(s.Reset))
	s.mux.HandleFunc("/reset-all", s.makeHandler(s.ResetAll))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// ServeHTTP makes the service usable as an http.Handler, which is what the
// tests mount.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	err := http.ListenAndServe(s.bindAddress, s.mux)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	returnJSON(w, s.node.GetStats())
}

// GetCandidates ...
func (s *Service) GetCandidates(w http.ResponseWriter, r *http.Request) {
	returnJSON(w, s.node.Candidates())
}

// GetTransactions ...
func (s *Service) GetTransactions(w http.ResponseWriter, r *http.Request) {
	returnJSON(w, s.node.Transactions())
}

// GetVoters ...
func (s *Service) GetVoters(w http.ResponseWriter, r *http.Request) {
	returnJSON(w, s.node.Voters())
}

// GetWallet ...
func (s *Service) GetWallet(w http.ResponseWriter, r *http.Request) {
	returnJSON(w, s.node.Wallet())
}

// Evaluations serves the feedback entries and accepts new ones.
func (s *Service) Evaluations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		returnJSON(w, s.node.Evaluations())
	case http.MethodPost:
		var e vote.Evaluation
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.node.SubmitEvaluation(&e); err != nil {
			s.writeError(w, err)
			return
		}
		returnJSON(w, &e)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Identify runs the duplicate check and admits a voter id.
func (s *Service) Identify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		VoterID string `json:"voterId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.node.Identify(req.VoterID); err != nil {
		s.writeError(w, err)
		return
	}

	returnJSON(w, map[string]string{"state": s.node.GetState().String()})
}

// Connect binds a fresh session address.
func (s *Service) Connect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	addr, err := s.node.Connect()
	if err != nil {
		s.writeError(w, err)
		return
	}

	returnJSON(w, map[string]string{"address": addr})
}

// Vote submits a vote and blocks until the mining window closes, so the
// caller gets the mined transaction back.
func (s *Service) Vote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		CandidateID int `json:"candidateId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	promise, err := s.node.SubmitVote(req.CandidateID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := <-promise.RespCh
	if resp.Err != nil {
		s.writeError(w, resp.Err)
		return
	}

	returnJSON(w, resp.Tx)
}

// Reset ...
func (s *Service) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.node.ResetSession(); err != nil {
		s.writeError(w, err)
		return
	}

	returnJSON(w, map[string]string{"state": s.node.GetState().String()})
}

// ResetAll wipes votes, ledger and voters everywhere. It is destructive and
// requires explicit confirmation in the request body.
func (s *Service) ResetAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.Confirm {
		http.Error(w, "reset-all requires confirm:true", http.StatusBadRequest)
		return
	}

	if err := s.node.ResetAll(); err != nil {
		s.writeError(w, err)
		return
	}

	returnJSON(w, map[string]string{"state": s.node.GetState().String()})
}

// writeError maps the validation taxonomy to 4xx; anything else is a 500.
func (s *Service) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError

	switch err {
	case vote.ErrInvalidCandidate, vote.ErrInvalidGrade, vote.ErrNotIdentified:
		code = http.StatusBadRequest
	case vote.ErrDuplicateVoter, vote.ErrAlreadyVoted, vote.ErrAlreadySubmitting,
		vote.ErrNotConnected, vote.ErrSubmissionCancelled:
		code = http.StatusConflict
	}

	if code == http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	}

	http.Error(w, err.Error(), code)
}

func returnJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
