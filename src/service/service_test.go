package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leandrolasalle/voto-apresentacao/src/common"
	"github.com/leandrolasalle/voto-apresentacao/src/node"
	"github.com/leandrolasalle/voto-apresentacao/src/store"
	"github.com/leandrolasalle/voto-apresentacao/src/vote"
)

func newTestService(t *testing.T) (*Service, *node.Node) {
	logger := common.NewTestEntry(t, common.TestLogLevel)
	n := node.NewNode(store.NewInmemStore(store.DefaultSeed()), nil, 10*time.Millisecond, logger)
	if err := n.Init(); err != nil {
		t.Fatal(err)
	}
	n.RunAsync()
	return NewService("127.0.0.1:0", n, logger), n
}

func do(t *testing.T, s *Service, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestServiceVoteFlow(t *testing.T) {
	s, n := newTestService(t)
	defer n.Shutdown()

	w := do(t, s, http.MethodPost, "/identify", map[string]string{"voterId": "12345678900"})
	if w.Code != http.StatusOK {
		t.Fatalf("identify: %d %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodPost, "/connect", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("connect: %d %s", w.Code, w.Body.String())
	}
	var conn map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &conn); err != nil {
		t.Fatal(err)
	}
	if len(conn["address"]) != 42 {
		t.Fatalf("bad address %q", conn["address"])
	}

	w = do(t, s, http.MethodPost, "/vote", map[string]int{"candidateId": 3})
	if w.Code != http.StatusOK {
		t.Fatalf("vote: %d %s", w.Code, w.Body.String())
	}
	var tx vote.Transaction
	if err := json.Unmarshal(w.Body.Bytes(), &tx); err != nil {
		t.Fatal(err)
	}
	if tx.CandidateID != 3 || tx.From != conn["address"] {
		t.Fatalf("bad mined transaction: %+v", tx)
	}

	w = do(t, s, http.MethodGet, "/candidates", nil)
	var candidates vote.CandidateList
	if err := json.Unmarshal(w.Body.Bytes(), &candidates); err != nil {
		t.Fatal(err)
	}
	if candidates.Get(3).Votes != 1 {
		t.Fatalf("expected 1 vote for candidate 3: %+v", candidates.Get(3))
	}

	w = do(t, s, http.MethodGet, "/stats", nil)
	var stats map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats["state"] != "Completed" || stats["num_transactions"] != "1" {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestServiceValidationCodes(t *testing.T) {
	s, n := newTestService(t)
	defer n.Shutdown()

	// vote before identifying
	w := do(t, s, http.MethodPost, "/vote", map[string]int{"candidateId": 3})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	if err := n.Identify("11111111111"); err != nil {
		t.Fatal(err)
	}

	// vote before connecting
	w = do(t, s, http.MethodPost, "/vote", map[string]int{"candidateId": 3})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	if _, err := n.Connect(); err != nil {
		t.Fatal(err)
	}

	// unknown candidate
	w = do(t, s, http.MethodPost, "/vote", map[string]int{"candidateId": 42})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	// bad grade
	w = do(t, s, http.MethodPost, "/evaluations", map[string]interface{}{"name": "X", "grade": 11})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	// GET on a POST endpoint
	w = do(t, s, http.MethodGet, "/identify", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestServiceDuplicateVoter(t *testing.T) {
	s, n := newTestService(t)
	defer n.Shutdown()

	do(t, s, http.MethodPost, "/identify", map[string]string{"voterId": "22222222222"})
	do(t, s, http.MethodPost, "/connect", nil)
	w := do(t, s, http.MethodPost, "/vote", map[string]int{"candidateId": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("vote: %d %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodPost, "/identify", map[string]string{"voterId": "22222222222"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate voter, got %d", w.Code)
	}
}

func TestServiceResetAllRequiresConfirmation(t *testing.T) {
	s, n := newTestService(t)
	defer n.Shutdown()

	do(t, s, http.MethodPost, "/identify", map[string]string{"voterId": "33333333333"})
	do(t, s, http.MethodPost, "/connect", nil)
	do(t, s, http.MethodPost, "/vote", map[string]int{"candidateId": 2})

	w := do(t, s, http.MethodPost, "/reset-all", map[string]bool{"confirm": false})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without confirmation, got %d", w.Code)
	}
	if len(n.Transactions()) != 1 {
		t.Fatal("unconfirmed reset-all wiped the ledger")
	}

	w = do(t, s, http.MethodPost, "/reset-all", map[string]bool{"confirm": true})
	if w.Code != http.StatusOK {
		t.Fatalf("reset-all: %d %s", w.Code, w.Body.String())
	}
	if len(n.Transactions()) != 0 {
		t.Fatal("confirmed reset-all left the ledger")
	}
}

func TestServiceEvaluations(t *testing.T) {
	s, n := newTestService(t)
	defer n.Shutdown()

	w := do(t, s, http.MethodPost, "/evaluations",
		map[string]interface{}{"name": "Prof", "grade": 10, "comment": "ok"})
	if w.Code != http.StatusOK {
		t.Fatalf("post evaluation: %d %s", w.Code, w.Body.String())
	}
	var e vote.Evaluation
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if e.ID == 0 {
		t.Fatal("evaluation id not assigned")
	}

	w = do(t, s, http.MethodGet, "/evaluations", nil)
	var evals vote.EvaluationList
	if err := json.Unmarshal(w.Body.Bytes(), &evals); err != nil {
		t.Fatal(err)
	}
	if len(evals) == 0 || evals[0].ID != e.ID {
		t.Fatalf("expected the new entry first, got %+v", evals)
	}
}

func TestServiceCORSHeader(t *testing.T) {
	s, n := newTestService(t)
	defer n.Shutdown()

	w := do(t, s, http.MethodGet, "/stats", nil)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected CORS header, got %q", got)
	}
}

func TestServiceResetCancelsVote(t *testing.T) {
	logger := common.NewTestEntry(t, common.TestLogLevel)
	n := node.NewNode(store.NewInmemStore(store.DefaultSeed()), nil, time.Hour, logger)
	if err := n.Init(); err != nil {
		t.Fatal(err)
	}
	n.RunAsync()
	defer n.Shutdown()

	s := NewService("127.0.0.1:0", n, logger)

	do(t, s, http.MethodPost, "/identify", map[string]string{"voterId": "44444444444"})
	do(t, s, http.MethodPost, "/connect", nil)

	voteDone := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		voteDone <- do(t, s, http.MethodPost, "/vote", map[string]int{"candidateId": 3})
	}()

	// wait until the submission is armed, then reset
	deadline := time.Now().Add(time.Second)
	for n.GetState() != node.Submitting {
		if time.Now().After(deadline) {
			t.Fatal("submission never armed")
		}
		time.Sleep(time.Millisecond)
	}

	w := do(t, s, http.MethodPost, "/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset: %d %s", w.Code, w.Body.String())
	}

	select {
	case w := <-voteDone:
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409 for cancelled vote, got %d %s", w.Code, w.Body.String())
		}
	case <-time.After(time.Second):
		t.Fatal("vote request did not return after reset")
	}

	if len(n.Transactions()) != 0 {
		t.Fatal("cancelled vote reached the ledger")
	}
}
