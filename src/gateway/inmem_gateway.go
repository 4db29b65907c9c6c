package gateway

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/leandrolasalle/voto-apresentacao/src/vote"
)

// feedEventBuffer bounds the per-subscription event queue. Dispatch runs on
// its own goroutine so handlers can take locks that the mutating caller
// holds.
const feedEventBuffer = 64

type feedEvent struct {
	candidate   *CandidateCount
	transaction *vote.Transaction
	evaluation  *vote.Evaluation
}

// InmemGateway is an in-memory Gateway used for tests and offline runs. It
// mirrors the remote schema (counts, ledger, voters, evaluations) and feeds
// subscribers the same events a live server would emit.
//
// Fault injection: SetFailing makes every operation return
// vote.ErrRemoteUnavailable. DisableAtomicIncrement forces IncrementVote
// through the read-then-write fallback, and IncrementHook, when set, runs
// between the read and the write so tests can interleave two increments and
// observe the lost update.
type InmemGateway struct {
	mu          sync.Mutex
	counts      map[int]int
	countOrder  []int
	ledger      vote.TransactionList
	voters      vote.VoterList
	evaluations vote.EvaluationList

	failing        bool
	atomicDisabled bool
	IncrementHook  func(candidateID int, current int)

	subs   map[*inmemSubscription]struct{}
	closed bool

	logger *logrus.Entry
}

// NewInmemGateway seeds the gateway with the given candidate ids at zero
// votes and no ledger, voters or evaluations.
func NewInmemGateway(candidateIDs []int, logger *logrus.Entry) *InmemGateway {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	g := &InmemGateway{
		counts: make(map[int]int),
		subs:   make(map[*inmemSubscription]struct{}),
		logger: logger,
	}
	for _, id := range candidateIDs {
		g.counts[id] = 0
		g.countOrder = append(g.countOrder, id)
	}
	return g
}

// SetFailing toggles fault injection on every gateway operation.
func (g *InmemGateway) SetFailing(failing bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failing = failing
}

// DisableAtomicIncrement forces IncrementVote through the non-atomic
// read-then-write fallback.
func (g *InmemGateway) DisableAtomicIncrement() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.atomicDisabled = true
}

func (g *InmemGateway) FetchCandidates() ([]CandidateCount, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return nil, vote.ErrRemoteUnavailable
	}
	res := make([]CandidateCount, 0, len(g.countOrder))
	for _, id := range g.countOrder {
		res = append(res, CandidateCount{ID: id, Votes: g.counts[id]})
	}
	return res, nil
}

func (g *InmemGateway) FetchTransactions() (vote.TransactionList, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return nil, vote.ErrRemoteUnavailable
	}
	return g.ledger.Clone(), nil
}

func (g *InmemGateway) FetchVoters() (vote.VoterList, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return nil, vote.ErrRemoteUnavailable
	}
	return g.voters.Clone(), nil
}

func (g *InmemGateway) FetchEvaluations() (vote.EvaluationList, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return nil, vote.ErrRemoteUnavailable
	}
	return g.evaluations.Clone(), nil
}

func (g *InmemGateway) IncrementVote(candidateID int) error {
	g.mu.Lock()
	if g.failing {
		g.mu.Unlock()
		return vote.ErrRemoteUnavailable
	}
	if _, ok := g.counts[candidateID]; !ok {
		g.mu.Unlock()
		return vote.ErrInvalidCandidate
	}

	if !g.atomicDisabled {
		g.counts[candidateID]++
		ev := CandidateCount{ID: candidateID, Votes: g.counts[candidateID]}
		g.publish(feedEvent{candidate: &ev})
		g.mu.Unlock()
		return nil
	}

	// Fallback path: read outside any atomic primitive, run the hook, then
	// write current+1. Concurrent fallbacks can clobber each other.
	current := g.counts[candidateID]
	hook := g.IncrementHook
	g.mu.Unlock()

	if hook != nil {
		hook(candidateID, current)
	}

	g.mu.Lock()
	g.counts[candidateID] = current + 1
	ev := CandidateCount{ID: candidateID, Votes: current + 1}
	g.publish(feedEvent{candidate: &ev})
	g.mu.Unlock()
	return nil
}

func (g *InmemGateway) InsertTransaction(tx *vote.Transaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return vote.ErrRemoteUnavailable
	}
	cp := tx.Clone()
	g.ledger = append(g.ledger, cp)
	g.publish(feedEvent{transaction: cp.Clone()})
	return nil
}

func (g *InmemGateway) InsertVoter(voterID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return vote.ErrRemoteUnavailable
	}
	if g.voters.Contains(voterID) {
		return vote.ErrDuplicateVoter
	}
	g.voters = append(g.voters, voterID)
	return nil
}

func (g *InmemGateway) InsertEvaluation(e *vote.Evaluation) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return vote.ErrRemoteUnavailable
	}
	cp := e.Clone()
	g.evaluations = append(vote.EvaluationList{cp}, g.evaluations...)
	g.publish(feedEvent{evaluation: cp.Clone()})
	return nil
}

func (g *InmemGateway) ResetAll(candidateIDs []int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return vote.ErrRemoteUnavailable
	}
	g.ledger = nil
	g.voters = nil
	for _, id := range candidateIDs {
		if _, ok := g.counts[id]; ok {
			g.counts[id] = 0
			ev := CandidateCount{ID: id, Votes: 0}
			g.publish(feedEvent{candidate: &ev})
		}
	}
	return nil
}

func (g *InmemGateway) Subscribe(handlers FeedHandlers) (Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return nil, vote.ErrRemoteUnavailable
	}
	sub := &inmemSubscription{
		gateway:  g,
		handlers: handlers,
		events:   make(chan feedEvent, feedEventBuffer),
		quit:     make(chan struct{}),
	}
	g.subs[sub] = struct{}{}
	go sub.dispatch()
	return sub, nil
}

func (g *InmemGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	for sub := range g.subs {
		sub.stop()
	}
	g.subs = make(map[*inmemSubscription]struct{})
	return nil
}

// publish pushes an event to every subscriber. Caller holds g.mu. A full
// queue drops the event; feed delivery is best-effort and the next Sync
// reconciles.
func (g *InmemGateway) publish(ev feedEvent) {
	for sub := range g.subs {
		select {
		case sub.events <- ev:
		default:
			g.logger.Warn("Feed queue full, dropping event")
		}
	}
}

type inmemSubscription struct {
	gateway  *InmemGateway
	handlers FeedHandlers
	events   chan feedEvent
	quit     chan struct{}
	once     sync.Once
}

func (s *inmemSubscription) dispatch() {
	for {
		select {
		case ev := <-s.events:
			switch {
			case ev.candidate != nil && s.handlers.CandidateUpdate != nil:
				s.handlers.CandidateUpdate(*ev.candidate)
			case ev.transaction != nil && s.handlers.TransactionInsert != nil:
				s.handlers.TransactionInsert(ev.transaction)
			case ev.evaluation != nil && s.handlers.EvaluationInsert != nil:
				s.handlers.EvaluationInsert(ev.evaluation)
			}
		case <-s.quit:
			return
		}
	}
}

func (s *inmemSubscription) stop() {
	s.once.Do(func() {
		close(s.quit)
	})
}

func (s *inmemSubscription) Unsubscribe() {
	s.gateway.mu.Lock()
	delete(s.gateway.subs, s)
	s.gateway.mu.Unlock()
	s.stop()
}
