package node

import (
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	cm "github.com/leandrolasalle/voto-apresentacao/src/common"
	"github.com/leandrolasalle/voto-apresentacao/src/crypto/keys"
	"github.com/leandrolasalle/voto-apresentacao/src/gateway"
	"github.com/leandrolasalle/voto-apresentacao/src/store"
	"github.com/leandrolasalle/voto-apresentacao/src/vote"
)

// pendingVote holds an armed submission until the mining window closes. gen
// matches the submission to its own timer tick.
type pendingVote struct {
	tx      *vote.Transaction
	voterID string
	gen     uint64
	promise *VotePromise
}

// Node runs the session state machine and the vote submission pipeline on
// top of the local store, with best-effort write-through to the gateway. A
// nil gateway means offline mode; every operation still works against the
// local store alone.
type Node struct {
	state

	// coreLock guards the store mutations, voterID and pending. Feed
	// handlers and the mining loop take it too, which is why the gateways
	// dispatch feed events from their own goroutines.
	coreLock sync.Mutex

	vstore  store.Store
	gateway gateway.Gateway

	miningDelay time.Duration
	miningTimer *MiningTimer

	voterID   string
	pending   *pendingVote
	windowGen uint64

	sub gateway.Subscription

	shutdownCh chan struct{}

	logger *logrus.Entry
}

// NewNode is a factory method that returns a Node instance. A nil gw runs
// the node offline.
func NewNode(vstore store.Store, gw gateway.Gateway, miningDelay time.Duration, logger *logrus.Entry) *Node {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	return &Node{
		vstore:      vstore,
		gateway:     gw,
		miningDelay: miningDelay,
		miningTimer: NewDelayMiningTimer(),
		shutdownCh:  make(chan struct{}),
		logger:      logger.WithField("prefix", "node"),
	}
}

// Init performs the initial reconciliation against the remote store and
// subscribes to its change feed. Offline, or when the remote is unreachable,
// it leaves the local state as-is.
func (n *Node) Init() error {
	if n.online() {
		if err := n.Sync(); err != nil {
			n.logger.WithError(err).Warn("Initial sync failed, continuing with local state")
		}

		sub, err := n.gateway.Subscribe(gateway.FeedHandlers{
			CandidateUpdate:   n.mergeCandidateUpdate,
			TransactionInsert: n.mergeTransactionInsert,
			EvaluationInsert:  n.mergeEvaluationInsert,
		})
		if err != nil {
			n.logger.WithError(err).Warn("Feed subscription failed, continuing without live updates")
		} else {
			n.sub = sub
		}
	}

	return nil
}

// Run processes mining ticks until Shutdown. It is the only goroutine that
// completes submissions.
func (n *Node) Run() {
	n.goFunc(n.miningTimer.Run)

	for {
		select {
		case gen := <-n.miningTimer.tickCh:
			n.finishMining(gen)
		case <-n.shutdownCh:
			return
		}
	}
}

// RunAsync ...
func (n *Node) RunAsync() {
	n.logger.Debug("runasync")
	go n.Run()
}

func (n *Node) online() bool {
	return n.gateway != nil
}

// Identify admits a voter identifier into the session after the duplicate
// check. When online the check runs against the remote registry; if the
// remote cannot answer, or offline, it runs against the local store. A
// wallet left over from a completed session is cleared so the new identity
// never inherits HasVoted. While a submission is mining the session cannot
// change hands; the caller must wait for the window or reset.
func (n *Node) Identify(voterID string) error {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	if voterID == "" {
		return vote.ErrNotIdentified
	}

	if n.pending != nil || n.vstore.Wallet().IsMining {
		return vote.ErrAlreadySubmitting
	}

	dup := n.vstore.HasVoter(voterID)
	if !dup && n.online() {
		voters, err := n.gateway.FetchVoters()
		if err != nil {
			n.logger.WithError(err).Warn("Remote voter check failed, using local registry")
		} else {
			dup = voters.Contains(voterID)
		}
	}
	if dup {
		return vote.ErrDuplicateVoter
	}

	if w := n.vstore.Wallet(); w.HasVoted {
		n.logger.WithField("address", w.Address).Debug("Clearing stale wallet")
		if err := n.vstore.SetWallet(vote.SeedWallet()); err != nil {
			return err
		}
	}

	n.voterID = voterID
	n.setState(Identified)

	n.logger.WithField("voter", voterID).Debug("Identified")

	return nil
}

// Connect binds a fresh pseudonymous address to the session and returns it.
func (n *Node) Connect() (string, error) {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	if n.voterID == "" {
		return "", vote.ErrNotIdentified
	}

	if n.pending != nil || n.vstore.Wallet().IsMining {
		return "", vote.ErrAlreadySubmitting
	}

	addr, err := keys.GenerateAddress()
	if err != nil {
		return "", err
	}

	w := &vote.Wallet{
		Connected: true,
		Address:   addr,
	}
	if err := n.vstore.SetWallet(w); err != nil {
		return "", err
	}

	n.setState(SessionBound)

	n.logger.WithField("address", addr).Debug("Session bound")

	return addr, nil
}

// SubmitVote validates the submission, arms the mining window and returns a
// promise that resolves with the mined transaction. Validation happens
// before any state change; once armed, the vote lands unless the session is
// reset inside the window.
func (n *Node) SubmitVote(candidateID int) (*VotePromise, error) {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	if n.voterID == "" {
		return nil, vote.ErrNotIdentified
	}

	w := n.vstore.Wallet()
	if !w.Connected {
		return nil, vote.ErrNotConnected
	}
	if w.HasVoted {
		return nil, vote.ErrAlreadyVoted
	}
	if w.IsMining || n.pending != nil {
		return nil, vote.ErrAlreadySubmitting
	}

	if !n.vstore.Candidates().Contains(candidateID) {
		return nil, vote.ErrInvalidCandidate
	}

	// the registry may have gained this voter since Identify
	if n.vstore.HasVoter(n.voterID) {
		return nil, vote.ErrDuplicateVoter
	}

	blockNumber := vote.BaseBlockNumber + len(n.vstore.Transactions())

	tx, err := vote.NewTransaction(w.Address, candidateID, blockNumber)
	if err != nil {
		return nil, err
	}

	w.IsMining = true
	if err := n.vstore.SetWallet(w); err != nil {
		return nil, err
	}

	n.windowGen++

	promise := NewVotePromise(candidateID)
	n.pending = &pendingVote{
		tx:      tx,
		voterID: n.voterID,
		gen:     n.windowGen,
		promise: promise,
	}

	n.miningTimer.Start(n.miningDelay, n.windowGen)
	n.setState(Submitting)

	n.logger.WithFields(logrus.Fields{
		"candidate": candidateID,
		"hash":      tx.Hash,
		"block":     tx.BlockNumber,
	}).Debug("Mining vote")

	return promise, nil
}

// finishMining completes the pending submission: remote write-through first,
// failures logged and swallowed, then the unconditional local mutation, then
// the promise resolves. A tick whose generation does not match the pending
// submission belongs to a cancelled window and is ignored.
func (n *Node) finishMining(gen uint64) {
	n.coreLock.Lock()

	p := n.pending
	if p == nil || p.gen != gen {
		n.coreLock.Unlock()
		return
	}
	n.pending = nil

	if n.online() {
		if err := n.gateway.IncrementVote(p.tx.CandidateID); err != nil {
			n.logger.WithError(err).Warn("Remote vote increment failed")
		}
		if err := n.gateway.InsertTransaction(p.tx); err != nil {
			n.logger.WithError(err).Warn("Remote transaction insert failed")
		}
		if err := n.gateway.InsertVoter(p.voterID); err != nil {
			n.logger.WithError(err).Warn("Remote voter insert failed")
		}
	}

	candidates := n.vstore.Candidates()
	if c := candidates.Get(p.tx.CandidateID); c != nil {
		c.Votes++
	}
	if err := n.vstore.SetCandidates(candidates); err != nil {
		n.logger.WithError(err).Error("Failed to persist candidate counts")
	}

	if err := n.vstore.AppendTransaction(p.tx); err != nil {
		n.logger.WithError(err).Error("Failed to persist transaction")
	}

	if err := n.vstore.AddVoter(p.voterID); err != nil {
		n.logger.WithError(err).Error("Failed to persist voter")
	}

	w := n.vstore.Wallet()
	w.IsMining = false
	w.HasVoted = true
	if err := n.vstore.SetWallet(w); err != nil {
		n.logger.WithError(err).Error("Failed to persist wallet")
	}

	n.setState(Completed)

	n.logger.WithFields(logrus.Fields{
		"hash":  p.tx.Hash,
		"block": p.tx.BlockNumber,
	}).Debug("Vote mined")

	n.coreLock.Unlock()

	p.promise.Respond(p.tx, nil)
}

// cancelPending disarms the mining window and fails the promise. Caller
// holds coreLock.
func (n *Node) cancelPending() {
	if n.pending == nil {
		return
	}
	p := n.pending
	n.pending = nil
	n.miningTimer.Cancel()
	p.promise.Respond(nil, vote.ErrSubmissionCancelled)

	n.logger.WithField("hash", p.tx.Hash).Debug("Cancelled in-flight submission")
}

// ResetSession drops the session back to its initial state. An in-flight
// submission is cancelled and leaves no trace in the ledger.
func (n *Node) ResetSession() error {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	n.cancelPending()

	if err := n.vstore.SetWallet(vote.SeedWallet()); err != nil {
		return err
	}

	n.voterID = ""
	n.setState(Unidentified)

	n.logger.Debug("Session reset")

	return nil
}

// ResetAll restores the seed state locally and, when online, asks the remote
// store to do the same. Evaluations survive on both sides. The local reset
// succeeds regardless of the remote outcome.
func (n *Node) ResetAll() error {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	n.cancelPending()

	seed := store.DefaultSeed()

	if err := n.vstore.Reset(seed); err != nil {
		return err
	}

	if n.online() {
		ids := []int{}
		for _, c := range seed.Candidates {
			ids = append(ids, c.ID)
		}
		if err := n.gateway.ResetAll(ids); err != nil {
			n.logger.WithError(err).Warn("Remote reset failed")
		}
	}

	n.voterID = ""
	n.setState(Unidentified)

	n.logger.Debug("All data reset")

	return nil
}

// SubmitEvaluation records an audience feedback entry, optimistically local
// first. Missing id and timestamp are filled in.
func (n *Node) SubmitEvaluation(e *vote.Evaluation) error {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	if e.Grade < 0 || e.Grade > 10 {
		return vote.ErrInvalidGrade
	}
	if e.ID == 0 {
		e.ID = time.Now().UnixNano() / int64(time.Millisecond)
	}
	if e.Timestamp == "" {
		e.Timestamp = time.Now().Format("2006-01-02 15:04")
	}

	if err := n.vstore.PrependEvaluation(e); err != nil {
		return err
	}

	if n.online() {
		if err := n.gateway.InsertEvaluation(e); err != nil {
			n.logger.WithError(err).Warn("Remote evaluation insert failed")
		}
	}

	return nil
}

// Sync pulls the remote state and merges it into the local store. Remote
// candidate counts override local counts but never the display fields;
// ledger entries and voters merge by identity; evaluations replace the
// local list when the remote has any.
func (n *Node) Sync() error {
	if !n.online() {
		return nil
	}

	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	counts, err := n.gateway.FetchCandidates()
	if err != nil {
		return err
	}
	candidates := n.vstore.Candidates()
	for _, count := range counts {
		if c := candidates.Get(count.ID); c != nil {
			c.Votes = count.Votes
		}
	}
	if err := n.vstore.SetCandidates(candidates); err != nil {
		return err
	}

	txs, err := n.gateway.FetchTransactions()
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if err := n.vstore.AppendTransaction(tx); err != nil &&
			!cm.IsStore(err, cm.KeyAlreadyExists) {
			return err
		}
	}

	voters, err := n.gateway.FetchVoters()
	if err != nil {
		return err
	}
	for _, v := range voters {
		if err := n.vstore.AddVoter(v); err != nil &&
			!cm.IsStore(err, cm.KeyAlreadyExists) {
			return err
		}
	}

	evals, err := n.gateway.FetchEvaluations()
	if err != nil {
		return err
	}
	if len(evals) > 0 {
		if err := n.vstore.SetEvaluations(evals); err != nil {
			return err
		}
	}

	n.logger.WithFields(logrus.Fields{
		"candidates":   len(counts),
		"transactions": len(txs),
		"voters":       len(voters),
		"evaluations":  len(evals),
	}).Debug("Synced with remote store")

	return nil
}

// mergeCandidateUpdate applies a remote count change. While this node is
// mining its own vote the event is skipped so the remote cannot clobber the
// in-flight submission's view; the write-through after the window converges
// the counts.
func (n *Node) mergeCandidateUpdate(c gateway.CandidateCount) {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	if n.vstore.Wallet().IsMining {
		n.logger.WithField("candidate", c.ID).Debug("Skipping feed update while mining")
		return
	}

	candidates := n.vstore.Candidates()
	local := candidates.Get(c.ID)
	if local == nil || local.Votes == c.Votes {
		return
	}
	local.Votes = c.Votes

	if err := n.vstore.SetCandidates(candidates); err != nil {
		n.logger.WithError(err).Error("Failed to apply candidate update")
	}
}

func (n *Node) mergeTransactionInsert(tx *vote.Transaction) {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	if err := n.vstore.AppendTransaction(tx); err != nil &&
		!cm.IsStore(err, cm.KeyAlreadyExists) {
		n.logger.WithError(err).Error("Failed to apply transaction insert")
	}
}

func (n *Node) mergeEvaluationInsert(e *vote.Evaluation) {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	if n.vstore.Evaluations().ContainsID(e.ID) {
		return
	}
	if err := n.vstore.PrependEvaluation(e); err != nil {
		n.logger.WithError(err).Error("Failed to apply evaluation insert")
	}
}

// Candidates returns the local candidate list.
func (n *Node) Candidates() vote.CandidateList {
	return n.vstore.Candidates()
}

// Transactions returns the local ledger.
func (n *Node) Transactions() vote.TransactionList {
	return n.vstore.Transactions()
}

// Evaluations returns the local feedback entries, newest-first.
func (n *Node) Evaluations() vote.EvaluationList {
	return n.vstore.Evaluations()
}

// Voters returns the local voter registry.
func (n *Node) Voters() vote.VoterList {
	return n.vstore.Voters()
}

// Wallet returns a copy of the session wallet.
func (n *Node) Wallet() *vote.Wallet {
	return n.vstore.Wallet()
}

// GetStats ...
func (n *Node) GetStats() map[string]string {
	txs := n.vstore.Transactions()

	lastBlock := -1
	if len(txs) > 0 {
		lastBlock = txs[len(txs)-1].BlockNumber
	}

	w := n.vstore.Wallet()

	s := map[string]string{
		"state":            n.getState().String(),
		"num_transactions": strconv.Itoa(len(txs)),
		"total_votes":      strconv.Itoa(n.vstore.Candidates().TotalVotes()),
		"num_voters":       strconv.Itoa(len(n.vstore.Voters())),
		"num_evaluations":  strconv.Itoa(len(n.vstore.Evaluations())),
		"last_block":       strconv.Itoa(lastBlock),
		"online":           strconv.FormatBool(n.online()),
		"is_mining":        strconv.FormatBool(w.IsMining),
		"has_voted":        strconv.FormatBool(w.HasVoted),
		"address":          w.Address,
	}
	return s
}

// GetState returns the current session state.
func (n *Node) GetState() State {
	return n.getState()
}

// Shutdown stops the mining loop, cancels any in-flight submission and
// detaches from the change feed. The store and gateway are left open for
// their owner to close.
func (n *Node) Shutdown() {
	if n.getState() == Shutdown {
		return
	}

	n.logger.Debug("Shutdown")

	n.coreLock.Lock()
	n.cancelPending()
	n.coreLock.Unlock()

	if n.sub != nil {
		n.sub.Unsubscribe()
		n.sub = nil
	}

	close(n.shutdownCh)
	n.miningTimer.Shutdown()

	n.setState(Shutdown)

	n.waitRoutines()
}
