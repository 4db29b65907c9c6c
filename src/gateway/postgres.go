package gateway

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/leandrolasalle/voto-apresentacao/src/vote"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// PostgresGateway is the Gateway backed by a Postgres database. Writes go
// straight to the tables; the change feed rides the notify triggers through
// a pq.Listener, so every subscriber sees the same events regardless of
// which client caused them.
type PostgresGateway struct {
	db  *sql.DB
	url string

	// incrementFnBroken flips to true the first time increment_vote is
	// reported missing, after which every increment takes the fallback.
	incrementFnBroken bool
	incrementMu       sync.Mutex

	subsMu   sync.Mutex
	subs     map[*pgSubscription]struct{}
	listener *pq.Listener
	quit     chan struct{}
	closed   bool

	logger *logrus.Entry
}

// NewPostgresGateway connects to url, creates the schema if needed and seeds
// a zero-count row for each candidate id.
func NewPostgresGateway(url string, candidateIDs []int, logger *logrus.Entry) (*PostgresGateway, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := seedCandidates(db, candidateIDs); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresGateway{
		db:     db,
		url:    url,
		subs:   make(map[*pgSubscription]struct{}),
		logger: logger,
	}, nil
}

func (g *PostgresGateway) FetchCandidates() ([]CandidateCount, error) {
	rows, err := g.db.Query(`SELECT id, votes FROM candidates`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []CandidateCount
	for rows.Next() {
		var c CandidateCount
		if err := rows.Scan(&c.ID, &c.Votes); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (g *PostgresGateway) FetchTransactions() (vote.TransactionList, error) {
	rows, err := g.db.Query(
		`SELECT hash, block_number, from_address, ts, gas_used, candidate_id
		 FROM transactions ORDER BY block_number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res vote.TransactionList
	for rows.Next() {
		tx := &vote.Transaction{To: vote.ContractAddress}
		err := rows.Scan(&tx.Hash, &tx.BlockNumber, &tx.From, &tx.Timestamp,
			&tx.GasUsed, &tx.CandidateID)
		if err != nil {
			return nil, err
		}
		res = append(res, tx)
	}
	return res, rows.Err()
}

func (g *PostgresGateway) FetchVoters() (vote.VoterList, error) {
	rows, err := g.db.Query(`SELECT voter_id FROM voters`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res vote.VoterList
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}

func (g *PostgresGateway) FetchEvaluations() (vote.EvaluationList, error) {
	rows, err := g.db.Query(
		`SELECT id, name, grade, comment, ts FROM evaluations ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res vote.EvaluationList
	for rows.Next() {
		e := &vote.Evaluation{}
		if err := rows.Scan(&e.ID, &e.Name, &e.Grade, &e.Comment, &e.Timestamp); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (g *PostgresGateway) IncrementVote(candidateID int) error {
	g.incrementMu.Lock()
	broken := g.incrementFnBroken
	g.incrementMu.Unlock()

	if !broken {
		_, err := g.db.Exec(`SELECT increment_vote($1)`, candidateID)
		if err == nil {
			return nil
		}
		if !isUndefinedFunction(err) {
			return err
		}
		g.logger.WithError(err).Warn("increment_vote missing, using read-modify-write fallback")
		g.incrementMu.Lock()
		g.incrementFnBroken = true
		g.incrementMu.Unlock()
	}

	// Fallback. Not race-free: two concurrent clients can both read the
	// same count and one increment gets lost.
	var current int
	err := g.db.QueryRow(`SELECT votes FROM candidates WHERE id = $1`, candidateID).Scan(&current)
	if err == sql.ErrNoRows {
		return vote.ErrInvalidCandidate
	}
	if err != nil {
		return err
	}
	_, err = g.db.Exec(`UPDATE candidates SET votes = $1 WHERE id = $2`, current+1, candidateID)
	return err
}

func (g *PostgresGateway) InsertTransaction(tx *vote.Transaction) error {
	_, err := g.db.Exec(
		`INSERT INTO transactions (hash, block_number, from_address, to_address, ts, gas_used, candidate_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tx.Hash, tx.BlockNumber, tx.From, tx.To, tx.Timestamp, tx.GasUsed, tx.CandidateID)
	return err
}

func (g *PostgresGateway) InsertVoter(voterID string) error {
	res, err := g.db.Exec(
		`INSERT INTO voters (voter_id) VALUES ($1) ON CONFLICT (voter_id) DO NOTHING`,
		voterID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return vote.ErrDuplicateVoter
	}
	return nil
}

func (g *PostgresGateway) InsertEvaluation(e *vote.Evaluation) error {
	_, err := g.db.Exec(
		`INSERT INTO evaluations (id, name, grade, comment, ts) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Name, e.Grade, e.Comment, e.Timestamp)
	return err
}

func (g *PostgresGateway) ResetAll(candidateIDs []int) error {
	dbtx, err := g.db.Begin()
	if err != nil {
		return err
	}
	if _, err := dbtx.Exec(`DELETE FROM transactions`); err != nil {
		dbtx.Rollback()
		return err
	}
	if _, err := dbtx.Exec(`DELETE FROM voters`); err != nil {
		dbtx.Rollback()
		return err
	}
	if _, err := dbtx.Exec(`UPDATE candidates SET votes = 0`); err != nil {
		dbtx.Rollback()
		return err
	}
	return dbtx.Commit()
}

func (g *PostgresGateway) Subscribe(handlers FeedHandlers) (Subscription, error) {
	g.subsMu.Lock()
	defer g.subsMu.Unlock()

	if g.closed {
		return nil, vote.ErrRemoteUnavailable
	}

	if g.listener == nil {
		if err := g.startListener(); err != nil {
			return nil, err
		}
	}

	sub := &pgSubscription{
		gateway:  g,
		handlers: handlers,
	}
	g.subs[sub] = struct{}{}
	return sub, nil
}

// startListener opens the notification connection and starts the dispatch
// loop. Caller holds subsMu.
func (g *PostgresGateway) startListener() error {
	listener := pq.NewListener(g.url, listenerMinReconnect, listenerMaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				g.logger.WithError(err).Warn("Feed listener event")
			}
		})

	for _, channel := range []string{candidateChannel, transactionChannel, evaluationChannel} {
		if err := listener.Listen(channel); err != nil {
			listener.Close()
			return err
		}
	}

	g.listener = listener
	g.quit = make(chan struct{})
	go g.dispatch(listener, g.quit)
	return nil
}

func (g *PostgresGateway) dispatch(listener *pq.Listener, quit chan struct{}) {
	for {
		select {
		case n := <-listener.Notify:
			if n == nil {
				// Reconnect marker. Subscribers resync on their own
				// schedule, nothing to replay here.
				continue
			}
			g.deliver(n)
		case <-time.After(listenerPingInterval):
			if err := listener.Ping(); err != nil {
				g.logger.WithError(err).Warn("Feed listener ping failed")
			}
		case <-quit:
			return
		}
	}
}

func (g *PostgresGateway) deliver(n *pq.Notification) {
	g.subsMu.Lock()
	subs := make([]*pgSubscription, 0, len(g.subs))
	for sub := range g.subs {
		subs = append(subs, sub)
	}
	g.subsMu.Unlock()

	switch n.Channel {
	case candidateChannel:
		var row candidateRow
		if err := json.Unmarshal([]byte(n.Extra), &row); err != nil {
			g.logger.WithError(err).Warn("Bad candidate notification payload")
			return
		}
		for _, sub := range subs {
			if sub.handlers.CandidateUpdate != nil {
				sub.handlers.CandidateUpdate(CandidateCount{ID: row.ID, Votes: row.Votes})
			}
		}
	case transactionChannel:
		var row transactionRow
		if err := json.Unmarshal([]byte(n.Extra), &row); err != nil {
			g.logger.WithError(err).Warn("Bad transaction notification payload")
			return
		}
		for _, sub := range subs {
			if sub.handlers.TransactionInsert != nil {
				sub.handlers.TransactionInsert(row.toTransaction())
			}
		}
	case evaluationChannel:
		var row evaluationRow
		if err := json.Unmarshal([]byte(n.Extra), &row); err != nil {
			g.logger.WithError(err).Warn("Bad evaluation notification payload")
			return
		}
		for _, sub := range subs {
			if sub.handlers.EvaluationInsert != nil {
				sub.handlers.EvaluationInsert(row.toEvaluation())
			}
		}
	}
}

func (g *PostgresGateway) Close() error {
	g.subsMu.Lock()
	defer g.subsMu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	if g.listener != nil {
		close(g.quit)
		g.listener.Close()
		g.listener = nil
	}
	g.subs = make(map[*pgSubscription]struct{})
	return g.db.Close()
}

type pgSubscription struct {
	gateway  *PostgresGateway
	handlers FeedHandlers
}

func (s *pgSubscription) Unsubscribe() {
	s.gateway.subsMu.Lock()
	delete(s.gateway.subs, s)
	s.gateway.subsMu.Unlock()
}

// Row shapes of the trigger payloads (row_to_json on the table row).
type candidateRow struct {
	ID    int `json:"id"`
	Votes int `json:"votes"`
}

type transactionRow struct {
	Hash        string `json:"hash"`
	BlockNumber int    `json:"block_number"`
	From        string `json:"from_address"`
	To          string `json:"to_address"`
	Timestamp   string `json:"ts"`
	GasUsed     int    `json:"gas_used"`
	CandidateID int    `json:"candidate_id"`
}

func (r transactionRow) toTransaction() *vote.Transaction {
	return &vote.Transaction{
		Hash:        r.Hash,
		BlockNumber: r.BlockNumber,
		From:        r.From,
		To:          vote.ContractAddress,
		Timestamp:   r.Timestamp,
		GasUsed:     r.GasUsed,
		CandidateID: r.CandidateID,
	}
}

type evaluationRow struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Grade     int    `json:"grade"`
	Comment   string `json:"comment"`
	Timestamp string `json:"ts"`
}

func (r evaluationRow) toEvaluation() *vote.Evaluation {
	return &vote.Evaluation{
		ID:        r.ID,
		Name:      r.Name,
		Grade:     r.Grade,
		Comment:   r.Comment,
		Timestamp: r.Timestamp,
	}
}

func isUndefinedFunction(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "42883"
	}
	return false
}
