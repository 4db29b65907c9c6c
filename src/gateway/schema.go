package gateway

import (
	"database/sql"
	"fmt"
)

// Notification channels fed by the triggers below. Payloads are the affected
// row serialized with row_to_json.
const (
	candidateChannel   = "votes_candidates"
	transactionChannel = "votes_transactions"
	evaluationChannel  = "votes_evaluations"
)

// createSchema creates the tables, the increment_vote function and the
// notify triggers. Safe to call multiple times.
func createSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// seedCandidates inserts a zero-count row per candidate id. Existing rows
// keep their counts.
func seedCandidates(db *sql.DB, candidateIDs []int) error {
	for _, id := range candidateIDs {
		_, err := db.Exec(
			`INSERT INTO candidates (id, votes) VALUES ($1, 0) ON CONFLICT (id) DO NOTHING`,
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to seed candidate %d: %w", id, err)
		}
	}
	return nil
}

const schema = `
-- Candidate counts. Display fields stay client-side.
CREATE TABLE IF NOT EXISTS candidates (
    id INT PRIMARY KEY,
    votes INT NOT NULL DEFAULT 0
);

-- Ledger of accepted votes.
CREATE TABLE IF NOT EXISTS transactions (
    hash TEXT PRIMARY KEY,
    block_number INT NOT NULL,
    from_address TEXT NOT NULL,
    to_address TEXT NOT NULL,
    ts TEXT NOT NULL,
    gas_used INT NOT NULL,
    candidate_id INT NOT NULL
);

-- Write-once voter registry.
CREATE TABLE IF NOT EXISTS voters (
    voter_id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

-- Audience feedback. Ids are client-generated.
CREATE TABLE IF NOT EXISTS evaluations (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    grade INT NOT NULL,
    comment TEXT NOT NULL DEFAULT '',
    ts TEXT NOT NULL
);

-- Atomic counter bump used by the primary increment path.
CREATE OR REPLACE FUNCTION increment_vote(candidate_row_id INT) RETURNS VOID AS $$
BEGIN
    UPDATE candidates SET votes = votes + 1 WHERE id = candidate_row_id;
END;
$$ LANGUAGE plpgsql;

-- Change feed: notify the affected row as json.
CREATE OR REPLACE FUNCTION notify_candidate_update() RETURNS TRIGGER AS $$
BEGIN
    PERFORM pg_notify('votes_candidates', row_to_json(NEW)::text);
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION notify_transaction_insert() RETURNS TRIGGER AS $$
BEGIN
    PERFORM pg_notify('votes_transactions', row_to_json(NEW)::text);
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION notify_evaluation_insert() RETURNS TRIGGER AS $$
BEGIN
    PERFORM pg_notify('votes_evaluations', row_to_json(NEW)::text);
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS candidates_notify ON candidates;
CREATE TRIGGER candidates_notify AFTER UPDATE ON candidates
    FOR EACH ROW EXECUTE PROCEDURE notify_candidate_update();

DROP TRIGGER IF EXISTS transactions_notify ON transactions;
CREATE TRIGGER transactions_notify AFTER INSERT ON transactions
    FOR EACH ROW EXECUTE PROCEDURE notify_transaction_insert();

DROP TRIGGER IF EXISTS evaluations_notify ON evaluations;
CREATE TRIGGER evaluations_notify AFTER INSERT ON evaluations
    FOR EACH ROW EXECUTE PROCEDURE notify_evaluation_insert();
`
