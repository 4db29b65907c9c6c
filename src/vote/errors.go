package vote

import "errors"

// Validation errors are reported synchronously to the caller before any state
// change. Remote/durability failures are a different class: they are wrapped
// as ErrRemoteUnavailable, logged at the gateway boundary, and never surfaced
// through the optimistic vote path.
var (
	// ErrDuplicateVoter means the voter identifier has already cast a vote.
	ErrDuplicateVoter = errors.New("voter id has already cast a vote")

	// ErrInvalidCandidate means the candidate id is outside the seeded set.
	ErrInvalidCandidate = errors.New("candidate id is not in the seeded set")

	// ErrNotIdentified means no voter identifier has been supplied yet.
	ErrNotIdentified = errors.New("no voter has been identified")

	// ErrNotConnected means no pseudonymous address is bound to the session.
	ErrNotConnected = errors.New("no session address is bound")

	// ErrAlreadyVoted means this session has already cast its vote.
	ErrAlreadyVoted = errors.New("this session has already voted")

	// ErrAlreadySubmitting means a vote submission is already in flight for
	// this session.
	ErrAlreadySubmitting = errors.New("a vote submission is already being mined")

	// ErrSubmissionCancelled means the session was reset while a submission
	// was still in the mining window.
	ErrSubmissionCancelled = errors.New("vote submission cancelled by reset")

	// ErrInvalidGrade means an evaluation grade is outside 0..10.
	ErrInvalidGrade = errors.New("grade must be between 0 and 10")

	// ErrRemoteUnavailable means a gateway call failed or no gateway is
	// attached.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
)
