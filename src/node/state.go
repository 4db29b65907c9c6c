package node

import (
	"sync"
	"sync/atomic"
)

// State captures the state of a voting session: Unidentified, Identified,
// SessionBound, Submitting, Completed, or Shutdown
type State uint32

const (
	//Unidentified is the initial state, before a voter id is supplied.
	Unidentified State = iota
	//Identified means a voter id passed the duplicate check.
	Identified
	//SessionBound means a pseudonymous address is bound to the session.
	SessionBound
	//Submitting means a vote is in the mining window.
	Submitting
	//Completed means this session's vote was accepted.
	Completed
	//Shutdown is shutdown
	Shutdown
)

// String ...
func (s State) String() string {
	switch s {
	case Unidentified:
		return "Unidentified"
	case Identified:
		return "Identified"
	case SessionBound:
		return "SessionBound"
	case Submitting:
		return "Submitting"
	case Completed:
		return "Completed"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

type state struct {
	state State
	wg    sync.WaitGroup
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// Start a goroutine and add it to waitgroup
func (b *state) goFunc(f func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		f()
	}()
}

func (b *state) waitRoutines() {
	b.wg.Wait()
}
