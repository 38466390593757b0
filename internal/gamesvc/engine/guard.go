package engine

import "sync"

type SubmitState int

const (
	Pending SubmitState = iota
	Submitted
)

// SubmitGuard lets the time-up submission of a round fire at most once,
// however many timer ticks or change events race to trigger it.
type SubmitGuard struct {
	mu    sync.Mutex
	round int
	state SubmitState
}

// TryFire returns true exactly once per round. Rounds older than the one
// already seen never fire.
func (g *SubmitGuard) TryFire(round int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if round < g.round {
		return false
	}
	if round > g.round {
		g.round = round
		g.state = Pending
	}
	if g.state == Submitted {
		return false
	}
	g.state = Submitted
	return true
}

func (g *SubmitGuard) State(round int) SubmitState {
	g.mu.Lock()
	defer g.mu.Unlock()

	if round != g.round {
		return Pending
	}
	return g.state
}
