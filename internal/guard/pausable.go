package guard

import "sync/atomic"

// Pausable is the emergency stop flag. The faucet mutates it only through its
// own pause and resume operations.
type Pausable struct {
	paused atomic.Bool
}

func NewPausable(paused bool) *Pausable {
	p := &Pausable{}
	p.paused.Store(paused)
	return p
}

func (p *Pausable) IsPaused() bool {
	return p.paused.Load()
}

func (p *Pausable) SetPaused(paused bool) {
	p.paused.Store(paused)
}
