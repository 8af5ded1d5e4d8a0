// Package fastforwarder implements the scratch emulator that replays
// confirmed input pairs from a round's committed state to resynchronize
// the primary after new remote input arrives (spec.md §4.3, "Fastforwarder
// state machine"). It is the rollback step: the primary's visible state
// between frames is always the fastforwarder's most recent dirty state.
package fastforwarder

import (
	"fmt"
	"sync"

	"nitro-core-dx/internal/emulator"
	"nitro-core-dx/internal/hooks"
	"nitro-core-dx/internal/netinput"
)

// Status names the fastforwarder's state machine position, per spec.md:
// idle -> committing -> running -> dirty_saved -> done|exhausted|error.
type Status int

const (
	StatusIdle Status = iota
	StatusCommitting
	StatusRunning
	StatusDirtySaved
	StatusDone
	StatusExhausted
	StatusError
)

// State is the facade the installed fastforwarder trap set calls back
// into. A fastforward run is single-use: construct one State per
// invocation rather than reusing it across rounds.
type State struct {
	localPlayerIndex  uint8
	remotePlayerIndex uint8
	commitTime        uint32
	dirtyTime         uint32

	mu     sync.Mutex
	pairs  []netinput.Pair[netinput.Input, netinput.Input]
	status Status
	err    error

	committedState []byte
	dirtyState     []byte
}

// NewState builds the facade for one fastforward run: commitTime and
// dirtyTime are the ticks at which to snapshot the committed and dirty
// states, and pairs is the ordered run of confirmed input pairs to
// replay, starting at commitTime.
func NewState(localPlayerIndex uint8, commitTime, dirtyTime uint32, pairs []netinput.Pair[netinput.Input, netinput.Input]) *State {
	return &State{
		localPlayerIndex:  localPlayerIndex,
		remotePlayerIndex: 1 - localPlayerIndex,
		commitTime:        commitTime,
		dirtyTime:         dirtyTime,
		pairs:             pairs,
		status:            StatusCommitting,
	}
}

func (s *State) LocalPlayerIndex() uint8  { return s.localPlayerIndex }
func (s *State) RemotePlayerIndex() uint8 { return s.remotePlayerIndex }

func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *State) TakeError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

func (s *State) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
	s.status = StatusError
}

// CommittedState returns the snapshot taken at commitTime, once available.
func (s *State) CommittedState() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committedState
}

// DirtyState returns the snapshot taken at dirtyTime, once available.
func (s *State) DirtyState() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyState
}

// PendingRXPackets exposes the front-of-queue pair's RX bytes for the
// copy_input_data_entry trap to write, without consuming it; OnCopyInputData
// performs the actual pop once the game has read them.
func (s *State) PendingRXPackets() (local, remote []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pairs) == 0 {
		return nil, nil
	}
	return s.pairs[0].Local.RX, s.pairs[0].Remote.RX
}

// OnMainReadJoyflags implements spec.md's fastforwarder transition: on
// commitTime, snapshot committedState; peek the next pair and inject its
// local joyflags; on dirtyTime, snapshot dirtyState. Queue exhaustion
// before dirtyTime, or a tick mismatch, is a fatal desync.
func (s *State) OnMainReadJoyflags(e *emulator.Emulator, currentTick uint32) {
	s.mu.Lock()
	if currentTick == s.commitTime {
		state, err := e.SaveState()
		if err != nil {
			s.mu.Unlock()
			s.setError(fmt.Errorf("fastforwarder: commit snapshot: %w", err))
			return
		}
		s.committedState = state
		s.status = StatusRunning
	}

	if len(s.pairs) == 0 {
		s.status = StatusExhausted
		s.mu.Unlock()
		return
	}
	ip := s.pairs[0]
	s.mu.Unlock()

	if ip.Local.LocalTick != ip.Remote.LocalTick {
		s.setError(fmt.Errorf("read joyflags: local tick != remote tick (in battle tick = %d): %d != %d", currentTick, ip.Local.LocalTick, ip.Remote.LocalTick))
		return
	}
	if ip.Local.LocalTick != currentTick {
		s.setError(fmt.Errorf("read joyflags: input tick != in battle tick: %d != %d", ip.Local.LocalTick, currentTick))
		return
	}

	e.SetRegister(4, ip.Local.Joyflags|0xFC00)

	if currentTick == s.dirtyTime {
		s.mu.Lock()
		state, err := e.SaveState()
		if err != nil {
			s.mu.Unlock()
			s.setError(fmt.Errorf("fastforwarder: dirty snapshot: %w", err))
			return
		}
		s.dirtyState = state
		s.status = StatusDirtySaved
		s.mu.Unlock()
	}
}

// OnCopyInputData pops the front pair, validates its ticks, and lets the
// caller (the standard hook set) write both RX packets before this call.
func (s *State) OnCopyInputData(currentTick uint32) {
	s.mu.Lock()
	if len(s.pairs) == 0 {
		s.mu.Unlock()
		return
	}
	ip := s.pairs[0]
	s.pairs = s.pairs[1:]
	s.mu.Unlock()

	if ip.Local.LocalTick != ip.Remote.LocalTick {
		s.setError(fmt.Errorf("copy input data: local tick != remote tick (in battle tick = %d): %d != %d", currentTick, ip.Local.LocalTick, ip.Remote.LocalTick))
		return
	}
	if ip.Local.LocalTick != currentTick {
		s.setError(fmt.Errorf("copy input data: input tick != in battle tick: %d != %d", ip.Local.LocalTick, currentTick))
		return
	}
}

// Fastforwarder drives a scratch emulator instance through one State's
// replay: reset from the round's committed state, run until the state
// machine reaches a terminal status, and report the resulting
// committed/dirty states back to the caller (normally the match
// controller, which loads DirtyState back into the primary).
type Fastforwarder struct {
	Emulator *emulator.Emulator
	State    *State
	hooks    hooks.Hooks
}

// New builds a scratch Fastforwarder: it loads fromState into e, installs
// the common and fastforwarder trap sets, and leaves e ready to run.
func New(e *emulator.Emulator, h hooks.Hooks, fromState []byte, state *State) (*Fastforwarder, error) {
	m := hooks.NewMunger(h.Offsets().Mem)
	traps := h.CommonTraps(m)
	for k, v := range h.FastforwarderTraps(m, &facadeAdapter{h: h, m: m, s: state}) {
		traps[k] = v
	}
	e.InstallTraps(traps)
	if err := e.LoadState(fromState); err != nil {
		return nil, fmt.Errorf("fastforwarder: load from committed state: %w", err)
	}
	e.SetFrameLimit(false)
	e.Start()
	h.PrepareForFastforward(e)
	return &Fastforwarder{Emulator: e, State: state, hooks: h}, nil
}

// facadeAdapter adapts State's tick-taking OnMainReadJoyflags/OnCopyInputData
// methods to hooks.FastforwarderFacade's tick-free signature by reading the
// current tick off the munger itself, matching how the ROM's own trap would.
type facadeAdapter struct {
	h hooks.Hooks
	m *hooks.Munger
	s *State
}

func (a *facadeAdapter) LocalPlayerIndex() uint8  { return a.s.LocalPlayerIndex() }
func (a *facadeAdapter) RemotePlayerIndex() uint8 { return a.s.RemotePlayerIndex() }

func (a *facadeAdapter) PendingRXPackets() (local, remote []byte) { return a.s.PendingRXPackets() }

func (a *facadeAdapter) OnMainReadJoyflags(e *emulator.Emulator) {
	a.s.OnMainReadJoyflags(e, a.m.CurrentTick(e))
}

func (a *facadeAdapter) OnCopyInputData(e *emulator.Emulator) {
	a.s.OnCopyInputData(a.m.CurrentTick(e))
}

func (a *facadeAdapter) OnTickAdvance() {}

// Run executes frames until the state machine reaches a terminal state
// (dirty-saved-and-done, exhausted, or error) and returns the committed
// and dirty states, or the fatal error that stopped it short.
func (ff *Fastforwarder) Run() (committed, dirty []byte, err error) {
	for {
		if rerr := ff.Emulator.RunFrame(); rerr != nil {
			return nil, nil, rerr
		}
		if terr := ff.State.TakeError(); terr != nil {
			return nil, nil, terr
		}
		switch ff.State.Status() {
		case StatusDirtySaved:
			return ff.State.CommittedState(), ff.State.DirtyState(), nil
		case StatusExhausted:
			return nil, nil, fmt.Errorf("fastforwarder: inputs exhausted before reaching dirty time %d", ff.State.dirtyTime)
		}
	}
}
