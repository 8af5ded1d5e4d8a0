// Package replayer drives an archived match (internal/replay.Replay)
// through a dedicated emulator instance, per spec.md §4.3's "Replayer"
// section: mechanically, a fastforwarder that never saves intermediate
// state and never runs out until the recording itself ends.
package replayer

import (
	"fmt"
	"sync"

	"nitro-core-dx/internal/emulator"
	"nitro-core-dx/internal/hooks"
	"nitro-core-dx/internal/netinput"
	"nitro-core-dx/internal/replay"
)

// RoundResult is the replayer's terminal outcome: whether the archive
// ran to completion (its IsComplete header bit) and how many confirmed
// pairs were left unconsumed, if the recording was incomplete.
type RoundResult struct {
	Completed        bool
	PairsLeftAtEnd   int
}

// State is the facade the installed replayer trap set calls back into.
type State struct {
	localPlayerIndex uint8
	isComplete       bool

	mu     sync.Mutex
	pairs  []netinput.Pair[netinput.Input, netinput.Input]
	err    error
	done   bool
	result RoundResult
}

// NewState builds the facade for one replay run from its decoded
// records, already paired up by the caller (see New).
func NewState(localPlayerIndex uint8, isComplete bool, pairs []netinput.Pair[netinput.Input, netinput.Input]) *State {
	return &State{
		localPlayerIndex: localPlayerIndex,
		isComplete:       isComplete,
		pairs:            pairs,
	}
}

func (s *State) LocalPlayerIndex() uint8  { return s.localPlayerIndex }
func (s *State) RemotePlayerIndex() uint8 { return 1 - s.localPlayerIndex }

// InputPairsLeft reports how many confirmed pairs remain unconsumed.
func (s *State) InputPairsLeft() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pairs)
}

// TakeError returns and clears the replayer's fatal error slot.
func (s *State) TakeError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

func (s *State) setError(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// Done reports whether the queue has been fully drained.
func (s *State) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// RoundResult reports the replayer's terminal outcome, valid once Done.
func (s *State) RoundResult() RoundResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *State) PendingRXPackets() (local, remote []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pairs) == 0 {
		return nil, nil
	}
	return s.pairs[0].Local.RX, s.pairs[0].Remote.RX
}

// OnMainReadJoyflags feeds the next queued pair's local joyflags, per
// spec.md §4.3: "main_read_joyflags feeds queued ip.local.joyflags |
// 0xFC00". Queue exhaustion marks the replay done rather than erroring;
// completion vs. early termination is reported via RoundResult.
func (s *State) OnMainReadJoyflags(e *emulator.Emulator) {
	s.mu.Lock()
	if len(s.pairs) == 0 {
		if !s.done {
			s.done = true
			s.result = RoundResult{Completed: s.isComplete, PairsLeftAtEnd: 0}
		}
		s.mu.Unlock()
		return
	}
	ip := s.pairs[0]
	s.mu.Unlock()

	if ip.Local.LocalTick != ip.Remote.LocalTick {
		s.setError(fmt.Errorf("replayer: local tick != remote tick: %d != %d", ip.Local.LocalTick, ip.Remote.LocalTick))
		return
	}

	e.SetRegister(4, ip.Local.Joyflags|0xFC00)
}

// OnCopyInputData pops the front pair, letting the trap set write both
// RX payloads before this call per the usual catalogue contract.
func (s *State) OnCopyInputData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pairs) == 0 {
		return
	}
	s.pairs = s.pairs[1:]
}

// Replayer drives a dedicated emulator instance through one archived
// match. It never saves intermediate state, unlike the fastforwarder.
type Replayer struct {
	Emulator *emulator.Emulator
	State    *State
}

// New builds a Replayer from a decoded replay: pairs up every record
// into the lockstep Pair[Input, Input] shape the facade expects, loads
// the archived starting state, and installs the replayer trap set.
func New(e *emulator.Emulator, h hooks.Hooks, r *replay.Replay) (*Replayer, error) {
	pairs := make([]netinput.Pair[netinput.Input, netinput.Input], len(r.Records))
	for i, rec := range r.Records {
		pairs[i] = netinput.Pair[netinput.Input, netinput.Input]{
			Local:  netinput.Input{LocalTick: rec.LocalTick, RemoteTick: rec.RemoteTick, Joyflags: rec.JoyflagsLocal, RX: rec.RXLocal},
			Remote: netinput.Input{LocalTick: rec.RemoteTick, RemoteTick: rec.LocalTick, Joyflags: rec.JoyflagsRemote, RX: rec.RXRemote},
		}
	}

	state := NewState(r.LocalPlayerIndex, r.IsComplete, pairs)

	m := hooks.NewMunger(h.Offsets().Mem)
	traps := h.CommonTraps(m)
	for k, v := range h.ReplayerTraps(m, &facadeAdapter{s: state}) {
		traps[k] = v
	}
	e.InstallTraps(traps)
	if err := e.LoadState(r.LocalState); err != nil {
		return nil, fmt.Errorf("replayer: load archived state: %w", err)
	}
	e.SetFrameLimit(false)
	e.Start()
	h.PrepareForFastforward(e)

	return &Replayer{Emulator: e, State: state}, nil
}

// facadeAdapter adapts State to hooks.ReplayerFacade's tick-free
// OnCopyInputData signature.
type facadeAdapter struct {
	s *State
}

func (a *facadeAdapter) LocalPlayerIndex() uint8  { return a.s.LocalPlayerIndex() }
func (a *facadeAdapter) RemotePlayerIndex() uint8 { return a.s.RemotePlayerIndex() }

func (a *facadeAdapter) PendingRXPackets() (local, remote []byte) { return a.s.PendingRXPackets() }

func (a *facadeAdapter) OnMainReadJoyflags(e *emulator.Emulator) { a.s.OnMainReadJoyflags(e) }

func (a *facadeAdapter) OnCopyInputData(e *emulator.Emulator) { a.s.OnCopyInputData() }

func (a *facadeAdapter) OnTickAdvance() {}

// Run executes frames until the replay is done (queue exhausted) or a
// fatal error is observed, and returns the terminal RoundResult.
func (rp *Replayer) Run() (RoundResult, error) {
	for {
		if err := rp.Emulator.RunFrame(); err != nil {
			return RoundResult{}, err
		}
		if err := rp.State.TakeError(); err != nil {
			return RoundResult{}, err
		}
		if rp.State.Done() {
			return rp.State.RoundResult(), nil
		}
	}
}
