// Package shadow implements the mirror emulator that simulates the
// opponent deterministically on the local host (spec.md §4.3 "Shadow").
// It runs the same ROM as the primary but takes the opposite rng1 role
// and the opposite player index, and is driven entirely by
// Shadow.ApplyInput rather than by local controller input.
package shadow

import (
	"fmt"
	"sync"

	"nitro-core-dx/internal/emulator"
	"nitro-core-dx/internal/hooks"
)

// localInput is the shadow's own view of the tick it just simulated:
// the current tick and the TX bytes the shadow's copy-input hook wrote.
type localInput struct {
	Tick uint32
	RX   []byte
}

// remoteInput is the confirmed opponent action for that same tick, as
// seen from the shadow's (i.e. the opponent-simulating) perspective.
type remoteInput struct {
	Tick     uint32
	Joyflags uint16
	RX       []byte
}

// output is what the shadow produces once it has processed one input:
// the tick it processed, and the bytes its own TX slot held.
type output struct {
	Tick uint32
	TX   []byte
}

// round mirrors one battle round's shadow-local bookkeeping: whose
// perspective it's instantiated from, the committed savestate, and the
// single in-flight input/output pair exchanged with ApplyInput.
type round struct {
	localPlayerIndex uint8

	hasFirstCommittedState bool
	firstCommittedState    []byte

	// committedState is refreshed by OnCopyInputData every time an
	// input finishes being injected; ApplyInput waits for a fresh one
	// rather than reusing the round's first snapshot.
	committedState []byte

	hasInput  bool
	in        localInput
	remote    remoteInput
	hasOutput bool
	out       output
}

// roundState is the shadow's equivalent of the primary's RoundState:
// the active round (nil between rounds) and the last round's outcome,
// which decides next round's player-index flip.
type roundState struct {
	round         *round
	wonLastRound  bool
}

// State is the facade the installed shadow trap set calls back into. It
// is guarded by a plain sync.Mutex, per spec.md §5: the shadow is
// single-threaded and never yields, so there is no need for an async
// lock here.
type State struct {
	matchType uint16
	isOfferer bool

	mu    sync.Mutex
	rs    roundState
	rng1  uint32
	rng2  uint32
	tick  uint32
	err   error
}

// NewState builds the shadow's facade state. rng1/rng2 are this side's
// already-resolved candidate states (the opposite role from the
// primary's, per spec.md's invariant).
func NewState(matchType uint16, isOfferer bool, rng1, rng2 uint32, wonLastRound bool) *State {
	return &State{
		matchType: matchType,
		isOfferer: isOfferer,
		rng1:      rng1,
		rng2:      rng2,
		rs:        roundState{wonLastRound: wonLastRound},
	}
}

func (s *State) RNG1State() uint32 { return s.rng1 }
func (s *State) RNG2State() uint32 { return s.rng2 }
func (s *State) MatchType() uint16 { return s.matchType }
func (s *State) IsOfferer() bool   { return s.isOfferer }

func (s *State) LocalPlayerIndex() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rs.round == nil {
		return 0
	}
	return s.rs.round.localPlayerIndex
}

func (s *State) RemotePlayerIndex() uint8 {
	return 1 - s.LocalPlayerIndex()
}

func (s *State) OnTickAdvance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick++
}

// Tick returns the count of main_read_joyflags entries observed so far.
func (s *State) Tick() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// OnRoundStart begins a round; the local player index (the slot the
// shadow's simulated opponent occupies) flips against last round's
// winner exactly as the ROM itself decides seating.
func (s *State) OnRoundStart(e *emulator.Emulator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var idx uint8
	if s.rs.wonLastRound {
		idx = 0
	} else {
		idx = 1
	}
	s.rs.round = &round{localPlayerIndex: idx}
}

// SetWonLastRound records this round's outcome from the shadow's
// (reversed) point of view, for next round's seating decision.
func (s *State) SetWonLastRound(won bool) {
	s.mu.Lock()
	s.rs.wonLastRound = won
	s.mu.Unlock()
}

// EndRound tears down the active round, giving AdvanceUntilRoundEnd
// something to observe as "done".
func (s *State) EndRound(e *emulator.Emulator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rs.round = nil
}

func (s *State) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *State) takeError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

func (s *State) setCommittedState(state []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rs.round != nil {
		s.rs.round.committedState = state
	}
}

func (s *State) PendingRXPackets() (local, remote []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rs.round == nil || !s.rs.round.hasInput {
		return nil, nil
	}
	return s.rs.round.in.RX, s.rs.round.remote.RX
}

// OnMainReadJoyflags is the shadow's half of spec.md §4.3's "Shadow"
// section: on first entry it captures the initial committed state; on
// later entries it consumes the queued input/remote pair, writes the
// remote joyflags into GPR4, records an output (the shadow's own TX),
// and finally snapshots the post-injection state if the round's input
// was just injected.
func (s *State) OnMainReadJoyflags(e *emulator.Emulator) {
	s.mu.Lock()
	r := s.rs.round
	if r == nil {
		s.mu.Unlock()
		return
	}
	if !r.hasFirstCommittedState {
		r.firstCommittedState = mustSaveState(e, s)
		r.hasFirstCommittedState = true
		s.mu.Unlock()
		return
	}
	if !r.hasInput {
		s.mu.Unlock()
		return
	}

	if r.in.Tick != r.remote.Tick {
		err := fmt.Errorf("read joyflags: local tick != remote tick: %d != %d", r.in.Tick, r.remote.Tick)
		s.mu.Unlock()
		s.setError(err)
		return
	}

	r.hasOutput = true
	r.out = output{Tick: r.remote.Tick, TX: append([]byte(nil), r.remote.RX...)}
	r.hasInput = false
	s.mu.Unlock()

	e.SetRegister(4, r.remote.Joyflags|0xFC00)
}

func mustSaveState(e *emulator.Emulator, s *State) []byte {
	state, err := e.SaveState()
	if err != nil {
		s.setError(fmt.Errorf("shadow: save state: %w", err))
		return nil
	}
	return state
}

// OnCopyInputData marks this tick's input as injected and records the
// post-injection savestate as the round's new committed state, the
// baseline the shadow rewinds to before the next ApplyInput call.
func (s *State) OnCopyInputData(e *emulator.Emulator) {
	state, err := e.SaveState()
	if err != nil {
		s.setError(fmt.Errorf("shadow: copy input save state: %w", err))
		return
	}
	s.setCommittedState(state)
}

// Shadow wraps the emulator instance plus the State facade wired into
// its trap table. Run loops are driven by the caller (the match
// controller's primary thread), matching spec.md §5: the shadow runs on
// its own OS thread, but nothing here spawns that thread itself.
type Shadow struct {
	Emulator *emulator.Emulator
	State    *State
	hooks    hooks.Hooks
}

// New installs the common and shadow trap sets into e and resets it.
func New(e *emulator.Emulator, h hooks.Hooks, state *State) *Shadow {
	m := hooks.NewMunger(h.Offsets().Mem)
	traps := h.CommonTraps(m)
	for k, v := range h.ShadowTraps(m, state) {
		traps[k] = v
	}
	e.InstallTraps(traps)
	e.Reset()
	e.SetFrameLimit(false)
	e.Start()
	return &Shadow{Emulator: e, State: state, hooks: h}
}

// CurrentTick reads the shadow emulator's own tick counter, for
// diagnostics and tests comparing it against the primary's.
func (sh *Shadow) CurrentTick() uint32 {
	return sh.hooks.CurrentTick(sh.Emulator)
}

// AdvanceUntilFirstCommittedState runs frames until the round's first
// committed state appears (set from OnMainReadJoyflags's first-entry
// branch), loads it back into the emulator, and returns it.
func (sh *Shadow) AdvanceUntilFirstCommittedState() ([]byte, error) {
	for {
		if err := sh.Emulator.RunFrame(); err != nil {
			return nil, err
		}
		if err := sh.State.takeError(); err != nil {
			return nil, err
		}
		sh.State.mu.Lock()
		r := sh.State.rs.round
		if r == nil || !r.hasFirstCommittedState {
			sh.State.mu.Unlock()
			continue
		}
		state := r.firstCommittedState
		sh.State.mu.Unlock()
		if err := sh.Emulator.LoadState(state); err != nil {
			return nil, err
		}
		return state, nil
	}
}

// AdvanceUntilRoundEnd runs frames until the active round ends (its
// RoundEnd trap fires and clears State.rs.round).
func (sh *Shadow) AdvanceUntilRoundEnd() error {
	for {
		if err := sh.Emulator.RunFrame(); err != nil {
			return err
		}
		if err := sh.State.takeError(); err != nil {
			return err
		}
		sh.State.mu.Lock()
		done := sh.State.rs.round == nil
		sh.State.mu.Unlock()
		if done {
			return nil
		}
	}
}

// ApplyInput feeds the primary's confirmed local input for currentTick
// into the shadow, runs it forward until the shadow has produced its own
// output for that tick and a fresh committed state, and returns the
// shadow's TX bytes for the primary to use as the opponent's RX.
func (sh *Shadow) ApplyInput(currentTick uint32, joyflags uint16, rx []byte) ([]byte, error) {
	sh.State.mu.Lock()
	r := sh.State.rs.round
	if r == nil {
		sh.State.mu.Unlock()
		return nil, fmt.Errorf("shadow apply input: no active round")
	}
	if !r.hasOutput {
		sh.State.mu.Unlock()
		return nil, fmt.Errorf("shadow apply input: no output in shadow to take")
	}
	out := r.out
	r.hasOutput = false
	if out.Tick != currentTick {
		sh.State.mu.Unlock()
		return nil, fmt.Errorf("shadow apply input: output tick != in battle tick: %d != %d", out.Tick, currentTick)
	}
	r.hasInput = true
	r.in = localInput{Tick: currentTick, RX: rx}
	r.remote = remoteInput{Tick: currentTick, Joyflags: joyflags, RX: out.TX}
	r.committedState = nil
	sh.State.mu.Unlock()

	for {
		if err := sh.Emulator.RunFrame(); err != nil {
			return nil, err
		}
		if err := sh.State.takeError(); err != nil {
			return nil, err
		}
		sh.State.mu.Lock()
		cur := sh.State.rs.round
		if cur == nil {
			sh.State.mu.Unlock()
			return nil, fmt.Errorf("shadow apply input: round ended mid-apply")
		}
		state := cur.committedState
		hasOut := cur.hasOutput
		sh.State.mu.Unlock()
		if state == nil {
			continue
		}
		if err := sh.Emulator.LoadState(state); err != nil {
			return nil, err
		}
		if hasOut {
			return out.TX, nil
		}
	}
}
