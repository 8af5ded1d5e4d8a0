// Package match implements the primary side's round controller: the
// owner of the primary emulator, the shadow, the shared RNG seed
// resolution, and the per-round lockstep/fastforward sequence described
// in spec.md §4.3. It is what internal/hooks.PrimaryFacade is bound to.
package match

import (
	"fmt"
	"sync"

	"nitro-core-dx/internal/emulator"
	"nitro-core-dx/internal/fastforwarder"
	"nitro-core-dx/internal/hooks"
	"nitro-core-dx/internal/netinput"
	"nitro-core-dx/internal/rng"
	"nitro-core-dx/internal/round"
	"nitro-core-dx/internal/shadow"
	"nitro-core-dx/internal/transport"
)

// Config bundles everything a Match needs at construction: which side
// this host is playing, the shared match seed, the input delay, and the
// match type value the hook's comm-menu trap writes into the ROM.
type Config struct {
	IsOfferer  bool
	SharedSeed uint32
	InputDelay uint32
	MatchType  uint16
}

// Controller owns the primary emulator, its shadow, and the transport
// used to exchange confirmed inputs. It implements hooks.PrimaryFacade
// and is the thing every primary trap callback reaches back into.
type Controller struct {
	cfg Config
	h   hooks.Hooks
	m   *hooks.Munger

	primary *emulator.Emulator
	shadow  *shadow.Shadow
	tr      transport.Transport
	inbox   *transport.Inbox

	rng1 uint32
	rng2 uint32

	mu           sync.Mutex
	round        *round.Round
	wonLastRound bool
	tick         uint32
	err          error
}

// New constructs a Controller around an already-loaded primary emulator
// and a shadow emulator that will be reset and driven internally. The
// RNG candidates are resolved from cfg.SharedSeed per spec.md §3: both
// peers compute both candidates, then each side picks its own role's
// rng1; the shadow, simulating the opponent, picks the opposite.
func New(cfg Config, h hooks.Hooks, primary, shadowEmu *emulator.Emulator, tr transport.Transport) *Controller {
	candidates, rng2 := rng.InitFromSeed(cfg.SharedSeed)
	rng1 := candidates.Pick(cfg.IsOfferer)

	shadowState := shadow.NewState(cfg.MatchType, cfg.IsOfferer, candidates.Opposite(cfg.IsOfferer), rng2, false)
	sh := shadow.New(shadowEmu, h, shadowState)

	c := &Controller{
		cfg:     cfg,
		h:       h,
		m:       hooks.NewMunger(h.Offsets().Mem),
		primary: primary,
		shadow:  sh,
		tr:      tr,
		inbox:   transport.NewInbox(tr),
		rng1:    rng1,
		rng2:    rng2,
	}
	return c
}

// Install wires the primary's trap set into the primary emulator. joyflags
// is the UI-thread-written atomic the main_read_joyflags trap reads.
func (c *Controller) Install(joyflags hooks.JoyflagsSource) {
	traps := c.h.CommonTraps(c.m)
	for k, v := range c.h.PrimaryTraps(c.m, joyflags, c) {
		traps[k] = v
	}
	c.primary.InstallTraps(traps)
}

// RNG1State and RNG2State satisfy hooks.RNGFacade: both peers seed the
// ROM's RNG words from these at comm-menu-init-return.
func (c *Controller) RNG1State() uint32 { return c.rng1 }
func (c *Controller) RNG2State() uint32 { return c.rng2 }
func (c *Controller) MatchType() uint16 { return c.cfg.MatchType }

func (c *Controller) LocalPlayerIndex() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.round == nil {
		return 0
	}
	return c.round.LocalPlayerIndex
}

func (c *Controller) RemotePlayerIndex() uint8 {
	return 1 - c.LocalPlayerIndex()
}

// Tick returns the primary's own observed tick count.
func (c *Controller) Tick() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

func (c *Controller) OnTickAdvance() {
	c.mu.Lock()
	c.tick++
	c.mu.Unlock()
}

// OnRoundStart begins a new round. The local player index flips against
// the previous round's winner, mirroring shadow.rs's won_last_round
// check (spec.md's Open Question on flip direction, resolved per
// SPEC_FULL.md's SUPPLEMENTED FEATURES).
func (c *Controller) OnRoundStart(e *emulator.Emulator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var idx uint8
	if c.wonLastRound {
		idx = 0
	} else {
		idx = 1
	}
	c.round = round.New(idx, c.cfg.InputDelay)
	c.shadow.State.OnRoundStart(e)
}

func (c *Controller) SetWonLastRound(won bool) {
	c.mu.Lock()
	c.wonLastRound = won
	c.mu.Unlock()
	c.shadow.State.SetWonLastRound(won)
}

// EndRound tears down the round's bookkeeping. The caller still observes
// wonLastRound set separately by the round_run_unpaused_step_cmp_retval
// trap, which always fires before round_end_entry.
func (c *Controller) EndRound(e *emulator.Emulator) {
	c.mu.Lock()
	c.round = nil
	c.mu.Unlock()
	c.shadow.State.EndRound(e)
}

// TakeError returns and clears the controller's fatal error slot, if any.
func (c *Controller) TakeError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.err
	c.err = nil
	return err
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

// PendingRXPackets exposes the round's last confirmed pair's RX bytes
// for copy_input_data_entry to write, in (local, remote) order.
func (c *Controller) PendingRXPackets() (local, remote []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.round == nil {
		return nil, nil
	}
	ip := c.round.TakeLastInput()
	if ip == nil {
		return nil, nil
	}
	return ip.Local.RX, ip.Remote.RX
}

func (c *Controller) OnCopyInputData(e *emulator.Emulator) {}

// OnMainReadJoyflags implements spec.md §4.3's five-step primary
// sequence. It runs synchronously on the emulator thread, matching
// spec.md §5: the only suspension here is the plain mutex and the
// transport send, neither of which blocks on the remote peer.
func (c *Controller) OnMainReadJoyflags(e *emulator.Emulator, localJoyflags uint16) {
	c.mu.Lock()
	r := c.round
	if r == nil {
		c.mu.Unlock()
		return
	}
	currentTick := c.m.CurrentTick(e)

	if !r.HasCommittedState() {
		c.mu.Unlock()
		primaryState, err := e.SaveState()
		if err != nil {
			c.setError(fmt.Errorf("match: commit primary state: %w", err))
			return
		}
		shadowState, err := c.shadow.AdvanceUntilFirstCommittedState()
		if err != nil {
			c.setError(fmt.Errorf("match: shadow first committed state: %w", err))
			return
		}
		c.mu.Lock()
		r.CurrentTick = currentTick
		r.SetFirstCommittedState(primaryState, shadowState)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	rx := c.m.TXPacket(e)
	local := r.AddLocalInput(currentTick, localJoyflags, rx)
	if err := c.tr.Send(netinput.Input{
		LocalTick:  local.LocalTick,
		RemoteTick: local.LocalTick,
		Joyflags:   local.Joyflags,
		RX:         local.RX,
	}); err != nil {
		c.setError(fmt.Errorf("match: transport send: %w", err))
		return
	}

	remoteTX, err := c.shadow.ApplyInput(currentTick, localJoyflags, rx)
	if err != nil {
		c.setError(fmt.Errorf("match: shadow apply input: %w", err))
		return
	}

	for _, remote := range c.inbox.Drain() {
		if remote.LocalTick != remote.RemoteTick {
			c.setError(&round.DesyncError{Context: "confirmed pair", Want: remote.LocalTick, Got: remote.RemoteTick})
			return
		}
		if err := r.PushConfirmed(netinput.Input{LocalTick: remote.LocalTick, Joyflags: remote.Joyflags, RX: remoteTX}, remote); err != nil {
			c.setError(err)
			return
		}
	}

	if err := c.fastforward(e, currentTick); err != nil {
		c.setError(err)
		return
	}
}

// fastforward runs the rollback step: a scratch emulator replays every
// confirmed pair up to currentTick from the round's committed state, and
// the resulting dirty state is loaded back into the primary.
func (c *Controller) fastforward(e *emulator.Emulator, currentTick uint32) error {
	c.mu.Lock()
	r := c.round
	if r == nil {
		c.mu.Unlock()
		return nil
	}
	pairs := r.ConfirmedUpTo(currentTick)
	committed := r.CommittedState()
	localIdx := r.LocalPlayerIndex
	c.mu.Unlock()

	if len(pairs) == 0 {
		return nil
	}

	// commitTime is the tick reached once every confirmed pair has been
	// replayed; dirtyTime additionally covers the just-sent speculative
	// local input at currentTick, per spec.md §4.3 step 4's "dirty state
	// representing where the emulator would be after also applying the
	// most recent speculative local input".
	commitTime := pairs[len(pairs)-1].Local.LocalTick + 1
	dirtyTime := currentTick
	if dirtyTime < commitTime {
		dirtyTime = commitTime
	}

	scratch := emulator.NewEmulator()
	ffState := fastforwarder.NewState(localIdx, commitTime, dirtyTime, pairs)
	ff, err := fastforwarder.New(scratch, c.h, committed, ffState)
	if err != nil {
		return fmt.Errorf("fastforward: build: %w", err)
	}
	_, dirty, err := ff.Run()
	if err != nil {
		return fmt.Errorf("fastforward: run: %w", err)
	}
	if err := e.LoadState(dirty); err != nil {
		return fmt.Errorf("fastforward: load dirty state into primary: %w", err)
	}

	c.mu.Lock()
	if len(pairs) > 0 {
		last := pairs[len(pairs)-1]
		r.SetLastInput(last)
	}
	c.mu.Unlock()
	return nil
}
