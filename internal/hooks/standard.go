package hooks

import (
	"math/rand"

	"nitro-core-dx/internal/emulator"
)

// battleBackgrounds is the lookup table the ROM itself uses to pick a
// battle background byte; the shared RNG draws an index into it.
var battleBackgrounds = []uint16{
	0x00, 0x01, 0x01, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e,
	0x0f, 0x10, 0x11, 0x11, 0x13, 0x13,
}

// nameChars is the ROM's fixed glyph table used to re-encode an
// opponent's display name into its own 6-bit character set.
const nameChars = " 0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ*abcdefghijklmnopqrstuvwxyz"

const (
	maxOpponentNameLen = 9
	opponentNameEOS    = 0xe6
)

// randomBattleSettingsAndBackground draws the packed battle-settings
// word the same way the ROM's own comm-menu-init-battle routine would.
// The draw is intentionally local and unsynced — the background is
// cosmetic only, so each side is free to land on a different one. The
// package-level rand functions are safe for concurrent use across the
// primary, shadow and fastforwarder emulators sharing one Hooks value.
func randomBattleSettingsAndBackground(matchType uint8) uint16 {
	var lo uint16
	switch matchType {
	case 0:
		lo = uint16(rand.Intn(0x44))
	case 1:
		lo = uint16(rand.Intn(0x60))
	case 2:
		lo = uint16(rand.Intn(0x44)) + 0x60
	default:
		lo = 0
	}
	hi := battleBackgrounds[rand.Intn(len(battleBackgrounds))]
	return hi<<8 | lo
}

// standardSet is a generic trap-set implementation for ROMs that follow
// the common comm-menu / round-trap layout: one fixed set of addresses,
// a Munger bound to them, and the rng1/rng2 seeding dance every such ROM
// performs at comm-menu-init-return. New titles are onboarded by adding
// an Offsets value to the Registry, not by writing a new Hooks type.
type standardSet struct {
	offsets Offsets
}

// NewStandardHooks builds a Hooks implementation from a concrete ROM's
// offsets and memory map.
func NewStandardHooks(offsets Offsets) Hooks {
	return &standardSet{offsets: offsets}
}

func (s *standardSet) Offsets() Offsets { return s.offsets }

func (s *standardSet) PlaceholderRX() []byte {
	return make([]byte, s.offsets.Mem.PacketSize)
}

func (s *standardSet) CurrentTick(e *emulator.Emulator) uint32 {
	m := NewMunger(s.offsets.Mem)
	return m.CurrentTick(e)
}

func (s *standardSet) PrepareForFastforward(e *emulator.Emulator) {
	addr := s.offsets.Traps.MainReadJoyflags
	e.SetPC(addr.Bank, addr.Offset)
}

func (s *standardSet) ReplaceOpponentName(e *emulator.Emulator, name string) {
	addr := s.offsets.Traps.OpponentName
	if (addr == Addr{}) || name == "" {
		return
	}
	buf := make([]byte, 0, maxOpponentNameLen+1)
	for _, c := range name {
		if len(buf) == maxOpponentNameLen {
			break
		}
		idx := -1
		for i, nc := range nameChars {
			if nc == c {
				idx = i
				break
			}
		}
		if idx < 0 {
			buf = append(buf, 0)
		} else {
			buf = append(buf, byte(idx))
		}
	}
	buf = append(buf, opponentNameEOS)
	e.WriteMemoryRange(addr.Bank, addr.Offset, buf)
}

// CommonTraps installs the handful of traps every role (primary, shadow,
// fastforwarder, replayer) needs identically: logo skip, title-menu
// continue, and jumping straight to the comm menu from the overworld.
func (s *standardSet) CommonTraps(m *Munger) map[emulator.TrapKey]emulator.TrapFunc {
	t := s.offsets.Traps
	traps := map[emulator.TrapKey]emulator.TrapFunc{}
	if t.StartScreenSkip != (Addr{}) {
		traps[key(t.StartScreenSkip)] = func(e *emulator.Emulator) {
			m.SkipLogo(e, t.StartScreenSkip, 1)
		}
	}
	if t.TitleMenuContinue != (Addr{}) {
		traps[key(t.TitleMenuContinue)] = func(e *emulator.Emulator) {
			m.ContinueFromTitleMenu(e, t.TitleMenuContinue, 1)
		}
	}
	if t.OverworldCommMenuOpen != (Addr{}) {
		traps[key(t.OverworldCommMenuOpen)] = func(e *emulator.Emulator) {
			m.OpenCommMenuFromOverworld(e, t.OverworldCommMenuOpen, 1)
		}
	}
	if t.LinkCableInitSIOCall != (Addr{}) {
		traps[key(t.LinkCableInitSIOCall)] = func(e *emulator.Emulator) {
			e.AdvancePC(4)
			e.SetRegister(0, 3)
		}
	}
	return traps
}

// PrimaryTraps builds the primary's trap table. It drives the match
// controller facade through every trap the original link-cable ROM
// exposes: RNG seeding, round lifecycle, player-index reporting, input
// injection, and the input-collection loop at main_read_joyflags.
func (s *standardSet) PrimaryTraps(m *Munger, joyflags JoyflagsSource, facade PrimaryFacade) map[emulator.TrapKey]emulator.TrapFunc {
	t := s.offsets.Traps
	traps := map[emulator.TrapKey]emulator.TrapFunc{}

	traps[key(t.CommMenuInitReturn)] = func(e *emulator.Emulator) {
		matchType := facade.MatchType()
		m.StartBattleFromCommMenu(e, t.RoundStartRet, &matchType)
		m.SetRNG1State(e, facade.RNG1State())
		m.SetRNG2State(e, facade.RNG2State())
	}

	traps[key(t.RoundRunUnpausedStepCmpRetval)] = func(e *emulator.Emulator) {
		switch e.GetRegister(0) {
		case 1:
			facade.SetWonLastRound(true)
		case 2:
			facade.SetWonLastRound(false)
		}
	}

	traps[key(t.RoundStartRet)] = func(e *emulator.Emulator) {
		facade.OnRoundStart(e)
	}

	traps[key(t.RoundEndEntry)] = func(e *emulator.Emulator) {
		facade.EndRound(e)
	}

	traps[key(t.BattleIsP2)] = func(e *emulator.Emulator) {
		e.SetRegister(0, uint16(facade.LocalPlayerIndex()))
	}

	traps[key(t.LinkIsP2)] = func(e *emulator.Emulator) {
		e.SetRegister(0, uint16(facade.LocalPlayerIndex()))
	}

	if t.CommMenuInitBattleEntry != (Addr{}) {
		traps[key(t.CommMenuInitBattleEntry)] = func(e *emulator.Emulator) {
			m.SetLinkBattleSettingsAndBackground(e, randomBattleSettingsAndBackground(uint8(facade.MatchType())))
		}
	}

	traps[key(t.CopyInputDataEntry)] = func(e *emulator.Emulator) {
		local, remote := facade.PendingRXPackets()
		if local == nil && remote == nil {
			return
		}
		m.SetRXPacket(e, facade.LocalPlayerIndex(), local)
		m.SetRXPacket(e, facade.RemotePlayerIndex(), remote)
		facade.OnCopyInputData(e)
	}

	traps[key(t.HandleInputSendAndReceiveCall)] = func(e *emulator.Emulator) {
		e.AdvancePC(4)
	}

	traps[key(t.MainReadJoyflags)] = func(e *emulator.Emulator) {
		facade.OnMainReadJoyflags(e, joyflags.Load())
	}

	traps[key(t.HandleInputPostCall)] = func(e *emulator.Emulator) {
		facade.OnTickAdvance()
	}

	return traps
}

// ShadowTraps builds the shadow's trap table. It mirrors PrimaryTraps but
// reverses every role-dependent piece: the shadow's rng1 is the opposite
// candidate, its reported player index is the remote one, and it injects
// the remote's confirmed input rather than collecting local input.
func (s *standardSet) ShadowTraps(m *Munger, facade ShadowFacade) map[emulator.TrapKey]emulator.TrapFunc {
	t := s.offsets.Traps
	traps := map[emulator.TrapKey]emulator.TrapFunc{}

	traps[key(t.CommMenuInitReturn)] = func(e *emulator.Emulator) {
		matchType := facade.MatchType()
		m.StartBattleFromCommMenu(e, t.RoundStartRet, &matchType)
		m.SetRNG1State(e, facade.RNG1State())
		m.SetRNG2State(e, facade.RNG2State())
	}

	traps[key(t.RoundRunUnpausedStepCmpRetval)] = func(e *emulator.Emulator) {
		switch e.GetRegister(0) {
		case 1:
			facade.SetWonLastRound(false)
		case 2:
			facade.SetWonLastRound(true)
		}
	}

	traps[key(t.RoundStartRet)] = func(e *emulator.Emulator) {
		facade.OnRoundStart(e)
	}

	traps[key(t.RoundEndEntry)] = func(e *emulator.Emulator) {
		facade.EndRound(e)
	}

	traps[key(t.BattleIsP2)] = func(e *emulator.Emulator) {
		e.SetRegister(0, uint16(facade.RemotePlayerIndex()))
	}

	traps[key(t.LinkIsP2)] = func(e *emulator.Emulator) {
		e.SetRegister(0, uint16(facade.RemotePlayerIndex()))
	}

	if t.CommMenuInitBattleEntry != (Addr{}) {
		traps[key(t.CommMenuInitBattleEntry)] = func(e *emulator.Emulator) {
			m.SetLinkBattleSettingsAndBackground(e, randomBattleSettingsAndBackground(uint8(facade.MatchType())))
		}
	}

	traps[key(t.CopyInputDataEntry)] = func(e *emulator.Emulator) {
		local, remote := facade.PendingRXPackets()
		if local == nil && remote == nil {
			return
		}
		m.SetRXPacket(e, facade.LocalPlayerIndex(), local)
		m.SetRXPacket(e, facade.RemotePlayerIndex(), remote)
		facade.OnCopyInputData(e)
	}

	traps[key(t.HandleInputSendAndReceiveCall)] = func(e *emulator.Emulator) {
		e.AdvancePC(4)
	}

	traps[key(t.MainReadJoyflags)] = func(e *emulator.Emulator) {
		facade.OnMainReadJoyflags(e)
	}

	traps[key(t.HandleInputPostCall)] = func(e *emulator.Emulator) {
		facade.OnTickAdvance()
	}

	return traps
}

// FastforwarderTraps builds the scratch fastforwarder's trap table: it
// reports a fixed player index and drives its input queue from main_read_joyflags/copy_input_data_entry
// exactly like the shadow, without any round-lifecycle bookkeeping.
func (s *standardSet) FastforwarderTraps(m *Munger, facade FastforwarderFacade) map[emulator.TrapKey]emulator.TrapFunc {
	t := s.offsets.Traps
	traps := map[emulator.TrapKey]emulator.TrapFunc{}

	traps[key(t.BattleIsP2)] = func(e *emulator.Emulator) {
		e.SetRegister(0, uint16(facade.LocalPlayerIndex()))
	}

	traps[key(t.LinkIsP2)] = func(e *emulator.Emulator) {
		e.SetRegister(0, uint16(facade.LocalPlayerIndex()))
	}

	traps[key(t.HandleInputSendAndReceiveCall)] = func(e *emulator.Emulator) {
		e.AdvancePC(4)
	}

	traps[key(t.CopyInputDataEntry)] = func(e *emulator.Emulator) {
		local, remote := facade.PendingRXPackets()
		if local == nil && remote == nil {
			return
		}
		m.SetRXPacket(e, facade.LocalPlayerIndex(), local)
		m.SetRXPacket(e, facade.RemotePlayerIndex(), remote)
		facade.OnCopyInputData(e)
	}

	traps[key(t.MainReadJoyflags)] = func(e *emulator.Emulator) {
		facade.OnMainReadJoyflags(e)
	}

	traps[key(t.HandleInputPostCall)] = func(e *emulator.Emulator) {
		facade.OnTickAdvance()
	}

	return traps
}

// ReplayerTraps builds the archived-match replayer's trap table. It is
// identical in shape to FastforwarderTraps: the replayer is, mechanically,
// a fastforwarder that never runs out of confirmed pairs until the
// recording itself ends.
func (s *standardSet) ReplayerTraps(m *Munger, facade ReplayerFacade) map[emulator.TrapKey]emulator.TrapFunc {
	t := s.offsets.Traps
	traps := map[emulator.TrapKey]emulator.TrapFunc{}

	traps[key(t.BattleIsP2)] = func(e *emulator.Emulator) {
		e.SetRegister(0, uint16(facade.LocalPlayerIndex()))
	}

	traps[key(t.LinkIsP2)] = func(e *emulator.Emulator) {
		e.SetRegister(0, uint16(facade.LocalPlayerIndex()))
	}

	traps[key(t.HandleInputSendAndReceiveCall)] = func(e *emulator.Emulator) {
		e.AdvancePC(4)
	}

	traps[key(t.CopyInputDataEntry)] = func(e *emulator.Emulator) {
		local, remote := facade.PendingRXPackets()
		if local == nil && remote == nil {
			return
		}
		m.SetRXPacket(e, facade.LocalPlayerIndex(), local)
		m.SetRXPacket(e, facade.RemotePlayerIndex(), remote)
		facade.OnCopyInputData(e)
	}

	traps[key(t.MainReadJoyflags)] = func(e *emulator.Emulator) {
		facade.OnMainReadJoyflags(e)
	}

	traps[key(t.HandleInputPostCall)] = func(e *emulator.Emulator) {
		facade.OnTickAdvance()
	}

	return traps
}
