package hooks

import "nitro-core-dx/internal/emulator"

// TrapAddrs names the program-counter addresses the three trap sets
// (primary, shadow, fastforwarder) and the replayer's trap set are
// built around. Not every ROM uses every address — round-end handling
// in particular is pluggable per spec.md §9: a given ROM's hook set
// registers whichever of RoundEndEntry / RoundRunUnpausedStepCmpRetval
// it actually uses.
type TrapAddrs struct {
	StartScreenSkip               Addr
	TitleMenuContinue             Addr
	OverworldCommMenuOpen         Addr
	CommMenuInitReturn            Addr
	LinkCableInitSIOCall          Addr
	MainReadJoyflags              Addr
	HandleInputSendAndReceiveCall Addr
	CopyInputDataEntry            Addr
	BattleIsP2                    Addr
	LinkIsP2                      Addr
	RoundStartRet                 Addr
	RoundEndEntry                 Addr
	RoundRunUnpausedStepCmpRetval Addr
	HandleInputPostCall           Addr
	CommMenuInitBattleEntry       Addr
	OpponentName                  Addr
}

// Offsets bundles everything a hook set needs for one ROM: its trap
// addresses, its memory map, and the game title that keys it in the
// Registry.
type Offsets struct {
	GameTitle string
	Traps     TrapAddrs
	Mem       MemoryMap
}

// JoyflagsSource is the process-wide atomic the UI input thread writes
// and the primary's main_read_joyflags trap reads. Relaxed ordering is
// sufficient per spec.md §5 (single-writer, single-reader).
type JoyflagsSource interface {
	Load() uint16
}

// RNGFacade is the subset common to the primary and the shadow: both
// seed rng1/rng2 at comm-menu-init-return, each picking the rng1
// candidate for its own role (spec.md §3, §4.1).
type RNGFacade interface {
	RNG1State() uint32
	RNG2State() uint32
	MatchType() uint16
}

// PrimaryFacade is how the primary's trap set reaches back into the
// match controller. Implemented by internal/match.Controller.
type PrimaryFacade interface {
	RNGFacade
	LocalPlayerIndex() uint8
	RemotePlayerIndex() uint8
	OnMainReadJoyflags(e *emulator.Emulator, localJoyflags uint16)
	PendingRXPackets() (local, remote []byte)
	OnCopyInputData(e *emulator.Emulator)
	OnRoundStart(e *emulator.Emulator)
	SetWonLastRound(won bool)
	EndRound(e *emulator.Emulator)
	OnTickAdvance()
}

// ShadowFacade is how the shadow's trap set reaches into
// internal/shadow.Shadow.
type ShadowFacade interface {
	RNGFacade
	LocalPlayerIndex() uint8
	RemotePlayerIndex() uint8
	OnMainReadJoyflags(e *emulator.Emulator)
	PendingRXPackets() (local, remote []byte)
	OnCopyInputData(e *emulator.Emulator)
	OnRoundStart(e *emulator.Emulator)
	SetWonLastRound(won bool)
	EndRound(e *emulator.Emulator)
	OnTickAdvance()
}

// FastforwarderFacade is how the fastforwarder's trap set reaches into
// internal/fastforwarder.Fastforwarder.
type FastforwarderFacade interface {
	LocalPlayerIndex() uint8
	RemotePlayerIndex() uint8
	OnMainReadJoyflags(e *emulator.Emulator)
	PendingRXPackets() (local, remote []byte)
	OnCopyInputData(e *emulator.Emulator)
	OnTickAdvance()
}

// ReplayerFacade is how the replayer's trap set reaches into
// internal/replayer.Replayer.
type ReplayerFacade interface {
	LocalPlayerIndex() uint8
	RemotePlayerIndex() uint8
	OnMainReadJoyflags(e *emulator.Emulator)
	PendingRXPackets() (local, remote []byte)
	OnCopyInputData(e *emulator.Emulator)
	OnTickAdvance()
}

// Hooks is the capability set a ROM's hook catalogue entry exposes.
// Every trap-set method returns a complete {program counter -> callback}
// table ready to hand to Emulator.InstallTraps.
type Hooks interface {
	CommonTraps(m *Munger) map[emulator.TrapKey]emulator.TrapFunc
	PrimaryTraps(m *Munger, joyflags JoyflagsSource, facade PrimaryFacade) map[emulator.TrapKey]emulator.TrapFunc
	ShadowTraps(m *Munger, facade ShadowFacade) map[emulator.TrapKey]emulator.TrapFunc
	FastforwarderTraps(m *Munger, facade FastforwarderFacade) map[emulator.TrapKey]emulator.TrapFunc
	ReplayerTraps(m *Munger, facade ReplayerFacade) map[emulator.TrapKey]emulator.TrapFunc
	PlaceholderRX() []byte
	PrepareForFastforward(e *emulator.Emulator)
	ReplaceOpponentName(e *emulator.Emulator, name string)
	CurrentTick(e *emulator.Emulator) uint32
	Offsets() Offsets
}

func key(a Addr) emulator.TrapKey {
	return emulator.TrapKey{Bank: a.Bank, Offset: a.Offset}
}
