// Package hooks implements the trap-driven runtime described in
// spec.md §4.1-4.2: a ROM-title-keyed catalogue of trap sets (primary,
// shadow, fastforwarder, replayer) plus a Munger that reads and writes
// the handful of well-known memory addresses each ROM exposes for
// link-cable play (RNG state words, RX/TX packet slots, the
// is-linking flag, battle settings).
package hooks

import "nitro-core-dx/internal/emulator"

// Addr is a bank:offset address into the emulator's address space.
type Addr struct {
	Bank   uint8
	Offset uint16
}

// MemoryMap is the set of fixed, ROM-specific addresses a Munger reads
// and writes. Every field is a raw address; Munger never computes one.
type MemoryMap struct {
	RNG1State          Addr
	RNG2State          Addr
	RXSlot             [2]Addr // one slot per player index
	TXSlot             Addr
	IsLinkingFlag      Addr
	BattleSettingsFlag Addr
	CurrentTick        Addr
	PacketSize         int // R: the raw RX/TX packet width in bytes
}

// Munger is a thin, ROM-addressed memory accessor. Every operation is a
// raw read/write at a ROM-specific offset from MemoryMap; it holds no
// state of its own and is safe to share across the primary, shadow and
// fastforwarder hook sets for a given ROM.
type Munger struct {
	Mem MemoryMap
}

// NewMunger builds a Munger bound to a ROM's memory map.
func NewMunger(mem MemoryMap) *Munger {
	return &Munger{Mem: mem}
}

// SkipLogo writes over the logo/splash gate so the emulator lands on
// the title screen immediately. The exact write is ROM-defined; ROMs
// that don't need this leave the StartScreenSkip trap address zeroed and the hook
// that calls this is simply never installed.
func (m *Munger) SkipLogo(e *emulator.Emulator, addr Addr, value uint8) {
	e.WriteMemory8(addr.Bank, addr.Offset, value)
}

// ContinueFromTitleMenu writes the menu-selection byte that advances
// past the title screen without requiring button input.
func (m *Munger) ContinueFromTitleMenu(e *emulator.Emulator, addr Addr, value uint8) {
	e.WriteMemory8(addr.Bank, addr.Offset, value)
}

// OpenCommMenuFromOverworld writes the byte that opens the comm menu
// directly from the overworld, skipping the normal menu navigation.
func (m *Munger) OpenCommMenuFromOverworld(e *emulator.Emulator, addr Addr, value uint8) {
	e.WriteMemory8(addr.Bank, addr.Offset, value)
}

// StartBattleFromCommMenu writes the match type (if non-nil) and flips
// the flag the game polls to leave the comm menu and enter battle.
func (m *Munger) StartBattleFromCommMenu(e *emulator.Emulator, startAddr Addr, matchType *uint16) {
	if matchType != nil {
		e.WriteMemory16(m.Mem.BattleSettingsFlag.Bank, m.Mem.BattleSettingsFlag.Offset, *matchType)
	}
	e.WriteMemory8(startAddr.Bank, startAddr.Offset, 1)
}

// SetRNG1State writes rng1's 32-bit state, little-endian, across two
// consecutive halfwords.
func (m *Munger) SetRNG1State(e *emulator.Emulator, v uint32) {
	writeU32(e, m.Mem.RNG1State, v)
}

// GetRNG1State reads rng1's current 32-bit state.
func (m *Munger) GetRNG1State(e *emulator.Emulator) uint32 {
	return readU32(e, m.Mem.RNG1State)
}

// SetRNG2State writes rng2's 32-bit state.
func (m *Munger) SetRNG2State(e *emulator.Emulator, v uint32) {
	writeU32(e, m.Mem.RNG2State, v)
}

// GetRNG2State reads rng2's current 32-bit state.
func (m *Munger) GetRNG2State(e *emulator.Emulator) uint32 {
	return readU32(e, m.Mem.RNG2State)
}

// SetRXPacket writes a player's received-packet bytes into its fixed
// slot, ahead of the game's own copy-input routine reading them.
func (m *Munger) SetRXPacket(e *emulator.Emulator, playerIndex uint8, payload []byte) {
	slot := m.Mem.RXSlot[playerIndex&1]
	e.WriteMemoryRange(slot.Bank, slot.Offset, payload)
}

// TXPacket reads the local transmitted-packet bytes out of their slot.
func (m *Munger) TXPacket(e *emulator.Emulator) []byte {
	return e.ReadMemoryRange(m.Mem.TXSlot.Bank, m.Mem.TXSlot.Offset, m.Mem.PacketSize)
}

// IsLinking reports whether the game currently believes it's in a
// link-cable session.
func (m *Munger) IsLinking(e *emulator.Emulator) bool {
	return e.ReadMemory8(m.Mem.IsLinkingFlag.Bank, m.Mem.IsLinkingFlag.Offset) != 0
}

// SetLinkBattleSettingsAndBackground writes the packed battle-settings
// word (match type plus background selection bits).
func (m *Munger) SetLinkBattleSettingsAndBackground(e *emulator.Emulator, settings uint16) {
	e.WriteMemory16(m.Mem.BattleSettingsFlag.Bank, m.Mem.BattleSettingsFlag.Offset, settings)
}

// CurrentTick reads the game's own tick counter.
func (m *Munger) CurrentTick(e *emulator.Emulator) uint32 {
	return readU32(e, m.Mem.CurrentTick)
}

func readU32(e *emulator.Emulator, addr Addr) uint32 {
	lo := e.ReadMemory16(addr.Bank, addr.Offset)
	hi := e.ReadMemory16(addr.Bank, addr.Offset+2)
	return uint32(lo) | uint32(hi)<<16
}

func writeU32(e *emulator.Emulator, addr Addr, v uint32) {
	e.WriteMemory16(addr.Bank, addr.Offset, uint16(v))
	e.WriteMemory16(addr.Bank, addr.Offset+2, uint16(v>>16))
}
