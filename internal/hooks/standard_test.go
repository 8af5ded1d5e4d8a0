package hooks

import (
	"testing"

	"nitro-core-dx/internal/emulator"
)

// fakeFastforwarderFacade is the minimal FastforwarderFacade a trap-table
// test needs; only OnTickAdvance is exercised here.
type fakeFastforwarderFacade struct {
	tickAdvances int
}

func (f *fakeFastforwarderFacade) LocalPlayerIndex() uint8  { return 0 }
func (f *fakeFastforwarderFacade) RemotePlayerIndex() uint8 { return 1 }
func (f *fakeFastforwarderFacade) OnMainReadJoyflags(e *emulator.Emulator) {}
func (f *fakeFastforwarderFacade) PendingRXPackets() (local, remote []byte) { return nil, nil }
func (f *fakeFastforwarderFacade) OnCopyInputData(e *emulator.Emulator)     {}
func (f *fakeFastforwarderFacade) OnTickAdvance()                          { f.tickAdvances++ }

func TestCommonTrapsNeutralizesLinkCableInitSIO(t *testing.T) {
	h, ok := Lookup("EXAMPLE_REV_AXX")
	if !ok {
		t.Fatal("EXAMPLE_REV_AXX not registered")
	}
	m := NewMunger(h.Offsets().Mem)
	traps := h.CommonTraps(m)

	addr := h.Offsets().Traps.LinkCableInitSIOCall
	fn, ok := traps[key(addr)]
	if !ok {
		t.Fatal("no trap installed at LinkCableInitSIOCall")
	}

	e := emulator.NewEmulator()
	e.SetPC(addr.Bank, addr.Offset)
	fn(e)

	bank, offset := e.CurrentPC()
	if offset != addr.Offset+4 || bank != addr.Bank {
		t.Fatalf("PC after trap = %02x:%04x, want %02x:%04x", bank, offset, addr.Bank, addr.Offset+4)
	}
	if got := e.GetRegister(0); got != 3 {
		t.Fatalf("GPR0 = %d, want 3", got)
	}
}

func TestFastforwarderTrapsIncrementsTickOnHandleInputPostCall(t *testing.T) {
	h, ok := Lookup("EXAMPLE_REV_AXX")
	if !ok {
		t.Fatal("EXAMPLE_REV_AXX not registered")
	}
	m := NewMunger(h.Offsets().Mem)
	facade := &fakeFastforwarderFacade{}
	traps := h.FastforwarderTraps(m, facade)

	addr := h.Offsets().Traps.HandleInputPostCall
	fn, ok := traps[key(addr)]
	if !ok {
		t.Fatal("no trap installed at HandleInputPostCall")
	}

	e := emulator.NewEmulator()
	fn(e)
	fn(e)

	if facade.tickAdvances != 2 {
		t.Fatalf("tickAdvances = %d, want 2", facade.tickAdvances)
	}
}

func TestFastforwarderTrapsMainReadJoyflagsNoLongerAdvancesTick(t *testing.T) {
	h, ok := Lookup("EXAMPLE_REV_AXX")
	if !ok {
		t.Fatal("EXAMPLE_REV_AXX not registered")
	}
	m := NewMunger(h.Offsets().Mem)
	facade := &fakeFastforwarderFacade{}
	traps := h.FastforwarderTraps(m, facade)

	addr := h.Offsets().Traps.MainReadJoyflags
	fn, ok := traps[key(addr)]
	if !ok {
		t.Fatal("no trap installed at MainReadJoyflags")
	}

	e := emulator.NewEmulator()
	fn(e)

	if facade.tickAdvances != 0 {
		t.Fatalf("tickAdvances = %d after MainReadJoyflags, want 0 (tick now advances only on HandleInputPostCall)", facade.tickAdvances)
	}
}
