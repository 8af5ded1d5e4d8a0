package round

import (
	"testing"

	"nitro-core-dx/internal/netinput"
)

func TestNewFlipsRemotePlayerIndex(t *testing.T) {
	r := New(0, 2)
	if r.RemotePlayerIndex != 1 {
		t.Fatalf("RemotePlayerIndex = %d, want 1", r.RemotePlayerIndex)
	}

	r2 := New(1, 2)
	if r2.RemotePlayerIndex != 0 {
		t.Fatalf("RemotePlayerIndex = %d, want 0", r2.RemotePlayerIndex)
	}
}

func TestSetFirstCommittedStateFillsInputDelay(t *testing.T) {
	r := New(0, 3)
	r.CurrentTick = 10
	r.SetFirstCommittedState([]byte("primary"), []byte("shadow"))

	if !r.HasCommittedState() {
		t.Fatal("HasCommittedState() = false after SetFirstCommittedState")
	}
	if got := r.PendingLocalLen(); got != 3 {
		t.Fatalf("PendingLocalLen() = %d, want 3", got)
	}
	if string(r.CommittedState()) != "primary" {
		t.Fatalf("CommittedState() = %q, want %q", r.CommittedState(), "primary")
	}
	if string(r.ShadowCommittedState()) != "shadow" {
		t.Fatalf("ShadowCommittedState() = %q, want %q", r.ShadowCommittedState(), "shadow")
	}
}

func TestAddLocalInputSchedulesAfterInputDelay(t *testing.T) {
	r := New(0, 2)
	in := r.AddLocalInput(100, 0x0001, []byte{1, 2})
	if in.LocalTick != 102 {
		t.Fatalf("LocalTick = %d, want 102", in.LocalTick)
	}
	if in.Joyflags != 0x0001 {
		t.Fatalf("Joyflags = %#04x, want 0x0001", in.Joyflags)
	}
}

func TestPushConfirmedRejectsTickMismatch(t *testing.T) {
	r := New(0, 0)
	local := netinput.Input{LocalTick: 150}
	remote := netinput.Input{LocalTick: 151}

	err := r.PushConfirmed(local, remote)
	if err == nil {
		t.Fatal("PushConfirmed with mismatched ticks returned nil error")
	}
	de, ok := err.(*DesyncError)
	if !ok {
		t.Fatalf("error type = %T, want *DesyncError", err)
	}
	if de.Want != 150 || de.Got != 151 {
		t.Fatalf("DesyncError = %+v, want Want=150 Got=151", de)
	}
}

func TestConfirmedUpToDrainsPrefixInOrder(t *testing.T) {
	r := New(0, 0)
	for tick := uint32(0); tick < 5; tick++ {
		in := netinput.Input{LocalTick: tick}
		if err := r.PushConfirmed(in, in); err != nil {
			t.Fatalf("PushConfirmed(%d): %v", tick, err)
		}
	}

	got := r.ConfirmedUpTo(2)
	if len(got) != 3 {
		t.Fatalf("ConfirmedUpTo(2) returned %d pairs, want 3", len(got))
	}
	for i, pair := range got {
		if pair.Local.LocalTick != uint32(i) {
			t.Errorf("pair %d LocalTick = %d, want %d", i, pair.Local.LocalTick, i)
		}
	}

	rest := r.ConfirmedUpTo(10)
	if len(rest) != 2 {
		t.Fatalf("remaining ConfirmedUpTo(10) returned %d pairs, want 2", len(rest))
	}
}

func TestLastInputRoundTrip(t *testing.T) {
	r := New(0, 0)
	if got := r.TakeLastInput(); got != nil {
		t.Fatalf("TakeLastInput() on empty round = %+v, want nil", got)
	}

	pair := netinput.Pair[netinput.Input, netinput.Input]{
		Local:  netinput.Input{LocalTick: 5, RX: []byte{1}},
		Remote: netinput.Input{LocalTick: 5, RX: []byte{2}},
	}
	r.SetLastInput(pair)

	got := r.TakeLastInput()
	if got == nil || got.Local.LocalTick != 5 {
		t.Fatalf("TakeLastInput() = %+v, want LocalTick=5", got)
	}
	if got := r.TakeLastInput(); got != nil {
		t.Fatalf("TakeLastInput() after drain = %+v, want nil", got)
	}
}
