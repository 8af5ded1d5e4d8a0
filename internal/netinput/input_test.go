package netinput

import "testing"

func TestBakedJoyflagsSetsReservedBits(t *testing.T) {
	in := Input{Joyflags: 0x0001}
	got := in.BakedJoyflags()
	want := uint16(0x0001 | ReservedJoyflagsMask)
	if got != want {
		t.Fatalf("BakedJoyflags() = %#04x, want %#04x", got, want)
	}
}

func TestBakedJoyflagsIdempotentOnAlreadySetBits(t *testing.T) {
	in := Input{Joyflags: ReservedJoyflagsMask}
	if got := in.BakedJoyflags(); got != ReservedJoyflagsMask {
		t.Fatalf("BakedJoyflags() = %#04x, want %#04x", got, ReservedJoyflagsMask)
	}
}

func TestPairHoldsDistinctTypes(t *testing.T) {
	p := Pair[Input, uint32]{
		Local:  Input{LocalTick: 7},
		Remote: 9,
	}
	if p.Local.LocalTick != 7 {
		t.Fatalf("Local.LocalTick = %d, want 7", p.Local.LocalTick)
	}
	if p.Remote != 9 {
		t.Fatalf("Remote = %d, want 9", p.Remote)
	}
}
