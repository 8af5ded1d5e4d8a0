package transport

import (
	"net"
	"testing"
	"time"

	"nitro-core-dx/internal/netinput"
)

func TestConnSendRecvRoundTrip(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	connA := NewConn(a)
	connB := NewConn(b)

	in := netinput.Input{LocalTick: 42, RemoteTick: 42, Joyflags: 0x0001, RX: []byte{1, 2, 3}}

	errc := make(chan error, 1)
	go func() { errc <- connA.Send(in) }()

	got, err := connB.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got.LocalTick != in.LocalTick || got.Joyflags != in.Joyflags || string(got.RX) != string(in.RX) {
		t.Fatalf("Recv() = %+v, want %+v", got, in)
	}
}

func TestInboxDrainPreservesOrder(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	connA := NewConn(a)
	connB := NewConn(b)

	inbox := NewInbox(connB)

	for tick := uint32(0); tick < 3; tick++ {
		if err := connA.Send(netinput.Input{LocalTick: tick}); err != nil {
			t.Fatalf("Send(%d): %v", tick, err)
		}
	}

	deadline := time.After(2 * time.Second)
	var got []netinput.Input
	for len(got) < 3 {
		select {
		case in, ok := <-inbox.In:
			if !ok {
				t.Fatal("inbox channel closed early")
			}
			got = append(got, in)
		case <-deadline:
			t.Fatalf("timed out waiting for inputs, got %d/3", len(got))
		}
	}

	for i, in := range got {
		if in.LocalTick != uint32(i) {
			t.Errorf("got[%d].LocalTick = %d, want %d", i, in.LocalTick, i)
		}
	}
}

func TestInboxSurfacesCloseAsError(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()

	connB := NewConn(b)
	inbox := NewInbox(connB)
	a.Close()

	select {
	case err := <-inbox.Errs:
		if err == nil {
			t.Fatal("Errs delivered nil error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Errs")
	}

	if err := inbox.Wait(); err != nil {
		t.Fatalf("Wait() = %v, want nil (drain goroutine never returns an error itself)", err)
	}
}
