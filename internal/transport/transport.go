// Package transport provides the in-match carrier spec.md §6.3 requires:
// an in-order, reliable delivery of one Input per unit, with inputs
// observed monotonically in local_tick by the receiver. The wire format
// is a length-prefixed gob encoding of netinput.Input; any net.Conn
// (TCP, or an in-memory net.Pipe for tests) can carry it.
package transport

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"nitro-core-dx/internal/netinput"
)

// Transport is what a round needs from the network: send the local
// input for one tick, and receive the matching stream of remote inputs.
// Inputs arrive in the order they were sent; a gap or reordering is a
// caller-detected fatal desync, not something Transport itself resolves.
type Transport interface {
	Send(in netinput.Input) error
	Recv() (netinput.Input, error)
	Close() error
}

// Conn wraps a net.Conn with length-prefixed gob framing in both
// directions and serializes writes, since Send may be called from the
// emulator thread while a background goroutine drains Recv.
type Conn struct {
	conn net.Conn
	r    *bufio.Reader
	dec  *gob.Decoder

	writeMu sync.Mutex
	enc     *gob.Encoder

	closeOnce sync.Once
}

// NewConn adapts an established connection (already past any handshake)
// into a Transport.
func NewConn(c net.Conn) *Conn {
	r := bufio.NewReader(c)
	return &Conn{
		conn: c,
		r:    r,
		dec:  gob.NewDecoder(r),
		enc:  gob.NewEncoder(c),
	}
}

// Send frames and writes one Input. Safe for concurrent use with Recv
// and with other Sends; writeMu serializes the writes.
func (c *Conn) Send(in netinput.Input) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.enc.Encode(&in)
}

// Recv blocks for the next framed Input. gob's own stream framing
// handles message boundaries; one decoder lives for the whole connection
// because gob sends type information only once per stream.
func (c *Conn) Recv() (netinput.Input, error) {
	var in netinput.Input
	if err := c.dec.Decode(&in); err != nil {
		return netinput.Input{}, err
	}
	return in, nil
}

// Close tears down the underlying connection exactly once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// Inbox buffers a Transport's Recv stream on a dedicated goroutine into a
// channel, so hook callbacks can poll for "zero or more newly arrived
// inputs" (spec.md §4.3 step 3) without blocking on the network
// themselves. Errors (including io.EOF on a clean remote close) are
// delivered once on Errs and terminate the goroutine.
type Inbox struct {
	In   <-chan netinput.Input
	Errs <-chan error

	group *errgroup.Group
}

// NewInbox starts draining t in the background.
func NewInbox(t Transport) *Inbox {
	in := make(chan netinput.Input, 64)
	errs := make(chan error, 1)
	g := new(errgroup.Group)
	g.Go(func() error {
		defer close(in)
		for {
			input, err := t.Recv()
			if err != nil {
				if err == io.EOF {
					errs <- fmt.Errorf("transport: remote closed: %w", err)
				} else {
					errs <- fmt.Errorf("transport: recv: %w", err)
				}
				return nil
			}
			in <- input
		}
	})
	return &Inbox{In: in, Errs: errs, group: g}
}

// Wait blocks until the drain goroutine has exited (always after Errs
// has received its one terminal error).
func (ib *Inbox) Wait() error {
	return ib.group.Wait()
}

// Drain returns every input currently buffered in the channel without
// blocking, preserving arrival order.
func (ib *Inbox) Drain() []netinput.Input {
	var out []netinput.Input
	for {
		select {
		case in, ok := <-ib.In:
			if !ok {
				return out
			}
			out = append(out, in)
		default:
			return out
		}
	}
}
