// Package replay implements the archived-match binary format of
// spec.md §6.1: a header plus a stream of confirmed input-pair records,
// little-endian throughout. A Replay is recorded from one side's
// perspective; IntoRemote flips it to the opponent's.
package replay

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the 4-byte file signature every replay begins with.
const Magic = "TOOT"

// Version is the only format version this package writes or accepts.
const Version uint8 = 1

// Record is one confirmed input pair as archived: both sides' tick,
// joyflags and RX bytes for that tick.
type Record struct {
	LocalTick     uint32
	RemoteTick    uint32
	JoyflagsLocal uint16
	JoyflagsRemote uint16
	RXLocal       []byte
	RXRemote      []byte
}

// swapped returns the same record viewed from the opposite side.
func (r Record) swapped() Record {
	return Record{
		LocalTick:      r.RemoteTick,
		RemoteTick:     r.LocalTick,
		JoyflagsLocal:  r.JoyflagsRemote,
		JoyflagsRemote: r.JoyflagsLocal,
		RXLocal:        r.RXRemote,
		RXRemote:       r.RXLocal,
	}
}

// Replay is a fully decoded archived match: the header fields plus
// every confirmed pair recorded until the stream ended.
type Replay struct {
	IsComplete      bool
	LocalPlayerIndex uint8
	LocalState      []byte
	Records         []Record
}

// Encode writes r in spec.md §6.1's binary format.
func Encode(w io.Writer, r *Replay) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(Magic); err != nil {
		return fmt.Errorf("replay: write magic: %w", err)
	}
	if err := bw.WriteByte(Version); err != nil {
		return fmt.Errorf("replay: write version: %w", err)
	}
	isComplete := byte(0)
	if r.IsComplete {
		isComplete = 1
	}
	if err := bw.WriteByte(isComplete); err != nil {
		return fmt.Errorf("replay: write is-complete: %w", err)
	}
	if err := bw.WriteByte(r.LocalPlayerIndex); err != nil {
		return fmt.Errorf("replay: write local player index: %w", err)
	}
	if err := bw.WriteByte(0); err != nil { // reserved
		return fmt.Errorf("replay: write reserved byte: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(r.LocalState))); err != nil {
		return fmt.Errorf("replay: write local state length: %w", err)
	}
	if _, err := bw.Write(r.LocalState); err != nil {
		return fmt.Errorf("replay: write local state: %w", err)
	}

	for i, rec := range r.Records {
		if err := writeRecord(bw, rec); err != nil {
			return fmt.Errorf("replay: write record %d: %w", i, err)
		}
	}

	return bw.Flush()
}

func writeRecord(w io.Writer, rec Record) error {
	if err := binary.Write(w, binary.LittleEndian, rec.LocalTick); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, rec.RemoteTick); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, rec.JoyflagsLocal); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, rec.JoyflagsRemote); err != nil {
		return err
	}
	if err := writeBytes(w, rec.RXLocal); err != nil {
		return err
	}
	return writeBytes(w, rec.RXRemote)
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// Decode reads a replay previously written by Encode.
func Decode(r io.Reader) (*Replay, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("replay: read magic: %w", err)
	}
	if !bytes.Equal(magic, []byte(Magic)) {
		return nil, fmt.Errorf("replay: bad magic %q", magic)
	}

	version, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("replay: read version: %w", err)
	}
	if version != Version {
		return nil, fmt.Errorf("replay: unsupported version %d", version)
	}

	isComplete, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("replay: read is-complete: %w", err)
	}
	localPlayerIndex, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("replay: read local player index: %w", err)
	}
	if _, err := br.ReadByte(); err != nil { // reserved
		return nil, fmt.Errorf("replay: read reserved byte: %w", err)
	}

	stateLen, err := readLen(br)
	if err != nil {
		return nil, fmt.Errorf("replay: read local state length: %w", err)
	}
	state := make([]byte, stateLen)
	if _, err := io.ReadFull(br, state); err != nil {
		return nil, fmt.Errorf("replay: read local state: %w", err)
	}

	out := &Replay{
		IsComplete:       isComplete != 0,
		LocalPlayerIndex: localPlayerIndex,
		LocalState:       state,
	}

	for {
		rec, err := readRecord(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("replay: read record %d: %w", len(out.Records), err)
		}
		out.Records = append(out.Records, rec)
	}

	return out, nil
}

func readRecord(r io.Reader) (Record, error) {
	var rec Record
	if err := binary.Read(r, binary.LittleEndian, &rec.LocalTick); err != nil {
		return Record{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.RemoteTick); err != nil {
		return Record{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.JoyflagsLocal); err != nil {
		return Record{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.JoyflagsRemote); err != nil {
		return Record{}, err
	}
	local, err := readBytes(r)
	if err != nil {
		return Record{}, err
	}
	remote, err := readBytes(r)
	if err != nil {
		return Record{}, err
	}
	rec.RXLocal = local
	rec.RXRemote = remote
	return rec, nil
}

func readLen(r io.Reader) (uint32, error) {
	var n uint32
	err := binary.Read(r, binary.LittleEndian, &n)
	return n, err
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readLen(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// IntoRemote returns r viewed from the opponent's side: every record's
// local/remote fields swap, and LocalPlayerIndex flips, per spec.md
// §6.1. LocalState and IsComplete are unchanged; the archived savestate
// is still this host's own, not derivable from the opponent's view.
func (r *Replay) IntoRemote() *Replay {
	out := &Replay{
		IsComplete:       r.IsComplete,
		LocalPlayerIndex: 1 - r.LocalPlayerIndex,
		LocalState:       r.LocalState,
		Records:          make([]Record, len(r.Records)),
	}
	for i, rec := range r.Records {
		out.Records[i] = rec.swapped()
	}
	return out
}

// XORHashInput returns the byte sequence the hash subcommand (spec.md
// §6.4) digests: local.rx XOR remote.rx for every record, concatenated
// in order. Shorter of the two RX slices is implicitly zero-extended.
func (r *Replay) XORHashInput() []byte {
	var out []byte
	for _, rec := range r.Records {
		n := len(rec.RXLocal)
		if len(rec.RXRemote) > n {
			n = len(rec.RXRemote)
		}
		x := make([]byte, n)
		for i := 0; i < n; i++ {
			var l, rr byte
			if i < len(rec.RXLocal) {
				l = rec.RXLocal[i]
			}
			if i < len(rec.RXRemote) {
				rr = rec.RXRemote[i]
			}
			x[i] = l ^ rr
		}
		out = append(out, x...)
	}
	return out
}
