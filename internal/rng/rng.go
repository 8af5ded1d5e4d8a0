// Package rng implements the two deterministic random streams shared by
// the primary and shadow emulators: a private-but-derived rng1 and a
// fully shared rng2. Both use the ROM's own step function rather than
// any general-purpose PRNG, so that the same seed produces bit-identical
// sequences on both peers' hosts.
package rng

import "sync"

// Rng2Seed is the ROM-defined constant rng2 is seeded from. rng1 is
// always seeded from 0.
const Rng2Seed uint32 = 0xA338244F

// stepXOR is the fixed XOR mask applied on every step.
const stepXOR uint32 = 0x873CA9E5

// Step advances one RNG word by the ROM's native step function:
// s' = ((2*s - (s>>31) + 1) XOR 0x873CA9E5).
func Step(s uint32) uint32 {
	return ((2*s - (s >> 31) + 1)) ^ stepXOR
}

// StepN applies Step n times and returns the resulting state.
func StepN(s uint32, n int) uint32 {
	for i := 0; i < n; i++ {
		s = Step(s)
	}
	return s
}

// Shared is the fully-synced rng2 stream. It is identical on both peers
// at all times and is guarded by a plain mutex: nothing about consuming
// it ever blocks on the network.
type Shared struct {
	mu    sync.Mutex
	state uint32
}

// NewShared returns a shared stream whose state starts at Rng2Seed. It
// performs no initialization draws of its own; SetState replaces the
// state when the caller has derived one (for example with InitFromSeed).
func NewShared() *Shared {
	return &Shared{state: Rng2Seed}
}

// Next steps the shared stream by one and returns the new state.
func (s *Shared) Next() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Step(s.state)
	return s.state
}

// State returns the current state without advancing it.
func (s *Shared) State() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState overwrites the current state (used when loading a savestate
// back into sync with a munger-read value).
func (s *Shared) SetState(v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = v
}

// DrawCount consumes one step of the shared stream and folds it down to
// a count in 0..=0xFFFF, the "random count" spec.md's init procedure
// draws before iterating rng1/rng2 into their starting positions.
func (s *Shared) DrawCount() uint16 {
	return uint16(s.Next() & 0xFFFF)
}

// Candidates holds the two possible rng1 starting states computed from a
// shared seed: one for the offerer's role, one for the answerer's.
// Both peers compute both candidates and then each peer — and,
// separately, its shadow — picks whichever one matches the role it is
// playing, per spec.md §4.1's "seed rng1 and rng2 from the shared RNG;
// primary picks its role's rng1, shadow picks the opposite."
type Candidates struct {
	Offerer  uint32
	Answerer uint32
}

// InitFromSeed runs the init procedure against a shared stream seeded at
// `seed`, returning both rng1 candidates and the resulting rng2 state.
// It does not mutate any long-lived Shared instance; callers that need
// the shared stream to keep running afterward should construct it
// separately from the same seed.
func InitFromSeed(seed uint32) (Candidates, uint32) {
	shared := &Shared{state: seed}

	offererCount := shared.DrawCount()
	offerer := StepN(0, int(offererCount))

	answererCount := shared.DrawCount()
	answerer := StepN(0, int(answererCount))

	rng2Count := shared.DrawCount()
	rng2 := StepN(Rng2Seed, int(rng2Count))

	return Candidates{Offerer: offerer, Answerer: answerer}, rng2
}

// Pick returns the candidate for the given role.
func (c Candidates) Pick(isOfferer bool) uint32 {
	if isOfferer {
		return c.Offerer
	}
	return c.Answerer
}

// Opposite returns the candidate for the opposite role — what the
// shadow takes, since it simulates the opponent (spec.md's invariant:
// "The shadow's rng1 assignment is the opposite role of the primary's").
func (c Candidates) Opposite(isOfferer bool) uint32 {
	return c.Pick(!isOfferer)
}
