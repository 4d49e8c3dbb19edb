package renderer

import (
	"context"
	"sync"
	"sync/atomic"
)

// FrameGate bounds the number of frames in flight on the GPU to one.
type FrameGate interface {
	// TryAcquire takes the slot if it is free.
	//
	// Returns:
	//   - *Slot: the acquired slot, nil if busy
	//   - bool: true if acquired
	TryAcquire() (*Slot, bool)

	// Acquire blocks until the slot is free or ctx is done.
	//
	// Parameters:
	//   - ctx: cancels the wait
	//
	// Returns:
	//   - *Slot: the acquired slot
	//   - error: ctx.Err() if the wait was cancelled
	Acquire(ctx context.Context) (*Slot, error)

	// InFlight returns the number of held slots, 0 or 1.
	//
	// Returns:
	//   - int: held slot count
	InFlight() int
}

type frameGate struct {
	slots    chan struct{}
	inFlight atomic.Int32
}

var _ FrameGate = &frameGate{}

// NewFrameGate creates a gate with one free slot.
//
// Returns:
//   - FrameGate: the gate
func NewFrameGate() FrameGate {
	g := &frameGate{slots: make(chan struct{}, 1)}
	g.slots <- struct{}{}
	return g
}

func (g *frameGate) TryAcquire() (*Slot, bool) {
	select {
	case <-g.slots:
		return g.newSlot(), true
	default:
		return nil, false
	}
}

func (g *frameGate) Acquire(ctx context.Context) (*Slot, error) {
	select {
	case <-g.slots:
		return g.newSlot(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *frameGate) InFlight() int {
	return int(g.inFlight.Load())
}

func (g *frameGate) newSlot() *Slot {
	g.inFlight.Add(1)
	return &Slot{gate: g, once: &sync.Once{}}
}

func (g *frameGate) put() {
	g.inFlight.Add(-1)
	g.slots <- struct{}{}
}

// Slot is a held frame gate slot. It is returned exactly once, either by Release or by the
// function HandOff returns.
type Slot struct {
	gate   *frameGate
	once   *sync.Once
	handed atomic.Bool
}

// Release returns the slot unless ownership was handed off. Safe to call more than once.
func (s *Slot) Release() {
	if s.handed.Load() {
		return
	}
	s.release()
}

// HandOff transfers ownership to the returned function, typically a GPU completion callback.
// Release becomes a no-op.
//
// Returns:
//   - func(): returns the slot when called
func (s *Slot) HandOff() func() {
	s.handed.Store(true)
	return s.release
}

func (s *Slot) release() {
	s.once.Do(s.gate.put)
}
