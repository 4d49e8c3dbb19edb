package renderer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateAllowsOneSlot(t *testing.T) {
	g := NewFrameGate()
	slot, ok := g.TryAcquire()
	require.True(t, ok)
	assert.Equal(t, 1, g.InFlight())

	_, ok = g.TryAcquire()
	assert.False(t, ok)

	slot.Release()
	slot.Release()
	assert.Zero(t, g.InFlight())

	_, ok = g.TryAcquire()
	assert.True(t, ok)
}

func TestSlotHandOff(t *testing.T) {
	g := NewFrameGate()
	slot, _ := g.TryAcquire()
	done := slot.HandOff()

	slot.Release()
	assert.Equal(t, 1, g.InFlight())

	done()
	done()
	assert.Zero(t, g.InFlight())
}

func TestAcquireWaitsForRelease(t *testing.T) {
	g := NewFrameGate()
	slot, _ := g.TryAcquire()
	done := slot.HandOff()

	go func() {
		time.Sleep(20 * time.Millisecond)
		done()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	next, err := g.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, g.InFlight())
	next.Release()
}

func TestGateNeverExceedsOne(t *testing.T) {
	g := NewFrameGate()
	var wg sync.WaitGroup
	var mu sync.Mutex
	maxSeen := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				slot, err := g.Acquire(context.Background())
				if err != nil {
					return
				}
				mu.Lock()
				maxSeen = max(maxSeen, g.InFlight())
				mu.Unlock()
				slot.Release()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, g.InFlight())
}
