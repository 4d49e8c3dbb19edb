package common

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/stretchr/testify/assert"
)

func TestSharedPoolReusedPerSize(t *testing.T) {
	a := SharedPool(3)
	assert.Same(t, a, SharedPool(3))
	assert.NotSame(t, a, SharedPool(5))
	assert.Same(t, SharedPool(1), SharedPool(0))
	assert.Equal(t, 3, a.GetMaxWorkers())
}

func TestSharedPoolRunsTasks(t *testing.T) {
	p := SharedPool(2)
	var wg sync.WaitGroup
	var done atomic.Int32
	for i := range 20 {
		wg.Add(1)
		p.SubmitTask(worker.Task{ID: i, Do: func() (any, error) {
			defer wg.Done()
			done.Add(1)
			return nil, nil
		}})
	}
	wg.Wait()
	assert.Equal(t, int32(20), done.Load())
}
