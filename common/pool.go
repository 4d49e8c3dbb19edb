package common

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// sharedQueueSize bounds the task backlog of each shared pool.
const sharedQueueSize = 256

var (
	poolsMu sync.Mutex
	pools   = map[int]worker.DynamicWorkerPool{}
)

// SharedPool returns the process-wide worker pool with n workers, creating it on first use.
// Callers share the pool and must not Stop it; workers live for the life of the process.
//
// Parameters:
//   - n: the worker count, values below 1 are treated as 1
//
// Returns:
//   - worker.DynamicWorkerPool: the pool for that worker count
func SharedPool(n int) worker.DynamicWorkerPool {
	n = max(n, 1)
	poolsMu.Lock()
	defer poolsMu.Unlock()
	p, ok := pools[n]
	if !ok {
		p = worker.NewDynamicWorkerPool(n, sharedQueueSize, 1*time.Second)
		pools[n] = p
	}
	return p
}
