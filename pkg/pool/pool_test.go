package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsAllSubmittedTasks(t *testing.T) {
	p := New(4)
	defer p.Shutdown()

	const n = 50
	var mu sync.Mutex
	seen := make(map[int]bool, n)
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		i := i
		go func() {
			p.Submit(func() {
				mu.Lock()
				seen[i] = true
				mu.Unlock()
				wg.Done()
			})
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}

func TestPoolShutdownStopsRunning(t *testing.T) {
	p := New(2)
	assert.True(t, p.Running())
	p.Shutdown()
	assert.False(t, p.Running())
}
