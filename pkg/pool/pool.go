// Package pool implements the fixed-size worker pool that every protocol
// engine in pkg/engine uses to run transaction bodies concurrently. It is
// grounded on pkg/raft's goroutine-fan-out idiom (candidate() spawning one
// goroutine per peer and collecting results over a channel) and on
// pkg/common's ProtectedBool for a race-free running flag.
package pool

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/txnlab/ccproc/pkg/common"
)

// Task is a unit of work submitted to the pool.
type Task func()

// Pool is a fixed-size set of worker goroutines pulling Tasks off a shared
// channel. It has no notion of transactions or protocols: engine.Processor
// uses it purely to bound the number of concurrently-executing txn bodies.
type Pool struct {
	tasks   chan Task
	wg      sync.WaitGroup
	running common.ProtectedBool
}

// New starts a Pool with workerCount goroutines draining an unbuffered task
// channel. workerCount must be positive.
func New(workerCount int) *Pool {
	p := &Pool{tasks: make(chan Task)}
	p.running.Set(true)

	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker(i)
	}
	log.WithFields(log.Fields{"workers": workerCount}).Info("pool::pool::New; started")
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
	log.WithFields(log.Fields{"worker": id}).Debug("pool::pool::worker; exiting")
}

// Submit blocks until a worker picks up task. Submit must not be called
// after Shutdown.
func (p *Pool) Submit(task Task) {
	p.tasks <- task
}

// Shutdown closes the task channel and waits for every worker to drain and
// exit. It must be called at most once.
func (p *Pool) Shutdown() {
	p.running.Set(false)
	close(p.tasks)
	p.wg.Wait()
	log.Info("pool::pool::Shutdown; all workers exited")
}

// Running reports whether the pool is still running, i.e. Shutdown has
// not been called.
func (p *Pool) Running() bool {
	return p.running.Get()
}
