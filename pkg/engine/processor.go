// Package engine implements the scheduler and the nine concurrency-control
// protocol engines that drive it, grounded on original_source's
// TxnProcessor and on the teacher repo's pkg/raft single-dispatcher-goroutine
// idiom.
package engine

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/txnlab/ccproc/internal/errs"
	"github.com/txnlab/ccproc/pkg/common"
	"github.com/txnlab/ccproc/pkg/lock"
	"github.com/txnlab/ccproc/pkg/pool"
	"github.com/txnlab/ccproc/pkg/storage"
	"github.com/txnlab/ccproc/pkg/txn"
)

// dispatchIdleSleep bounds the busy-wait between empty queue polls, the Go
// analogue of the original's usleep(1) spin in GetTxnResult.
const dispatchIdleSleep = time.Millisecond

// Processor is a transaction processor running one selected concurrency
// control protocol. It owns storage, an optional lock manager, a worker
// pool and the queues connecting them, exactly the five components
// described for the core.
type Processor struct {
	mode     CCMode
	keyRange uint64

	sv *storage.SingleVersion
	mv *storage.MultiVersion
	lm lock.Manager

	pool *pool.Pool

	incoming  *txnQueue
	completed *txnQueue
	results   *txnQueue

	// ready is touched only by the dispatcher goroutine: appended to
	// directly during admission and via lock manager onReady callbacks
	// (which fire synchronously from Release, itself only ever called by
	// the dispatcher), and drained at the top of every dispatch loop.
	ready []*txn.Txn

	idMu   sync.Mutex
	nextID uint64

	committedMu   sync.RWMutex
	committedTxns []*txn.Txn
	activeMu      sync.Mutex
	activeSet     map[*txn.Txn]struct{}

	stopped common.ProtectedBool
	done    chan struct{}
}

// NewProcessor constructs and starts a Processor running the given mode.
// It returns an error if mode is not one of the nine recognized values.
func NewProcessor(mode CCMode, opts ...Option) (*Processor, error) {
	if !mode.valid() {
		return nil, errs.NewUnknownModeError("engine: unrecognized CCMode")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Processor{
		mode:      mode,
		keyRange:  cfg.keyRange,
		pool:      pool.New(cfg.workerCount),
		incoming:  newTxnQueue(),
		completed: newTxnQueue(),
		results:   newTxnQueue(),
		activeSet: make(map[*txn.Txn]struct{}),
		done:      make(chan struct{}),
	}
	p.stopped.Set(false)

	onReady := func(t *txn.Txn) { p.ready = append(p.ready, t) }
	switch mode {
	case LockingA:
		p.sv = storage.NewSingleVersion(cfg.keyRange)
		p.lm = lock.NewExclusiveLockManager(onReady)
	case LockingB:
		p.sv = storage.NewSingleVersion(cfg.keyRange)
		p.lm = lock.NewSharedExclusiveLockManager(onReady)
	case MVCCTwoPL:
		p.mv = storage.NewMultiVersion(cfg.keyRange)
		p.lm = lock.NewSharedExclusiveLockManager(onReady)
	case MVCCTO:
		p.mv = storage.NewMultiVersion(cfg.keyRange)
	default:
		// Serial and every OCC variant run against single-version storage.
		p.sv = storage.NewSingleVersion(cfg.keyRange)
	}

	log.WithFields(log.Fields{"mode": mode.String(), "keyRange": cfg.keyRange, "workers": cfg.workerCount}).
		Info("engine::processor::NewProcessor; starting")

	go p.run()
	return p, nil
}

// run is the tagged-variant dispatch chosen once at construction: exactly
// one of these scheduling loops executes for the lifetime of a Processor.
func (p *Processor) run() {
	switch p.mode {
	case Serial:
		p.runSerial()
	case LockingA, LockingB, MVCCTwoPL:
		p.runLocking()
	case OCCSerialForward, OCCSerialBackward:
		p.runOCCSerial()
	case OCCParallelForward, OCCParallelBackward:
		p.runOCCParallel()
	case MVCCTO:
		p.runMVCCTOLoop()
	}
	close(p.done)
}

// Submit assigns txn a strictly increasing id and admits it to the
// processor, transferring ownership to the core. A transaction whose
// read/write sets reference a key outside the configured range is
// rejected: it is assigned an id, marked Aborted without ever reaching
// an engine, and handed straight to the result queue, since the public
// contract has no separate error channel for admission-time rejection.
func (p *Processor) Submit(t *txn.Txn) uint64 {
	t.ID = p.assignID()
	if err := t.Validate(p.keyRange); err != nil {
		log.WithFields(log.Fields{"txn": t.ID, "err": err}).Error("engine::processor::Submit; rejecting out-of-range transaction")
		t.Status = txn.Aborted
		p.results.push(t)
		return t.ID
	}
	p.incoming.push(t)
	return t.ID
}

// NextResult blocks (polling, matching the original's spin in
// GetTxnResult) until a transaction has reached a terminal state, then
// returns it, transferring ownership back to the caller.
func (p *Processor) NextResult() *txn.Txn {
	for {
		if t, ok := p.results.pop(); ok {
			return t
		}
		time.Sleep(dispatchIdleSleep)
	}
}

// Shutdown stops the dispatcher and joins the worker pool. It is safe to
// call at most once.
func (p *Processor) Shutdown() {
	p.stopped.Set(true)
	<-p.done
	p.pool.Shutdown()
	log.WithFields(log.Fields{"mode": p.mode.String()}).Info("engine::processor::Shutdown; stopped")
}

func (p *Processor) assignID() uint64 {
	p.idMu.Lock()
	defer p.idMu.Unlock()
	p.nextID++
	return p.nextID
}

func (p *Processor) currentID() uint64 {
	p.idMu.Lock()
	defer p.idMu.Unlock()
	return p.nextID
}

func (p *Processor) appendCommitted(t *txn.Txn) {
	p.committedMu.Lock()
	p.committedTxns = append(p.committedTxns, t)
	p.committedMu.Unlock()
}

func (p *Processor) committedLen() int {
	p.committedMu.RLock()
	defer p.committedMu.RUnlock()
	return len(p.committedTxns)
}

func (p *Processor) committedSince(idx int) []*txn.Txn {
	p.committedMu.RLock()
	defer p.committedMu.RUnlock()
	if idx >= len(p.committedTxns) {
		return nil
	}
	out := make([]*txn.Txn, len(p.committedTxns)-idx)
	copy(out, p.committedTxns[idx:])
	return out
}

// publishTerminal hands a finalized transaction to the result queue. The
// caller must already have set its status to COMMITTED or ABORTED;
// anything else is a fatal invariant violation, matching the original's
// DIE(...) macro.
func (p *Processor) publishTerminal(t *txn.Txn) {
	switch t.Status {
	case txn.Committed, txn.Aborted:
		// already finalized by the caller.
	default:
		log.WithFields(log.Fields{"txn": t.ID, "status": t.Status}).
			Fatal("engine::processor::publishTerminal; transaction left processor in a non-terminal state")
	}
	p.results.push(t)
}

// retry clears a transaction's accumulated reads/writes, resets its
// status, assigns it a fresh id and re-admits it to the incoming queue —
// the Go rendering of every protocol engine's "clear/reset/reassign/push"
// abort-retry sequence.
func (p *Processor) retry(t *txn.Txn) {
	t.Reset()
	t.ID = p.assignID()
	p.incoming.push(t)
}

// bodyAborted reports whether the transaction body itself requested an
// abort, distinct from a validation or lock-conflict failure.
func bodyAborted(t *txn.Txn) bool {
	return t.Status == txn.CompletedAbort
}

func sleepIdle() {
	time.Sleep(dispatchIdleSleep)
}
