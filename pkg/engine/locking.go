package engine

import (
	log "github.com/sirupsen/logrus"

	"github.com/txnlab/ccproc/pkg/txn"
)

// runLocking implements §4.4.2 (two-phase locking, modes A and B) and
// §4.4.6 (MVCC-2PL, which the spec treats as pure 2PL over MV storage).
// All three share one dispatcher loop and differ only in which storage
// backend readAll/applyWrites touch and which lock.Manager variant was
// constructed for them.
func (p *Processor) runLocking() {
	for {
		if p.stopped.Get() {
			return
		}
		work := false

		if t, ok := p.incoming.pop(); ok {
			work = true
			p.admitLocking(t)
		}
		if t, ok := p.completed.pop(); ok {
			work = true
			p.completeLocking(t)
		}
		for len(p.ready) > 0 {
			work = true
			t := p.ready[0]
			p.ready = p.ready[1:]
			p.dispatchLocking(t)
		}

		if !work {
			sleepIdle()
		}
	}
}

// admitLocking requests read locks then write locks, in enumeration
// order; if every request was granted immediately the transaction is not
// blocked and is queued to run now, otherwise the lock manager's onReady
// callback will append it to p.ready once its pending counter reaches
// zero.
func (p *Processor) admitLocking(t *txn.Txn) {
	blocked := false
	for _, k := range t.ReadSet {
		if !p.lm.ReadLock(t, k) {
			blocked = true
		}
	}
	for _, k := range t.WriteSet {
		if !p.lm.WriteLock(t, k) {
			blocked = true
		}
	}
	if !blocked {
		p.ready = append(p.ready, t)
	}
}

func (p *Processor) dispatchLocking(t *txn.Txn) {
	p.pool.Submit(func() {
		if p.mode == MVCCTwoPL {
			p.mvReadAll(t)
		} else {
			p.svReadAll(t)
		}
		t.Status = t.Body(t)
		p.completed.push(t)
	})
}

// completeLocking commits or aborts by the body's verdict, applies writes
// before releasing locks so that readers waiting behind this transaction
// observe committed state, then releases every declared lock.
func (p *Processor) completeLocking(t *txn.Txn) {
	switch t.Status {
	case txn.CompletedCommit:
		if p.mode == MVCCTwoPL {
			p.mvApplyWrites(t)
		} else {
			p.svApplyWrites(t)
		}
		t.Status = txn.Committed
	case txn.CompletedAbort:
		t.Status = txn.Aborted
	default:
		log.WithFields(log.Fields{"txn": t.ID, "status": t.Status}).
			Fatal("engine::locking::completeLocking; body left transaction in a non-terminal state")
	}

	for _, k := range t.ReadSet {
		p.lm.Release(t, k)
	}
	for _, k := range t.WriteSet {
		p.lm.Release(t, k)
	}
	p.publishTerminal(t)
}
