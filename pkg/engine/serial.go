package engine

import (
	log "github.com/sirupsen/logrus"

	"github.com/txnlab/ccproc/pkg/txn"
)

// runSerial implements §4.4.1: pop, execute inline on the dispatcher
// goroutine, commit or abort by the body's verdict, publish. No
// concurrency, and an abort is terminal — there is no retry path.
func (p *Processor) runSerial() {
	for {
		if p.stopped.Get() {
			return
		}
		t, ok := p.incoming.pop()
		if !ok {
			sleepIdle()
			continue
		}
		p.executeSerial(t)
	}
}

func (p *Processor) executeSerial(t *txn.Txn) {
	p.svReadAll(t)
	t.Status = t.Body(t)

	switch t.Status {
	case txn.CompletedCommit:
		p.svApplyWrites(t)
		t.Status = txn.Committed
	case txn.CompletedAbort:
		t.Status = txn.Aborted
	default:
		log.WithFields(log.Fields{"txn": t.ID, "status": t.Status}).
			Fatal("engine::serial::executeSerial; body left transaction in a non-terminal state")
	}
	p.publishTerminal(t)
}
