package engine

import "github.com/txnlab/ccproc/pkg/txn"

// runOCCSerial implements §4.4.3: execution always runs on a worker;
// validation always runs single-threaded on the dispatcher goroutine, in
// either forward or backward flavor depending on p.mode.
func (p *Processor) runOCCSerial() {
	for {
		if p.stopped.Get() {
			return
		}
		work := false

		if t, ok := p.incoming.pop(); ok {
			work = true
			p.dispatchOCCSerialExecute(t)
		}
		if t, ok := p.completed.pop(); ok {
			work = true
			p.validateOCCSerial(t)
		}

		if !work {
			sleepIdle()
		}
	}
}

func (p *Processor) dispatchOCCSerialExecute(t *txn.Txn) {
	t.StartTS = int64(p.currentID())
	t.StartIdx = p.committedLen()
	p.pool.Submit(func() {
		p.svReadAll(t)
		t.Status = t.Body(t)
		p.completed.push(t)
	})
}

// validateOCCSerial runs on the dispatcher goroutine, one completed
// transaction at a time: a body-requested abort skips validation
// entirely (there is nothing to validate) and is retried like a failed
// validation, matching the abort category §7 describes for non-serial
// policies.
func (p *Processor) validateOCCSerial(t *txn.Txn) {
	if bodyAborted(t) {
		p.retry(t)
		return
	}

	var valid bool
	switch p.mode {
	case OCCSerialForward:
		valid = p.forwardValidate(t)
	case OCCSerialBackward:
		valid = p.backwardValidate(t)
	}

	if !valid {
		p.retry(t)
		return
	}

	p.svApplyWrites(t)
	t.Status = txn.Committed
	p.appendCommitted(t)
	p.publishTerminal(t)
}
