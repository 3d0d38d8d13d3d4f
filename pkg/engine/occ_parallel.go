package engine

import "github.com/txnlab/ccproc/pkg/txn"

// runOCCParallel implements §4.4.4: both execution and validation run on
// worker goroutines; the dispatcher goroutine's only job is to fan
// incoming transactions out to the pool.
func (p *Processor) runOCCParallel() {
	for {
		if p.stopped.Get() {
			return
		}
		t, ok := p.incoming.pop()
		if !ok {
			sleepIdle()
			continue
		}
		p.pool.Submit(func() { p.executeOCCParallel(t) })
	}
}

func (p *Processor) executeOCCParallel(t *txn.Txn) {
	forward := p.mode == OCCParallelForward
	if forward {
		t.StartTS = int64(p.currentID())
	} else {
		t.StartIdx = p.committedLen()
	}

	p.svReadAll(t)
	t.Status = t.Body(t)

	// The snapshot of currently-validating peers and inserting self into
	// that set is the single critical section the protocol needs.
	p.activeMu.Lock()
	finish := make([]*txn.Txn, 0, len(p.activeSet))
	for other := range p.activeSet {
		finish = append(finish, other)
	}
	p.activeSet[t] = struct{}{}
	p.activeMu.Unlock()

	valid := !bodyAborted(t)

	if valid && forward {
		valid = p.forwardValidate(t)
	}
	if valid && !forward {
		for _, past := range p.committedSince(t.StartIdx) {
			for _, wk := range past.WriteSet {
				if containsKey(t.ReadSet, wk) {
					valid = false
					break
				}
			}
			if !valid {
				break
			}
		}
	}

	if valid {
		selfKeys := unionKeys(t.ReadSet, t.WriteSet)
		for _, other := range finish {
			for _, wk := range other.WriteSet {
				if containsKey(selfKeys, wk) {
					valid = false
					break
				}
			}
			if !valid {
				break
			}
		}
	}

	if valid {
		p.svApplyWrites(t)
		t.Status = txn.Committed
		p.appendCommitted(t)
		p.publishTerminal(t)
	} else {
		p.retry(t)
	}

	p.activeMu.Lock()
	delete(p.activeSet, t)
	p.activeMu.Unlock()
}
