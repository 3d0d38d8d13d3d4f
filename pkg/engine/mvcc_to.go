package engine

import "github.com/txnlab/ccproc/pkg/txn"

// runMVCCTOLoop implements §4.4.5: a transaction's own id is its
// timestamp. Every submitted transaction executes on a worker with no
// separate admission phase — MVCC-TO's only gate is check_write_ts at
// commit time.
func (p *Processor) runMVCCTOLoop() {
	for {
		if p.stopped.Get() {
			return
		}
		t, ok := p.incoming.pop()
		if !ok {
			sleepIdle()
			continue
		}
		p.pool.Submit(func() { p.executeMVCCTO(t) })
	}
}

func (p *Processor) executeMVCCTO(t *txn.Txn) {
	p.mvReadReadSet(t)
	t.Status = t.Body(t)

	writeKeys := sortedKeys(t.WriteSet)
	for _, k := range writeKeys {
		p.mv.Lock(k)
	}

	valid := !bodyAborted(t)
	if valid {
		for _, k := range writeKeys {
			if !p.mv.CheckWriteTS(k, t.ID) {
				valid = false
				break
			}
		}
	}
	if valid {
		for k, v := range t.Writes {
			p.mv.Write(k, v, t.ID)
		}
	}
	for _, k := range writeKeys {
		p.mv.Unlock(k)
	}

	if valid {
		t.Status = txn.Committed
		p.appendCommitted(t)
		p.publishTerminal(t)
	} else {
		p.retry(t)
	}
}
