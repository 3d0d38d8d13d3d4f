package engine

import "github.com/txnlab/ccproc/pkg/txn"

// svReadAll fills t.Reads from single-version storage for every key in
// read_set ∪ write_set, per the common execution contract in §4.5.
func (p *Processor) svReadAll(t *txn.Txn) {
	for _, k := range unionKeys(t.ReadSet, t.WriteSet) {
		if v, ok := p.sv.Read(k); ok {
			t.Reads[k] = v
		}
	}
}

func (p *Processor) svApplyWrites(t *txn.Txn) {
	for k, v := range t.Writes {
		p.sv.Write(k, v, t.ID)
	}
}

// mvReadAll fills t.Reads from multi-version storage for every key in
// read_set ∪ write_set, taking and releasing the per-key mutex around
// each individual read as MultiVersion's contract requires.
func (p *Processor) mvReadAll(t *txn.Txn) {
	for _, k := range unionKeys(t.ReadSet, t.WriteSet) {
		p.mv.Lock(k)
		if v, ok := p.mv.Read(k, t.ID); ok {
			t.Reads[k] = v
		}
		p.mv.Unlock(k)
	}
}

// mvReadReadSet fills t.Reads from multi-version storage for read_set
// only, matching MVCC-TO's protocol (§4.4.5 step 1), which never reads
// write_set before running the body.
func (p *Processor) mvReadReadSet(t *txn.Txn) {
	for _, k := range t.ReadSet {
		p.mv.Lock(k)
		if v, ok := p.mv.Read(k, t.ID); ok {
			t.Reads[k] = v
		}
		p.mv.Unlock(k)
	}
}

func (p *Processor) mvApplyWrites(t *txn.Txn) {
	for _, k := range sortedKeys(t.WriteSet) {
		p.mv.Lock(k)
		if v, ok := t.Writes[k]; ok {
			p.mv.Write(k, v, t.ID)
		}
		p.mv.Unlock(k)
	}
}

// forwardValidate implements SerialValidate: valid iff, for every key the
// transaction touched, no later writer has recorded a timestamp on it
// since the transaction's start snapshot.
func (p *Processor) forwardValidate(t *txn.Txn) bool {
	for _, k := range unionKeys(t.ReadSet, t.WriteSet) {
		if uint64(t.StartTS) < p.sv.Timestamp(k) {
			return false
		}
	}
	return true
}

// backwardValidate implements the OCC-serial backward rule: valid iff no
// transaction committed since the start_idx snapshot wrote a key this
// transaction read.
func (p *Processor) backwardValidate(t *txn.Txn) bool {
	for _, past := range p.committedSince(t.StartIdx) {
		for _, wk := range past.WriteSet {
			if containsKey(t.ReadSet, wk) {
				return false
			}
		}
	}
	return true
}
