package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/txnlab/ccproc/pkg/lock"
	"github.com/txnlab/ccproc/pkg/txn"
)

// commitBody returns a Body that copies writes into t.Writes and commits.
func commitBody(writes map[txn.Key]txn.Value) txn.Body {
	return func(t *txn.Txn) txn.Status {
		for k, v := range writes {
			t.Write(k, v)
		}
		return txn.CompletedCommit
	}
}

func readOnlyCommitBody() txn.Body {
	return func(t *txn.Txn) txn.Status { return txn.CompletedCommit }
}

func waitForResult(t *testing.T, p *Processor) *txn.Txn {
	t.Helper()
	done := make(chan *txn.Txn, 1)
	go func() { done <- p.NextResult() }()
	select {
	case r := <-done:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a result")
		return nil
	}
}

// S1: serial commits preserve submission order.
func TestSerialCommitsPreserveOrder(t *testing.T) {
	p, err := NewProcessor(Serial, WithKeyRange(10), WithWorkerCount(2))
	assert.NoError(t, err)
	defer p.Shutdown()

	writer := txn.New(nil, []txn.Key{5}, commitBody(map[txn.Key]txn.Value{5: txn.Value("100")}))
	p.Submit(writer)
	r1 := waitForResult(t, p)
	assert.Equal(t, txn.Committed, r1.Status)

	reader := txn.New([]txn.Key{5}, nil, readOnlyCommitBody())
	p.Submit(reader)
	r2 := waitForResult(t, p)

	assert.Equal(t, txn.Committed, r2.Status)
	assert.Equal(t, txn.Value("100"), r2.Reads[5])
}

// S2: 2PL-B readers coexist.
func TestLockingBReadersCoexist(t *testing.T) {
	p, err := NewProcessor(LockingB, WithKeyRange(100), WithWorkerCount(4))
	assert.NoError(t, err)
	defer p.Shutdown()

	release := make(chan struct{})
	block := func(t *txn.Txn) txn.Status {
		<-release
		return txn.CompletedCommit
	}

	t1 := txn.New([]txn.Key{42}, nil, block)
	t2 := txn.New([]txn.Key{42}, nil, block)
	p.Submit(t1)
	p.Submit(t2)

	assert.Eventually(t, func() bool {
		mode, owners := p.lm.Status(42)
		return mode == lock.Shared && len(owners) == 2
	}, time.Second, time.Millisecond, "both readers should be granted SHARED locks on key 42")

	close(release)
	r1, r2 := waitForResult(t, p), waitForResult(t, p)
	assert.Equal(t, txn.Committed, r1.Status)
	assert.Equal(t, txn.Committed, r2.Status)
}

// S3: 2PL-B reader waits behind a writer, then observes its write.
func TestLockingBReaderWaitsForWriter(t *testing.T) {
	p, err := NewProcessor(LockingB, WithKeyRange(100), WithWorkerCount(4))
	assert.NoError(t, err)
	defer p.Shutdown()

	release := make(chan struct{})
	writer := txn.New(nil, []txn.Key{7}, func(t *txn.Txn) txn.Status {
		<-release
		t.Write(7, txn.Value("written-by-t1"))
		return txn.CompletedCommit
	})
	p.Submit(writer)

	// Give the writer time to actually take the write lock before the
	// reader is submitted.
	assert.Eventually(t, func() bool {
		mode, owners := p.lm.Status(7)
		return mode == lock.Exclusive && len(owners) == 1
	}, time.Second, time.Millisecond)

	reader := txn.New([]txn.Key{7}, nil, readOnlyCommitBody())
	p.Submit(reader)

	close(release)
	rw := waitForResult(t, p)
	assert.Same(t, writer, rw)
	assert.Equal(t, txn.Committed, rw.Status)

	rr := waitForResult(t, p)
	assert.Same(t, reader, rr)
	assert.Equal(t, txn.Committed, rr.Status)
	assert.Equal(t, txn.Value("written-by-t1"), rr.Reads[7])
}

// S4: an MVCC-TO writer whose id trails an id that already observed the
// head version must abort (and, per this implementation, be retried with
// a fresh id rather than left terminally aborted).
func TestMVCCTOEarlyWriterIsRetriedAfterBeingObserved(t *testing.T) {
	p, err := NewProcessor(MVCCTO, WithKeyRange(10), WithWorkerCount(4))
	assert.NoError(t, err)
	defer p.Shutdown()

	t2Read := make(chan struct{})
	writer := txn.New(nil, []txn.Key{3}, func(t *txn.Txn) txn.Status {
		<-t2Read
		t.Write(3, txn.Value("from-writer"))
		return txn.CompletedCommit
	})
	id1 := p.Submit(writer)
	assert.Equal(t, uint64(1), id1)

	reader := txn.New([]txn.Key{3}, nil, readOnlyCommitBody())
	id2 := p.Submit(reader)
	assert.Equal(t, uint64(2), id2)

	r1 := waitForResult(t, p)
	assert.Same(t, reader, r1)
	assert.Equal(t, txn.Committed, r1.Status)

	close(t2Read)
	r2 := waitForResult(t, p)
	assert.Same(t, writer, r2)
	assert.Equal(t, txn.Committed, r2.Status)
	assert.Greater(t, r2.ID, uint64(1), "writer must have been retried with a fresh id")
}

// S5: OCC-serial backward validation invalidates a transaction whose
// read_set was written by a transaction committed after its start_idx.
func TestOCCSerialBackwardInvalidatesAgainstLaterCommit(t *testing.T) {
	p, err := NewProcessor(OCCSerialBackward, WithKeyRange(10), WithWorkerCount(4))
	assert.NoError(t, err)
	defer p.Shutdown()

	release := make(chan struct{})
	reader := txn.New([]txn.Key{9}, nil, func(t *txn.Txn) txn.Status {
		<-release
		return txn.CompletedCommit
	})
	id1 := p.Submit(reader)
	assert.Equal(t, uint64(1), id1)

	writer := txn.New(nil, []txn.Key{9}, commitBody(map[txn.Key]txn.Value{9: txn.Value("from-writer")}))
	p.Submit(writer)
	rw := waitForResult(t, p)
	assert.Equal(t, txn.Committed, rw.Status)

	close(release)
	rr := waitForResult(t, p)
	assert.Same(t, reader, rr)
	assert.Equal(t, txn.Committed, rr.Status)
	assert.Greater(t, rr.ID, uint64(1), "reader must have failed backward validation and been re-admitted")
}

// S6: OCC-parallel forward check aborts a transaction whose read/write
// keys intersect the write_set of a peer still present in its finish
// set. Drives executeOCCParallel directly (rather than through
// Submit/NextResult) so the finish-set race itself is deterministic: the
// whole point of §4.4.4's single critical section is that which peers
// land in `finish` depends on arrival order, not wall-clock luck.
func TestOCCParallelForwardRejectsAgainstConcurrentFinishSet(t *testing.T) {
	p, err := NewProcessor(OCCParallelForward, WithKeyRange(10), WithWorkerCount(1))
	assert.NoError(t, err)
	defer p.Shutdown()

	other := txn.New(nil, []txn.Key{1}, readOnlyCommitBody())
	other.ID = 99
	p.activeMu.Lock()
	p.activeSet[other] = struct{}{}
	p.activeMu.Unlock()

	reader := txn.New([]txn.Key{1}, nil, readOnlyCommitBody())
	reader.ID = p.assignID()
	p.executeOCCParallel(reader)

	requeued, ok := p.incoming.pop()
	assert.True(t, ok, "reader must have been invalidated by other's presence in finish and re-admitted")
	assert.Same(t, reader, requeued)
	assert.Greater(t, requeued.ID, uint64(1))
}

// Invariant 6: ids assigned by Submit strictly increase.
func TestSubmitAssignsStrictlyIncreasingIDs(t *testing.T) {
	p, err := NewProcessor(Serial, WithKeyRange(10), WithWorkerCount(1))
	assert.NoError(t, err)
	defer p.Shutdown()

	var last uint64
	for i := 0; i < 5; i++ {
		id := p.Submit(txn.New(nil, nil, readOnlyCommitBody()))
		assert.Greater(t, id, last)
		last = id
		waitForResult(t, p)
	}
}

// Boundary: empty read_set/write_set commits immediately under Serial.
func TestEmptySetsCommitImmediatelyUnderSerial(t *testing.T) {
	p, err := NewProcessor(Serial, WithKeyRange(10), WithWorkerCount(1))
	assert.NoError(t, err)
	defer p.Shutdown()

	p.Submit(txn.New(nil, nil, readOnlyCommitBody()))
	r := waitForResult(t, p)
	assert.Equal(t, txn.Committed, r.Status)
}

// Invariant 4: a transaction reporting ABORTED makes no visible write.
func TestAbortedTransactionLeavesNoVisibleWrite(t *testing.T) {
	p, err := NewProcessor(Serial, WithKeyRange(10), WithWorkerCount(1))
	assert.NoError(t, err)
	defer p.Shutdown()

	p.Submit(txn.New(nil, []txn.Key{2}, func(t *txn.Txn) txn.Status {
		t.Write(2, txn.Value("should-not-apply"))
		return txn.CompletedAbort
	}))
	r := waitForResult(t, p)
	assert.Equal(t, txn.Aborted, r.Status)

	reader := txn.New([]txn.Key{2}, nil, readOnlyCommitBody())
	p.Submit(reader)
	rr := waitForResult(t, p)
	assert.Equal(t, txn.Value{0}, rr.Reads[2])
}
