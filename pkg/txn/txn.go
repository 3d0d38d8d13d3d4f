// Package txn defines the transaction descriptor shared by every
// concurrency-control protocol in pkg/engine.
package txn

import (
	"fmt"

	"github.com/txnlab/ccproc/internal/errs"
	log "github.com/sirupsen/logrus"
)

// Key is the primary record identifier, drawn from a fixed dense range [0, N).
type Key int64

// Value is an opaque byte string stored by the key/value store.
type Value []byte

// Status is the lifecycle state of a transaction.
type Status int

const (
	// Incomplete means the txn has not yet been run, or is running.
	Incomplete Status = iota
	// CompletedCommit means the txn's body ran and requested commit, but
	// has not yet been validated/applied by the scheduler.
	CompletedCommit
	// CompletedAbort means the txn's body ran and requested abort.
	CompletedAbort
	// Committed means the txn's writes are visible in (in-memory) storage.
	Committed
	// Aborted means the txn made no visible write.
	Aborted
)

func (s Status) String() string {
	switch s {
	case Incomplete:
		return "INCOMPLETE"
	case CompletedCommit:
		return "COMPLETED_COMMIT"
	case CompletedAbort:
		return "COMPLETED_ABORT"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("STATUS(%d)", int(s))
	}
}

// Body is the user-supplied transaction program. It reads from Reads,
// writes to Writes via Txn.Write, and returns the commit/abort verdict it
// wants the engine to record. It is the idiomatic-Go rendering of the
// original C++ source's virtual Txn::Run().
type Body func(t *Txn) Status

// Txn is a transaction descriptor: the unit of work the engine schedules,
// executes and validates. A single Txn is not safe for concurrent use by
// more than one goroutine at a time; ownership passes from submitter to
// engine to worker and back, never shared.
type Txn struct {
	// ID is assigned by the scheduler on admission; strictly increasing
	// per admission.
	ID uint64

	// ReadSet and WriteSet are the keys the transaction declares it will
	// read/write, known before execution.
	ReadSet  []Key
	WriteSet []Key

	// Reads is filled in by the executor before Body runs.
	Reads map[Key]Value

	// Writes is filled in by Body via Write.
	Writes map[Key]Value

	// Status is the current lifecycle state.
	Status Status

	// StartTS is a logical timestamp snapshot at execution start (the
	// processor's most recently assigned id), used by OCC forward validation.
	StartTS int64

	// StartIdx is the size of committed-history at execution start, used by OCC.
	StartIdx int

	// Body is the user program to execute.
	Body Body
}

// New creates a transaction descriptor with the given read/write sets and
// body. ID is left zero; the engine assigns it on admission.
func New(readSet, writeSet []Key, body Body) *Txn {
	return &Txn{
		ReadSet:  readSet,
		WriteSet: writeSet,
		Reads:    make(map[Key]Value, len(readSet)+len(writeSet)),
		Writes:   make(map[Key]Value, len(writeSet)),
		Status:   Incomplete,
		Body:     body,
	}
}

// Validate checks that every key in ReadSet/WriteSet lies within [0, keyRange).
func (t *Txn) Validate(keyRange uint64) error {
	check := func(k Key) error {
		if k < 0 || uint64(k) >= keyRange {
			return errs.NewKeyOutOfRangeError(fmt.Sprintf("key %d is outside the configured range [0, %d)", k, keyRange))
		}
		return nil
	}
	for _, k := range t.ReadSet {
		if err := check(k); err != nil {
			return err
		}
	}
	for _, k := range t.WriteSet {
		if err := check(k); err != nil {
			return err
		}
	}
	return nil
}

// Write records a tentative write. It does not touch storage; the engine
// applies Writes to storage only once the txn commits.
func (t *Txn) Write(k Key, v Value) {
	t.Writes[k] = v
}

// reset clears accumulated reads/writes and resets status to Incomplete, in
// preparation for re-admission with a fresh ID after an OCC/MVCC-TO abort.
func (t *Txn) reset() {
	for k := range t.Reads {
		delete(t.Reads, k)
	}
	for k := range t.Writes {
		delete(t.Writes, k)
	}
	t.Status = Incomplete
	log.WithFields(log.Fields{"id": t.ID}).Debug("txn::txn::reset; cleared reads/writes for retry")
}

// Reset is the exported form of reset, used by the scheduler to recycle a
// txn that failed validation.
func (t *Txn) Reset() {
	t.reset()
}
