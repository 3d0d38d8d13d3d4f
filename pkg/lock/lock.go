// Package lock implements the two lock manager variants used by the 2PL
// and MVCC-2PL protocol engines: an exclusive-only manager (mode A) and a
// shared/exclusive manager (mode B). Both are grounded directly on
// _examples/original_source/a2/src/txn/lock_manager.cc's LockManagerA and
// LockManagerB.
package lock

import (
	"container/list"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/txnlab/ccproc/pkg/txn"
)

// Mode is the mode of a lock request.
type Mode int

const (
	// Shared allows any number of concurrent holders, but no Exclusive holder.
	Shared Mode = iota
	// Exclusive allows exactly one holder and no Shared holders.
	Exclusive
)

// request is one entry in a key's FIFO wait queue.
type request struct {
	mode Mode
	txn  *txn.Txn
}

// Manager is the interface shared by both lock manager variants. Only the
// scheduler's single dispatcher goroutine ever calls into a Manager: that
// single-caller invariant is what lets Release adjust pending counters and
// append newly-ready transactions without any synchronization beyond the
// manager's own mutex, which exists only to make Status callable
// concurrently (e.g. from tests or a metrics endpoint).
type Manager interface {
	// ReadLock requests a shared lock on k for txn. Returns true iff
	// granted immediately; otherwise the request is enqueued and txn's
	// pending counter is incremented.
	ReadLock(t *txn.Txn, k txn.Key) bool
	// WriteLock requests an exclusive lock on k for txn, with the same
	// return convention as ReadLock.
	WriteLock(t *txn.Txn, k txn.Key) bool
	// Release removes txn's request for k from the queue, promoting newly
	// grantable waiters (invoking onReady for any whose pending counter
	// reaches zero).
	Release(t *txn.Txn, k txn.Key)
	// Status reports the current grant mode on k and its owners.
	Status(k txn.Key) (Mode, []*txn.Txn)
}

// base holds the state common to both variants: per-key FIFO queues, a
// per-transaction pending-dependency counter, and the callback used to
// hand a newly-ready transaction back to the scheduler.
type base struct {
	mu       sync.Mutex
	queues   map[txn.Key]*list.List
	pending  map[*txn.Txn]int
	onReady  func(*txn.Txn)
	variant  string
}

func newBase(onReady func(*txn.Txn), variant string) base {
	return base{
		queues:  make(map[txn.Key]*list.List),
		pending: make(map[*txn.Txn]int),
		onReady: onReady,
		variant: variant,
	}
}

func (b *base) queueFor(k txn.Key) *list.List {
	q, ok := b.queues[k]
	if !ok {
		q = list.New()
		b.queues[k] = q
	}
	return q
}

func (b *base) incrementWait(t *txn.Txn) {
	b.pending[t]++
}

func (b *base) decrementWait(t *txn.Txn) {
	b.pending[t]--
	if b.pending[t] <= 0 {
		delete(b.pending, t)
		log.WithFields(log.Fields{"txn": t.ID, "variant": b.variant}).Debug("lock::lock::decrementWait; txn ready")
		b.onReady(t)
	}
}

// ExclusiveLockManager grants every request exclusively, regardless of the
// requested mode, matching LockManagerA: a read lock and a write lock are
// indistinguishable.
type ExclusiveLockManager struct {
	base
}

// NewExclusiveLockManager creates an exclusive-only lock manager. onReady
// is invoked (from within Release, on the caller's goroutine) for every
// transaction whose pending counter reaches zero.
func NewExclusiveLockManager(onReady func(*txn.Txn)) *ExclusiveLockManager {
	return &ExclusiveLockManager{base: newBase(onReady, "exclusive-only")}
}

// ReadLock behaves exactly like WriteLock: Part 1A implements only
// exclusive locks.
func (m *ExclusiveLockManager) ReadLock(t *txn.Txn, k txn.Key) bool {
	return m.WriteLock(t, k)
}

// WriteLock enqueues an exclusive request; it is granted iff it lands
// first in the FIFO.
func (m *ExclusiveLockManager) WriteLock(t *txn.Txn, k txn.Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.queueFor(k)
	q.PushBack(request{mode: Exclusive, txn: t})
	if q.Len() == 1 {
		return true
	}
	m.incrementWait(t)
	return false
}

// Release removes t's request for k. If t was the head, the new head (if
// any) has its pending counter decremented.
func (m *ExclusiveLockManager) Release(t *txn.Txn, k txn.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[k]
	if !ok || q.Len() == 0 {
		return
	}
	front := q.Front()
	if front.Value.(request).txn == t {
		q.Remove(front)
		delete(m.pending, t)
		if q.Len() > 0 {
			next := q.Front().Value.(request).txn
			m.decrementWait(next)
		}
		return
	}
	for e := q.Front(); e != nil; e = e.Next() {
		if e.Value.(request).txn == t {
			q.Remove(e)
			break
		}
	}
	delete(m.pending, t)
}

// Status reports EXCLUSIVE with the sole head-of-queue owner, or EXCLUSIVE
// with no owners when no request is queued on k.
func (m *ExclusiveLockManager) Status(k txn.Key) (Mode, []*txn.Txn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[k]
	if !ok || q.Len() == 0 {
		return Exclusive, nil
	}
	return Exclusive, []*txn.Txn{q.Front().Value.(request).txn}
}

// SharedExclusiveLockManager grants SHARED and EXCLUSIVE requests under
// the classic multi-reader/single-writer rule, matching LockManagerB.
type SharedExclusiveLockManager struct {
	base
}

// NewSharedExclusiveLockManager creates a shared/exclusive lock manager.
func NewSharedExclusiveLockManager(onReady func(*txn.Txn)) *SharedExclusiveLockManager {
	return &SharedExclusiveLockManager{base: newBase(onReady, "shared-exclusive")}
}

// WriteLock enqueues an exclusive request; granted iff the queue was empty.
func (m *SharedExclusiveLockManager) WriteLock(t *txn.Txn, k txn.Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.queueFor(k)
	q.PushBack(request{mode: Exclusive, txn: t})
	if q.Len() == 1 {
		return true
	}
	m.incrementWait(t)
	return false
}

// ReadLock enqueues a shared request. It is granted immediately if the
// queue is empty, or if no EXCLUSIVE request already sits ahead of it —
// including the head of the queue, since a lone EXCLUSIVE holder still
// blocks every later SHARED arrival.
func (m *SharedExclusiveLockManager) ReadLock(t *txn.Txn, k txn.Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.queueFor(k)
	q.PushBack(request{mode: Shared, txn: t})
	if q.Len() == 1 {
		return true
	}

	hasExclusiveAhead := false
	for e := q.Front(); e != nil; e = e.Next() {
		if e.Value.(request).txn == t {
			break
		}
		if e.Value.(request).mode == Exclusive {
			hasExclusiveAhead = true
			break
		}
	}
	if hasExclusiveAhead {
		m.incrementWait(t)
		return false
	}
	return true
}

// Release removes t's request for k and promotes newly-grantable waiters
// per the rules in spec.md §4.3.B.
func (m *SharedExclusiveLockManager) Release(t *txn.Txn, k txn.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[k]
	if !ok || q.Len() == 0 {
		return
	}

	wasHead := q.Front().Value.(request).txn == t
	var removedMode Mode
	for e := q.Front(); e != nil; e = e.Next() {
		if e.Value.(request).txn == t {
			removedMode = e.Value.(request).mode
			q.Remove(e)
			break
		}
	}
	delete(m.pending, t)

	if !wasHead {
		// Still waiting: erasing it changes no grant, per spec.md §4.3.B.
		return
	}

	switch removedMode {
	case Exclusive:
		// Promote a maximal prefix of SHARED waiters at the front of the
		// remainder. A trailing EXCLUSIVE is only decremented when no
		// SHARED request was promoted ahead of it; if the remainder starts
		// with SHARED entries, the EXCLUSIVE after them must keep waiting.
		promotedShared := false
		for e := q.Front(); e != nil; {
			r := e.Value.(request)
			next := e.Next()
			if r.mode == Exclusive {
				if !promotedShared {
					m.decrementWait(r.txn)
				}
				break
			}
			promotedShared = true
			m.decrementWait(r.txn)
			e = next
		}
	case Shared:
		if front := q.Front(); front != nil {
			r := front.Value.(request)
			if r.mode == Exclusive {
				// Only decrement if there are no other SHARED holders
				// ahead of it; since removedMode==Shared was at the head
				// and we've just removed it, the new head is the
				// earliest remaining request by construction.
				m.decrementWait(r.txn)
			}
		}
	}
}

// Status reports EXCLUSIVE with the sole holder, or SHARED with every
// contiguous shared holder at the front of the queue.
func (m *SharedExclusiveLockManager) Status(k txn.Key) (Mode, []*txn.Txn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[k]
	if !ok || q.Len() == 0 {
		return Shared, nil
	}
	front := q.Front().Value.(request)
	if front.mode == Exclusive {
		return Exclusive, []*txn.Txn{front.txn}
	}
	var owners []*txn.Txn
	for e := q.Front(); e != nil; e = e.Next() {
		r := e.Value.(request)
		if r.mode != Shared {
			break
		}
		owners = append(owners, r.txn)
	}
	return Shared, owners
}
