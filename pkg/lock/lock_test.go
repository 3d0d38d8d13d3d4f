package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/txnlab/ccproc/pkg/txn"
)

func newTxn(id uint64) *txn.Txn {
	t := txn.New(nil, nil, nil)
	t.ID = id
	return t
}

func TestExclusiveLockManagerGrantsFIFO(t *testing.T) {
	var ready []*txn.Txn
	m := NewExclusiveLockManager(func(tx *txn.Txn) { ready = append(ready, tx) })

	t1, t2 := newTxn(1), newTxn(2)
	assert.True(t, m.WriteLock(t1, 7))
	assert.False(t, m.WriteLock(t2, 7), "second writer must wait behind the first")
	assert.Empty(t, ready)

	m.Release(t1, 7)
	assert.Equal(t, []*txn.Txn{t2}, ready, "releasing the holder must ready the next waiter")
}

func TestSharedExclusiveLockManagerReadersCoexist(t *testing.T) {
	// S2: two readers on the same key must both be granted SHARED locks.
	var ready []*txn.Txn
	m := NewSharedExclusiveLockManager(func(tx *txn.Txn) { ready = append(ready, tx) })

	t1, t2 := newTxn(1), newTxn(2)
	assert.True(t, m.ReadLock(t1, 42))
	assert.True(t, m.ReadLock(t2, 42))

	mode, owners := m.Status(42)
	assert.Equal(t, Shared, mode)
	assert.ElementsMatch(t, []*txn.Txn{t1, t2}, owners)
}

func TestSharedExclusiveLockManagerWriterWaitsForReader(t *testing.T) {
	// S3: a writer submitted while a reader holds the lock must wait, then
	// become ready once the reader releases.
	var ready []*txn.Txn
	m := NewSharedExclusiveLockManager(func(tx *txn.Txn) { ready = append(ready, tx) })

	reader, writer := newTxn(1), newTxn(2)
	assert.True(t, m.ReadLock(reader, 7))
	assert.False(t, m.WriteLock(writer, 7), "writer must wait behind the reader")
	assert.Empty(t, ready)

	m.Release(reader, 7)
	assert.Equal(t, []*txn.Txn{writer}, ready)

	mode, owners := m.Status(7)
	assert.Equal(t, Exclusive, mode)
	assert.Equal(t, []*txn.Txn{writer}, owners)
}

func TestSharedExclusiveLockManagerExclusiveBlocksLaterReaders(t *testing.T) {
	var ready []*txn.Txn
	m := NewSharedExclusiveLockManager(func(tx *txn.Txn) { ready = append(ready, tx) })

	writer, reader := newTxn(1), newTxn(2)
	assert.True(t, m.WriteLock(writer, 3))
	assert.False(t, m.ReadLock(reader, 3), "a later reader must not jump an exclusive holder")

	m.Release(writer, 3)
	assert.Equal(t, []*txn.Txn{reader}, ready)
}

func TestSharedExclusiveLockManagerPromotesSharedPrefixOnExclusiveRelease(t *testing.T) {
	var ready []*txn.Txn
	m := NewSharedExclusiveLockManager(func(tx *txn.Txn) { ready = append(ready, tx) })

	writer := newTxn(1)
	r1, r2 := newTxn(2), newTxn(3)
	writer2 := newTxn(4)

	assert.True(t, m.WriteLock(writer, 9))
	assert.False(t, m.ReadLock(r1, 9))
	assert.False(t, m.ReadLock(r2, 9))
	assert.False(t, m.WriteLock(writer2, 9))

	m.Release(writer, 9)
	assert.ElementsMatch(t, []*txn.Txn{r1, r2}, ready, "both shared waiters ahead of the next exclusive must be promoted together")
}
