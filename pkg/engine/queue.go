package engine

import (
	"sync"

	"github.com/txnlab/ccproc/pkg/txn"
)

// txnQueue is a multi-producer/multi-consumer FIFO of transactions,
// bounded only by memory. It is the idiomatic Go substitute for the
// original source's lock-free AtomicQueue<Txn*>: a Go channel would need
// a fixed capacity and risks deadlocking the single dispatcher goroutine,
// which is both the queue's sole drainer and (via retry) one of its
// producers, so a plain mutex-guarded slice is used instead.
type txnQueue struct {
	mu    sync.Mutex
	items []*txn.Txn
}

func newTxnQueue() *txnQueue {
	return &txnQueue{}
}

func (q *txnQueue) push(t *txn.Txn) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()
}

func (q *txnQueue) pop() (*txn.Txn, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t, true
}
