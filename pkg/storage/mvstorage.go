package storage

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/txnlab/ccproc/pkg/txn"
)

// version is one entry in a key's version chain: a value written by the
// transaction with id writeTS, together with the highest id of any
// transaction that has read it.
type version struct {
	value   txn.Value
	writeTS uint64
	maxRead uint64
	next    *version
}

// MultiVersion is a per-key version chain store, ordered write_ts
// descending from head to tail. Every operation requires the caller to
// hold the per-key mutex obtained via Lock/Unlock, grounded directly on
// the original MVCCStorage's Lock/Unlock/Read/Write/CheckWrite pair.
type MultiVersion struct {
	mu     sync.RWMutex
	chains map[txn.Key]*version
	keyMu  []sync.Mutex // dense, indexed directly by key: the key space is bounded per spec.
}

// NewMultiVersion creates a MultiVersion store pre-initialized with a zero
// version written by txn 0 for every key in [0, keyRange), and one mutex
// per key, matching the original InitStorage loop that preallocates a
// Mutex per key.
func NewMultiVersion(keyRange uint64) *MultiVersion {
	s := &MultiVersion{
		chains: make(map[txn.Key]*version, keyRange),
		keyMu:  make([]sync.Mutex, keyRange),
	}
	for k := uint64(0); k < keyRange; k++ {
		s.chains[txn.Key(k)] = &version{value: txn.Value{0}, writeTS: 0, maxRead: 0}
	}
	log.WithFields(log.Fields{"keyRange": keyRange}).Info("storage::MultiVersion::NewMultiVersion; initialized")
	return s
}

// Lock acquires the per-key mutex protecting k's version chain.
func (s *MultiVersion) Lock(k txn.Key) {
	s.keyMu[k].Lock()
}

// Unlock releases the per-key mutex protecting k's version chain.
func (s *MultiVersion) Unlock(k txn.Key) {
	s.keyMu[k].Unlock()
}

// Read scans k's version chain from newest to oldest and returns the value
// of the newest version V with V.writeTS <= readerID. If that version is
// the head, its maxRead is advanced to readerID. Caller must hold Lock(k).
func (s *MultiVersion) Read(k txn.Key, readerID uint64) (txn.Value, bool) {
	s.mu.RLock()
	head := s.chains[k]
	s.mu.RUnlock()
	if head == nil {
		return nil, false
	}

	isHead := true
	for v := head; v != nil; v = v.next {
		if v.writeTS <= readerID {
			if isHead && v.maxRead < readerID {
				v.maxRead = readerID
			}
			return v.value, true
		}
		isHead = false
	}
	return nil, false
}

// CheckWriteTS returns true iff no reader with id > writerID has observed
// the head version of k's chain, i.e. head.maxRead <= writerID. Used by
// MVCC-TO to decide whether a write may proceed. Caller must hold Lock(k).
func (s *MultiVersion) CheckWriteTS(k txn.Key, writerID uint64) bool {
	s.mu.RLock()
	head := s.chains[k]
	s.mu.RUnlock()
	if head == nil {
		return true
	}
	return head.maxRead <= writerID
}

// CheckWriteVersion returns true iff head.writeTS <= writerID. The MVCC-2PL
// engine (engine.runLocking) does not call it: its locks already make
// conflicting writes impossible.
func (s *MultiVersion) CheckWriteVersion(k txn.Key, writerID uint64) bool {
	s.mu.RLock()
	head := s.chains[k]
	s.mu.RUnlock()
	if head == nil {
		return true
	}
	return head.writeTS <= writerID
}

// Write prepends a new version to k's chain. Caller must hold Lock(k).
func (s *MultiVersion) Write(k txn.Key, v txn.Value, writerID uint64) {
	nv := &version{value: v, writeTS: writerID, maxRead: writerID}
	s.mu.Lock()
	nv.next = s.chains[k]
	s.chains[k] = nv
	s.mu.Unlock()
}
