// Package storage implements the two storage engines shared by every
// concurrency-control protocol: a single-version map (used by Serial, 2PL
// and OCC) and a multi-version chain per key (used by MVCC-TO and
// MVCC-2PL).
package storage

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/txnlab/ccproc/pkg/txn"
)

// record holds a value together with the id of the transaction that last
// wrote it.
type record struct {
	value    txn.Value
	writerID uint64
}

// SingleVersion is a Key->Value map that unconditionally overwrites on
// Write and records the writer's id. Each call takes an internal RWMutex,
// so single Read/Write/Timestamp calls are safe from several goroutines;
// ordering across calls and keys is left to the calling protocol (Serial,
// 2PL, OCC).
type SingleVersion struct {
	mu   sync.RWMutex
	data map[txn.Key]record
}

// NewSingleVersion creates a SingleVersion store pre-initialized with a
// zero value at writer id 0 for every key in [0, keyRange), matching the
// original InitStorage loop.
func NewSingleVersion(keyRange uint64) *SingleVersion {
	s := &SingleVersion{
		data: make(map[txn.Key]record, keyRange),
	}
	for k := uint64(0); k < keyRange; k++ {
		s.data[txn.Key(k)] = record{value: txn.Value{0}, writerID: 0}
	}
	log.WithFields(log.Fields{"keyRange": keyRange}).Info("storage::SingleVersion::NewSingleVersion; initialized")
	return s
}

// Read returns the current value of k, if any.
func (s *SingleVersion) Read(k txn.Key) (txn.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[k]
	if !ok {
		return nil, false
	}
	return r.value, true
}

// Write unconditionally overwrites k's value and records writerID.
func (s *SingleVersion) Write(k txn.Key, v txn.Value, writerID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[k] = record{value: v, writerID: writerID}
}

// Timestamp returns the id of the last transaction to write k.
func (s *SingleVersion) Timestamp(k txn.Key) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[k].writerID
}
