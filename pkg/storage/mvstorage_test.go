package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/txnlab/ccproc/pkg/txn"
)

func TestMultiVersionReadAtInfinityReturnsHead(t *testing.T) {
	s := NewMultiVersion(10)
	s.Lock(7)
	s.Write(7, txn.Value("v1"), 1)
	s.Write(7, txn.Value("v2"), 2)
	v, ok := s.Read(7, math.MaxUint64)
	s.Unlock(7)

	assert.True(t, ok)
	assert.Equal(t, txn.Value("v2"), v)
}

func TestMultiVersionReadSelectsVersionByWriteTS(t *testing.T) {
	s := NewMultiVersion(10)
	s.Lock(1)
	s.Write(1, txn.Value("at5"), 5)
	s.Write(1, txn.Value("at10"), 10)

	v, ok := s.Read(1, 7)
	assert.True(t, ok)
	assert.Equal(t, txn.Value("at5"), v, "reader with id 7 should see the version written at 5, not 10")

	v, ok = s.Read(1, 10)
	assert.True(t, ok)
	assert.Equal(t, txn.Value("at10"), v)
	s.Unlock(1)
}

func TestMultiVersionCheckWriteTSFailsAfterLaterReader(t *testing.T) {
	s := NewMultiVersion(10)
	s.Lock(3)
	s.Write(3, txn.Value("v"), 0)
	// Txn 2 reads key 3, advancing max_read_ts on the head version.
	_, _ = s.Read(3, 2)

	// An earlier-id writer (id 1) must abort: a reader with id 2 > 1 already observed the head.
	assert.False(t, s.CheckWriteTS(3, 1))
	// A later-id writer is fine.
	assert.True(t, s.CheckWriteTS(3, 3))
	s.Unlock(3)
}

func TestMultiVersionChainNeverShrinks(t *testing.T) {
	s := NewMultiVersion(5)
	s.Lock(0)
	for i := uint64(1); i <= 5; i++ {
		s.Write(0, txn.Value{byte(i)}, i)
	}
	s.Unlock(0)

	s.Lock(0)
	defer s.Unlock(0)
	count := 0
	for v := s.chains[0]; v != nil; v = v.next {
		count++
		if v.next != nil {
			assert.Greater(t, v.writeTS, v.next.writeTS, "chain must be write_ts-descending")
		}
	}
	assert.Equal(t, 6, count, "5 writes plus the initial zero version")
}
