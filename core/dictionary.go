package core

import (
	"sort"
	"sync"

	"github.com/OneOfOne/xxhash"
)

// shardCount matches the teacher's StorageHash sharding width.
const shardCount = 1024

type dictShard struct {
	mu   sync.RWMutex
	data map[string]*Value
}

// Dictionary is the concurrent mapping from key to typed Value (spec.md
// §4.C). It is shard-striped: distinct keys usually land on distinct
// shards, so reads and writes on unrelated keys proceed without
// contending for the same lock. Grounded directly on the teacher's
// core/storagehash.go StorageHash (same shard count, same hash-then-mask
// bucket selection, same group-by-bucket strategy for multi-key Delete).
type Dictionary struct {
	shards [shardCount]*dictShard
}

// NewDictionary returns an empty Dictionary.
func NewDictionary() *Dictionary {
	d := &Dictionary{}
	for i := range d.shards {
		d.shards[i] = &dictShard{data: make(map[string]*Value)}
	}
	return d
}

func shardIndex(key string) uint64 {
	return xxhash.ChecksumString64(key) % shardCount
}

func (d *Dictionary) shardFor(key string) *dictShard {
	return d.shards[shardIndex(key)]
}

// View runs fn holding a read lock on the shard owning key. Use View for
// operations that never need to mutate or delete the entry.
func (d *Dictionary) View(key string, fn func(v *Value, ok bool)) {
	s := d.shardFor(key)
	s.mu.RLock()
	v, ok := s.data[key]
	fn(v, ok)
	s.mu.RUnlock()
}

// Mutate runs fn holding an exclusive lock on the shard owning key. fn
// observes the current value (ok is false if absent) and may call set to
// replace it or del to remove it.
func (d *Dictionary) Mutate(key string, fn func(v *Value, ok bool, set func(*Value), del func())) {
	s := d.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	set := func(nv *Value) { s.data[key] = nv }
	del := func() { delete(s.data, key) }
	fn(v, ok, set, del)
}

// Delete removes every key present among keys and returns how many were
// actually removed. Keys are grouped by shard so each shard is locked at
// most once, mirroring StorageHash.Del.
func (d *Dictionary) Delete(keys []string) (affected int) {
	byShard := make(map[int][]string)
	for _, k := range keys {
		idx := int(shardIndex(k))
		byShard[idx] = append(byShard[idx], k)
	}

	indices := make([]int, 0, len(byShard))
	for idx := range byShard {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	for _, idx := range indices {
		s := d.shards[idx]
		s.mu.Lock()
		for _, k := range byShard[idx] {
			if _, ok := s.data[k]; ok {
				delete(s.data, k)
				affected++
			}
		}
		s.mu.Unlock()
	}

	return affected
}
