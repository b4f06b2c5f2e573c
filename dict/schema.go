package dict

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// SchemaDictionary is the bijection schema-hash <-> schema-id over
// ordered vectors of global field ids (spec §4, C4). Field ordering
// matters: [A,B] and [B,A] hash to different schemas and are both legal
// (spec §8 "Schema identity").
type SchemaDictionary struct {
	hashToID map[uint64]int
	schemas  [][]int // schemas[id] is the ordered field-id vector for that schema
}

// NewSchemaDictionary returns an empty SchemaDictionary.
func NewSchemaDictionary() *SchemaDictionary {
	return &SchemaDictionary{hashToID: make(map[uint64]int)}
}

// HashFieldIDs computes the fixed 64-bit hash of an ordered field-id
// vector spec §4 calls for, using xxhash over the vector's little-endian
// encoding so order is significant.
func HashFieldIDs(ids []int) uint64 {
	buf := make([]byte, 8*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(int64(id)))
	}
	return xxhash.Sum64(buf)
}

// Resolve returns the schema id for the ordered field-id vector ids,
// registering a new schema if this exact ordered vector (by hash) hasn't
// been seen before.
//
// A hash collision between two distinct field-id vectors would silently
// alias them to the same schema id; with a 64-bit hash this is
// astronomically unlikely for realistic field-vector counts and is not
// guarded against, matching spec §9's treatment of the tensor
// dictionary's hash collisions as out of scope for this layer too.
func (sd *SchemaDictionary) Resolve(ids []int) int {
	h := HashFieldIDs(ids)
	if id, ok := sd.hashToID[h]; ok {
		return id
	}
	id := len(sd.schemas)
	cp := append([]int(nil), ids...)
	sd.schemas = append(sd.schemas, cp)
	sd.hashToID[h] = id
	return id
}

// FieldIDs returns the ordered field-id vector for a previously resolved
// schema id.
func (sd *SchemaDictionary) FieldIDs(id int) ([]int, bool) {
	if id < 0 || id >= len(sd.schemas) {
		return nil, false
	}
	return sd.schemas[id], true
}

// Len returns the number of distinct schemas registered so far.
func (sd *SchemaDictionary) Len() int { return len(sd.schemas) }
