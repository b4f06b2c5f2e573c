// Package record defines the input shape the core accepts (spec §6's
// input contract) and a reusable scratch builder for assembling one
// before handing it to a batch for shredding (C5).
package record

import "github.com/pil-io/pil/column"

// Slot is one named value within a record: either a single scalar, a
// fixed-width vector of m values, or one tensor row (raw bytes plus its
// element count).
type Slot struct {
	Name   string
	Flavor column.Flavor
	Type   column.PrimitiveType

	// Scalar holds the single value's little-endian encoding when this
	// slot is a fixed-width scalar (len(Vector) == 0, Array == nil).
	Scalar []byte
	// Vector holds one little-endian encoded value per column slot when
	// this slot is a fixed-width vector.
	Vector [][]byte
	// Array and NElements hold the raw row bytes and element count for a
	// tensor slot.
	Array     []byte
	NElements int64
}

// Multiplicity returns the vector width this slot occupies: 1 for a
// scalar or tensor slot, len(Vector) for a fixed-width vector slot.
func (s Slot) Multiplicity() int {
	if len(s.Vector) > 0 {
		return len(s.Vector)
	}
	return 1
}

// Record is an ordered sequence of slots, in first-seen field order —
// that order is significant, since two records with the same field set
// in different orders resolve to distinct schema ids (spec §4.4).
type Record struct {
	Slots []Slot
}

// Builder is a reusable scratch buffer for assembling records without
// an allocation per record: callers call Reset, then AppendScalar/
// AppendVector/AppendTensor repeatedly, then pass Builder.Record() to a
// batch.
type Builder struct {
	rec Record
}

// Reset clears the builder for reuse, retaining the underlying slice
// capacity.
func (b *Builder) Reset() {
	b.rec.Slots = b.rec.Slots[:0]
}

// AppendScalar adds a fixed-width scalar slot.
func (b *Builder) AppendScalar(name string, t column.PrimitiveType, value []byte) {
	b.rec.Slots = append(b.rec.Slots, Slot{Name: name, Flavor: column.FlavorFixed, Type: t, Scalar: value})
}

// AppendVector adds a fixed-width vector slot of the given values.
func (b *Builder) AppendVector(name string, t column.PrimitiveType, values [][]byte) {
	b.rec.Slots = append(b.rec.Slots, Slot{Name: name, Flavor: column.FlavorFixed, Type: t, Vector: values})
}

// AppendTensor adds one tensor row.
func (b *Builder) AppendTensor(name string, t column.PrimitiveType, raw []byte, nElements int64) {
	b.rec.Slots = append(b.rec.Slots, Slot{Name: name, Flavor: column.FlavorTensor, Type: t, Array: raw, NElements: nElements})
}

// Record returns the record assembled so far. The returned value aliases
// the builder's internal slice; callers that need to retain it across a
// Reset must copy.
func (b *Builder) Record() Record {
	return b.rec
}
