// Package dict implements the field and schema dictionaries of spec §4.4
// (C4): the string-to-id field dictionary with its per-field type
// descriptor, and the schema-id dictionary keyed by ordered field-id
// vectors.
package dict

import (
	"github.com/pil-io/pil/column"
	"github.com/pil-io/pil/errs"
)

// Transform is one token in a field's explicit transform chain, mirrored
// from transform.Codec to avoid an import cycle (dict is a leaf package
// consumed by both record and transform).
type Transform uint32

// FieldDescriptor is the type descriptor attached to a field at first
// insertion (spec §3, §4.4): its storage flavor, primitive type, and an
// optional explicit transform chain overriding auto mode.
type FieldDescriptor struct {
	Name       string
	Flavor     column.Flavor
	Type       column.PrimitiveType
	Transforms []Transform // nil selects auto mode (transform.Pipeline)
}

func (d FieldDescriptor) conflicts(other FieldDescriptor) bool {
	return d.Flavor != other.Flavor || d.Type != other.Type
}

// FieldDictionary is the bijection field-name <-> global-field-id of
// spec §4 (C4). Typing is fixed at first insertion; a later insert with a
// conflicting flavor/type is fatal (errs.KindInputInvalid), matching
// spec §4.4's "type conflict with a prior registration is fatal".
type FieldDictionary struct {
	nameToID map[string]int
	fields   []FieldDescriptor // fields[id] is the descriptor for field id
}

// NewFieldDictionary returns an empty FieldDictionary.
func NewFieldDictionary() *FieldDictionary {
	return &FieldDictionary{
		nameToID: make(map[string]int),
	}
}

// Resolve returns the global field id for desc.Name, registering it if
// this is the first time the name has been seen. If the name is already
// registered with a conflicting flavor/type, returns an
// errs.KindInputInvalid error and leaves the dictionary unchanged.
func (fd *FieldDictionary) Resolve(desc FieldDescriptor) (int, error) {
	if id, ok := fd.nameToID[desc.Name]; ok {
		existing := fd.fields[id]
		if existing.conflicts(desc) {
			return 0, errs.New(errs.KindInputInvalid,
				"dict: field %q registered as (flavor=%v, type=%v), conflicting re-registration as (flavor=%v, type=%v)",
				desc.Name, existing.Flavor, existing.Type, desc.Flavor, desc.Type)
		}
		return id, nil
	}
	id := len(fd.fields)
	fd.fields = append(fd.fields, desc)
	fd.nameToID[desc.Name] = id
	return id, nil
}

// Lookup returns the descriptor for a previously resolved field id.
func (fd *FieldDictionary) Lookup(id int) (FieldDescriptor, bool) {
	if id < 0 || id >= len(fd.fields) {
		return FieldDescriptor{}, false
	}
	return fd.fields[id], true
}

// Len returns the number of distinct fields registered so far.
func (fd *FieldDictionary) Len() int { return len(fd.fields) }

// Names returns the field names in id order, primarily for footer
// serialization.
func (fd *FieldDictionary) Names() []string {
	out := make([]string, len(fd.fields))
	for i, f := range fd.fields {
		out[i] = f.Name
	}
	return out
}
