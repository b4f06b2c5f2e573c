package batch

import (
	"github.com/pil-io/pil/column"
	"github.com/pil-io/pil/dict"
	"github.com/pil-io/pil/errs"
	"github.com/pil-io/pil/record"
)

// Append shreds rec into this batch's column sets (spec §4.4, C5):
//  1. resolve each slot's global field id, registering new names;
//  2. resolve the record's schema id from the ordered field-id vector;
//  3. append each slot's value(s) to its field's column set, creating a
//     new column set (retroactively null-padded to the batch's current
//     row count) the first time a field is seen in this batch;
//  4. null-pad every field present in the batch but absent from rec;
//  5. append the schema id to the schema column and advance n_rec.
//
// Batch closing (step 6, once n_rec reaches B) is the caller's
// responsibility — a single Batch has no notion of the writer's target
// size.
func (b *Batch) Append(rec record.Record) error {
	globalIDs := make([]int, 0, len(rec.Slots))
	present := make(map[int]bool, len(rec.Slots))

	for _, slot := range rec.Slots {
		gid, err := b.fieldDict.Resolve(dict.FieldDescriptor{
			Name:   slot.Name,
			Flavor: slot.Flavor,
			Type:   slot.Type,
		})
		if err != nil {
			return err
		}
		globalIDs = append(globalIDs, gid)
		present[gid] = true

		local, err := b.localFor(gid)
		if err != nil {
			return err
		}
		if err := appendSlot(b.sets[local], slot); err != nil {
			return err
		}
	}

	for gid, local := range b.globalToLocal {
		if !present[gid] {
			if err := b.sets[local].PadNull(); err != nil {
				return err
			}
		}
	}

	schemaID := b.schemaDict.Resolve(globalIDs)
	if err := b.schemas.AppendU32(uint32(schemaID)); err != nil {
		return err
	}
	b.nRec++
	return nil
}

// localFor returns the batch-local column-set index for global field id
// gid, creating (and retroactively null-padding to the batch's current
// row count) a new column set the first time gid is seen within this
// batch.
func (b *Batch) localFor(gid int) (int, error) {
	if local, ok := b.globalToLocal[gid]; ok {
		return local, nil
	}
	desc, ok := b.fieldDict.Lookup(gid)
	if !ok {
		return 0, errs.New(errs.KindIntegrity, "batch: field id %d resolved but not registered", gid)
	}
	cset := column.NewSet(desc.Type, b.pool)
	for i := 0; i < b.nRec; i++ {
		if err := cset.PadNull(); err != nil {
			return 0, err
		}
	}
	local := len(b.localDict)
	b.localDict = append(b.localDict, gid)
	b.globalToLocal[gid] = local
	b.sets = append(b.sets, cset)
	return local, nil
}

// appendSlot routes one record slot to its column set, dispatching on
// flavor/multiplicity the way spec §4.3 lays out the three column set
// shapes.
func appendSlot(cset *column.Set, slot record.Slot) error {
	if slot.Flavor == column.FlavorTensor {
		return cset.AppendTensorRow(slot.Array, slot.NElements)
	}
	if len(slot.Vector) > 0 {
		return cset.AppendVector(len(slot.Vector), func(col *column.Store, i int) error {
			return col.AppendRaw(slot.Vector[i])
		})
	}
	return cset.AppendScalar(func(col *column.Store) error {
		return col.AppendRaw(slot.Scalar)
	})
}
