package column

import (
	"encoding/binary"
	"io"

	"github.com/pil-io/pil/errs"
	"github.com/pil-io/pil/pool"
)

// Tuple is an auxiliary, codec-owned side payload attached to a
// TransformMeta entry (spec §6's "for each tuple: primitive_type, n_data,
// data" block). Serialize writes whatever tuples it is given; the
// transform pipeline's stages record none (the quality range coder keeps
// its symbol-remap table inside its own payload header).
type Tuple struct {
	Type  PrimitiveType
	NData int32
	Data  []byte
}

// StageAux pairs a TransformMeta with the tuples recorded alongside it.
// Store.Transforms stores the bookkeeping fields only; StageAux entries
// are kept in parallel (by index) outside the Store, in
// transform.ColumnResult.Aux, and passed to Serialize as aux.
type StageAux struct {
	Tuples []Tuple
}

func w8(w io.Writer, v uint8) error  { _, err := w.Write([]byte{v}); return err }
func w32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}
func w64(w io.Writer, v int64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	_, err := w.Write(b[:])
	return err
}

func r8(r io.Reader) (uint8, error) {
	var b [1]byte
	_, err := io.ReadFull(r, b[:])
	return b[0], err
}
func r32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
func r64(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Serialize writes s to w following the wire layout of spec §6: header
// fields, nullity payload, dictionary (if present), transform metadata
// (with any per-stage auxiliary tuples), a whole-payload MD5, and
// finally the payload bytes (compressed if any transform ran, otherwise
// raw).
func (s *Store) Serialize(w io.Writer, nullityPayload []byte, nullityUncompressedSize, nullityCompressedSize int64, aux []StageAux) error {
	hasDict := s.Dict != nil
	if err := w8(w, boolByte(hasDict)); err != nil {
		return err
	}
	if err := w32(w, uint32(s.NRecords)); err != nil {
		return err
	}
	if err := w32(w, uint32(s.NElements)); err != nil {
		return err
	}
	if err := w32(w, uint32(s.NNull)); err != nil {
		return err
	}
	if err := w32(w, uint32(s.UncompressedSize)); err != nil {
		return err
	}
	if err := w32(w, uint32(s.CompressedSize)); err != nil {
		return err
	}
	if err := w32(w, uint32(nullityUncompressedSize)); err != nil {
		return err
	}
	if err := w32(w, uint32(nullityCompressedSize)); err != nil {
		return err
	}
	if len(nullityPayload) > 0 {
		if _, err := w.Write(nullityPayload); err != nil {
			return err
		}
	}
	if err := w8(w, boolByte(hasDict)); err != nil { // repeated for framing, per spec
		return err
	}
	if hasDict {
		if err := writeDictionary(w, s.Dict); err != nil {
			return err
		}
	}
	if err := w32(w, uint32(len(s.Transforms))); err != nil {
		return err
	}
	for i, tm := range s.Transforms {
		if err := w32(w, tm.CodecID); err != nil {
			return err
		}
		if err := w64(w, tm.InputSize); err != nil {
			return err
		}
		if err := w64(w, tm.OutputSize); err != nil {
			return err
		}
		if _, err := w.Write(tm.MD5[:]); err != nil {
			return err
		}
		var tuples []Tuple
		if i < len(aux) {
			tuples = aux[i].Tuples
		}
		if err := w64(w, int64(len(tuples))); err != nil {
			return err
		}
		for _, t := range tuples {
			if err := w8(w, uint8(t.Type)); err != nil {
				return err
			}
			if err := w32(w, uint32(int32(t.NData))); err != nil {
				return err
			}
			if _, err := w.Write(t.Data); err != nil {
				return err
			}
		}
	}
	payloadMD5 := ComputeStageMD5(s.buf.Bytes())
	if _, err := w.Write(payloadMD5[:]); err != nil {
		return err
	}
	_, err := w.Write(s.buf.Bytes())
	return err
}

func writeDictionary(w io.Writer, d *Dictionary) error {
	if err := w8(w, boolByte(d.HasLengths)); err != nil {
		return err
	}
	if err := w64(w, d.NRecords); err != nil {
		return err
	}
	if err := w64(w, d.NElements); err != nil {
		return err
	}
	dictUncompressed := int64(len(d.Payload))
	if err := w64(w, dictUncompressed); err != nil {
		return err
	}
	if err := w64(w, dictUncompressed); err != nil { // dict is not independently compressed
		return err
	}
	lengthsBytes := int64(len(d.Lengths) * 4)
	if err := w64(w, lengthsBytes); err != nil {
		return err
	}
	if err := w64(w, lengthsBytes); err != nil {
		return err
	}
	if _, err := w.Write(d.Payload); err != nil {
		return err
	}
	if d.HasLengths {
		lb := make([]byte, lengthsBytes)
		for i, l := range d.Lengths {
			binary.LittleEndian.PutUint32(lb[i*4:], l)
		}
		if _, err := w.Write(lb); err != nil {
			return err
		}
	}
	return nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Deserialize reads a Store back from r, reversing Serialize. The
// returned nullity payload bytes are handed back to the caller (rather
// than decoded here) because decompression is the generic block codec's
// job, which this package does not import to avoid a cyclic dependency
// on transform.
func Deserialize(r io.Reader, t PrimitiveType, flavor Flavor) (store *Store, nullityPayload []byte, nullityUncompressedSize, nullityCompressedSize int64, err error) {
	store = &Store{Type: t, Flavor: flavor}
	hasDictFlag, err := r8(r)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	nrec, err := r32(r)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	nelem, err := r32(r)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	nnull, err := r32(r)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	usz, err := r32(r)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	csz, err := r32(r)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	nullU, err := r32(r)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	nullC, err := r32(r)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	store.NRecords = int64(nrec)
	store.NElements = int64(nelem)
	store.NNull = int64(nnull)
	store.UncompressedSize = int64(usz)
	store.CompressedSize = int64(csz)
	nullityUncompressedSize = int64(nullU)
	nullityCompressedSize = int64(nullC)
	// A compressed size of 0 means Serialize wrote the nullity words raw.
	nullityLen := nullityCompressedSize
	if nullityLen == 0 {
		nullityLen = nullityUncompressedSize
	}
	if nullityLen > 0 {
		nullityPayload = make([]byte, nullityLen)
		if _, err = io.ReadFull(r, nullityPayload); err != nil {
			return nil, nil, 0, 0, err
		}
	}
	hasDictFlag2, err := r8(r)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	if hasDictFlag != hasDictFlag2 {
		return nil, nil, 0, 0, errs.New(errs.KindIntegrity, "column: has_dictionary framing mismatch")
	}
	if hasDictFlag != 0 {
		d, derr := readDictionary(r)
		if derr != nil {
			return nil, nil, 0, 0, derr
		}
		store.Dict = d
	}
	nTransforms, err := r32(r)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	store.Transforms = make([]TransformMeta, 0, nTransforms)
	for i := uint32(0); i < nTransforms; i++ {
		var tm TransformMeta
		codecID, e := r32(r)
		if e != nil {
			return nil, nil, 0, 0, e
		}
		tm.CodecID = codecID
		if tm.InputSize, e = r64(r); e != nil {
			return nil, nil, 0, 0, e
		}
		if tm.OutputSize, e = r64(r); e != nil {
			return nil, nil, 0, 0, e
		}
		if _, e = io.ReadFull(r, tm.MD5[:]); e != nil {
			return nil, nil, 0, 0, e
		}
		nTuples, e := r64(r)
		if e != nil {
			return nil, nil, 0, 0, e
		}
		for j := int64(0); j < nTuples; j++ {
			pt, e := r8(r)
			if e != nil {
				return nil, nil, 0, 0, e
			}
			n, e := r32(r)
			if e != nil {
				return nil, nil, 0, 0, e
			}
			data := make([]byte, n)
			if _, e = io.ReadFull(r, data); e != nil {
				return nil, nil, 0, 0, e
			}
			_ = pt // tuples are read past and dropped; Deserialize does not return them
		}
		store.Transforms = append(store.Transforms, tm)
	}
	var wantMD5 [16]byte
	if _, err = io.ReadFull(r, wantMD5[:]); err != nil {
		return nil, nil, 0, 0, err
	}
	payloadLen := store.CompressedSize
	if payloadLen == 0 {
		payloadLen = store.UncompressedSize
	}
	payload := make([]byte, payloadLen)
	if _, err = io.ReadFull(r, payload); err != nil {
		return nil, nil, 0, 0, err
	}
	gotMD5 := ComputeStageMD5(payload)
	if gotMD5 != wantMD5 {
		return nil, nil, 0, 0, errs.New(errs.KindIntegrity, "column: payload MD5 mismatch")
	}
	store.buf = pool.NewBuffer(nil)
	store.SetBytes(payload)
	return store, nullityPayload, nullityUncompressedSize, nullityCompressedSize, nil
}

func readDictionary(r io.Reader) (*Dictionary, error) {
	haveLengths, err := r8(r)
	if err != nil {
		return nil, err
	}
	d := &Dictionary{HasLengths: haveLengths != 0}
	if d.NRecords, err = r64(r); err != nil {
		return nil, err
	}
	if d.NElements, err = r64(r); err != nil {
		return nil, err
	}
	uSz, err := r64(r)
	if err != nil {
		return nil, err
	}
	cSz, err := r64(r)
	if err != nil {
		return nil, err
	}
	lenU, err := r64(r)
	if err != nil {
		return nil, err
	}
	lenC, err := r64(r)
	if err != nil {
		return nil, err
	}
	payloadLen := cSz
	if payloadLen == 0 {
		payloadLen = uSz
	}
	d.Payload = make([]byte, payloadLen)
	if _, err = io.ReadFull(r, d.Payload); err != nil {
		return nil, err
	}
	if d.HasLengths {
		lengthsLen := lenC
		if lengthsLen == 0 {
			lengthsLen = lenU
		}
		raw := make([]byte, lengthsLen)
		if _, err = io.ReadFull(r, raw); err != nil {
			return nil, err
		}
		d.Lengths = make([]uint32, lengthsLen/4)
		for i := range d.Lengths {
			d.Lengths[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
	}
	return d, nil
}
