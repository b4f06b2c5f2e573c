package batch

import "io"

// WriteSchemaColumn serializes a closed batch's schema-id column to w,
// the "core" metadata slot spec §4.7 describes.
func WriteSchemaColumn(w io.Writer, c *Closed) error {
	return c.Schemas.Serialize(w, c.SchemaResult.NullityPayload, c.SchemaResult.NullityUncompressedSize, c.SchemaResult.NullityCompressedSize, c.SchemaResult.Aux)
}

// WriteFieldColumnSet serializes one field's column set — every column
// store in Set.Columns order — to w, immediately after transformation
// (spec §4.7 "Each field's column set is serialized immediately after
// transformation").
func WriteFieldColumnSet(w io.Writer, fr FieldResult) error {
	for i, col := range fr.Set.Columns {
		res := fr.Results[i]
		if err := col.Serialize(w, res.NullityPayload, res.NullityUncompressedSize, res.NullityCompressedSize, res.Aux); err != nil {
			return err
		}
	}
	return nil
}
