package arrowmig

import "github.com/apache/arrow-go/v18/arrow"

// ColumnSourcesFromRecord extracts one ColumnSource per column of rec, in
// schema order, by reading each column's existing validity bitmap and
// offset/data buffers directly. This is how a Create action's row data
// reaches the Planner: the caller builds rec from whatever produced the new
// rows (a decoded wire batch, a builder-assembled record) and passes the
// resulting ColumnSource slice as each ColumnPlanInput.Create.
func ColumnSourcesFromRecord(rec arrow.Record) []ColumnSource {
	cols := make([]ColumnSource, rec.NumCols())
	for i := range cols {
		cols[i] = columnSourceFromArray(rec.Column(i))
	}
	return cols
}

// columnSourceFromArray reads arr's physical buffers without copying them.
// A two-buffer array (validity, data) is fixed-width; a three-buffer array
// (validity, offsets, data) is variable-width, matching the BufferKind
// ordering NodeMeta already assumes.
func columnSourceFromArray(arr arrow.Array) ColumnSource {
	buffers := arr.Data().Buffers()
	src := ColumnSource{Validity: arr.NullBitmapBytes()}
	switch len(buffers) {
	case 2:
		if buffers[1] != nil {
			src.Data = buffers[1].Bytes()
		}
	case 3:
		if buffers[1] != nil {
			src.Offsets = decodeOffsets(buffers[1].Bytes())
		}
		if buffers[2] != nil {
			src.Data = buffers[2].Bytes()
		}
	}
	return src
}

func decodeOffsets(raw []byte) []int32 {
	out := make([]int32, len(raw)/4)
	for i := range out {
		out[i] = int32(uint32(raw[i*4]) | uint32(raw[i*4+1])<<8 | uint32(raw[i*4+2])<<16 | uint32(raw[i*4+3])<<24)
	}
	return out
}
