package arrowmig

// EditKind discriminates the two buffer-edit shapes the Planner produces.
type EditKind int

const (
	// EditReplace overwrites a buffer's full byte range with precomputed
	// bytes — used for the validity bitmap, which is always rebuilt from
	// scratch.
	EditReplace EditKind = iota
	// EditTweak relocates existing bytes via Shifts, then appends Copy and
	// Create bytes — used for Offset and Data buffers.
	EditTweak
)

// ShiftAction relocates a byte run already present in the segment from its
// old position to its new one within the same buffer.
type ShiftAction struct {
	SrcOffset int64
	Len       int64
	DstOffset int64
}

// CreateAction writes fresh bytes (sourced from a new record, or a
// fully-recomputed buffer such as rebased offsets) at DstOffset.
type CreateAction struct {
	DstOffset int64
	Data      []byte
}

// BufferEdit is one buffer's complete migration plan, expressed relative to
// the buffer's own start (DstOffset / SrcOffset are buffer-relative; the
// segment-absolute position is OldOffset/NewOffset).
type BufferEdit struct {
	Kind EditKind

	OldOffset int64
	OldLength int64
	NewOffset int64
	NewLength int64

	// EditReplace
	Replace []byte

	// EditTweak
	Shifts         []ShiftAction
	CopyData       []byte
	CopyByteOffset int64
	Creates        []CreateAction
}

// BaseRightShift is `NewOffset - OldOffset`, the value the Flush Engine uses
// to pick a shift ordering for Tweak edits.
func (e BufferEdit) BaseRightShift() int64 { return e.NewOffset - e.OldOffset }

// Flush writes every column's buffer edits into segment, growing it first
// if required, applying buffers in reverse schema order, and bumping the
// segment's persisted metaversion once every edit has landed.
func Flush(segment *Segment, actions BufferActions, newDataLength int64) error {
	if err := segment.SetDataLength(newDataLength); err != nil {
		return err
	}

	for i := len(actions.Columns) - 1; i >= 0; i-- {
		if err := flushColumn(segment, actions.Columns[i]); err != nil {
			return err
		}
	}

	segment.bumpMetaversion()
	return nil
}

// flushColumn writes one column's own buffers, descending into Children
// first (also in reverse) so a list parent's writes never land before its
// children's higher-offset regions have been read.
func flushColumn(segment *Segment, col ColumnBufferActions) error {
	for i := len(col.Children) - 1; i >= 0; i-- {
		if err := flushColumn(segment, col.Children[i]); err != nil {
			return err
		}
	}
	if col.HasData {
		if err := flushBuffer(segment, col.Data); err != nil {
			return err
		}
	}
	if col.Offset != nil {
		if err := flushBuffer(segment, *col.Offset); err != nil {
			return err
		}
	}
	return flushBuffer(segment, col.Validity)
}

func flushBuffer(segment *Segment, e BufferEdit) error {
	switch e.Kind {
	case EditReplace:
		segment.write(e.NewOffset, e.Replace)
		return nil
	case EditTweak:
		return flushTweak(segment, e)
	default:
		return nil
	}
}

// flushTweak applies a Tweak edit's shifts in the ordering that avoids
// clobbering not-yet-read source bytes, then writes the Copy blob and every
// Create action.
func flushTweak(segment *Segment, e BufferEdit) error {
	baseRightShift := e.BaseRightShift()

	switch {
	case baseRightShift == 0:
		for _, s := range e.Shifts {
			segment.copyWithin(e.OldOffset+s.SrcOffset, e.NewOffset+s.DstOffset, s.Len)
		}
	case baseRightShift+e.NewLength >= e.OldLength:
		for i := len(e.Shifts) - 1; i >= 0; i-- {
			s := e.Shifts[i]
			segment.copyWithin(e.OldOffset+s.SrcOffset, e.NewOffset+s.DstOffset, s.Len)
		}
	default:
		if len(e.Shifts) == 0 {
			return &EmptyShiftVectorError{Buffer: "tweak"}
		}
		scratch := make([]byte, e.NewLength)
		for _, s := range e.Shifts {
			copy(scratch[s.DstOffset:s.DstOffset+s.Len], segment.read(e.OldOffset+s.SrcOffset, s.Len))
		}
		segment.write(e.NewOffset, scratch)
	}

	if len(e.CopyData) > 0 {
		segment.write(e.NewOffset+e.CopyByteOffset, e.CopyData)
	}
	for _, c := range e.Creates {
		segment.write(e.NewOffset+c.DstOffset, c.Data)
	}
	return nil
}
