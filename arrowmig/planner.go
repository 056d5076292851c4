package arrowmig

import (
	"encoding/binary"

	"golang.org/x/sync/errgroup"
)

// ColumnLayout describes the physical shape of one column's Data buffer:
// fixed-width columns (ints, floats, fixed-size binary) address rows by a
// constant stride; variable-width columns (strings, binary, lists) address
// rows through an Offset buffer instead.
type ColumnLayout struct {
	// FixedWidth is the byte stride per row. Zero means variable-width —
	// callers must supply Offsets on every ColumnSource for that column —
	// unless ListMultiplier is set: a fixed-size-list column needs no Offsets.
	FixedWidth int64

	// ListMultiplier is the per-row element count a fixed-size-list column
	// contributes to its children's row-index domain. Zero means this
	// column is not a fixed-size list: it either owns a Data buffer
	// directly, or (if it has Children) is a variable-size list walking
	// its own Offset buffer instead.
	ListMultiplier int
}

// ColumnSource is one batch's view of a single column: its validity bitmap
// (nil means "all valid"), its data bytes, and — for variable-width
// columns — its i32 offsets (length = row count + 1).
type ColumnSource struct {
	Validity []byte
	Data     []byte
	Offsets  []int32
}

func byteRange(col ColumnSource, layout ColumnLayout, r Range) (int64, int64) {
	if layout.FixedWidth > 0 {
		return int64(r.Start) * layout.FixedWidth, int64(r.End) * layout.FixedWidth
	}
	return int64(col.Offsets[r.Start]), int64(col.Offsets[r.End])
}

// ColumnPlanInput is everything the Planner needs to migrate one column.
// Children describes a list or fixed-size-list column's nested node(s); a
// leaf column leaves it empty.
type ColumnPlanInput struct {
	Name        string
	Layout      ColumnLayout
	OldLen      int
	Actions     RowActions
	Old         ColumnSource
	CopySources map[int]ColumnSource
	Create      ColumnSource
	Children    []ColumnPlanInput
}

// ColumnBufferActions is the set of buffer edits planned for one column.
// HasData distinguishes a leaf column (Data is meaningful) from a list
// parent, which owns no Data buffer of its own — only Validity, optionally
// Offset, and its Children.
type ColumnBufferActions struct {
	Name      string
	Validity  BufferEdit
	Offset    *BufferEdit
	Data      BufferEdit
	HasData   bool
	NullCount int
	NewLen    int
	Children  []ColumnBufferActions
}

// BufferActions is the full set of edits a Plan call produced, one entry
// per column in schema order, ready for the Flush Engine.
type BufferActions struct {
	Columns []ColumnBufferActions
}

// Planner computes buffer edits from row-index actions without touching the
// segment; Flush is the only phase that writes bytes. Plan is pure and safe
// to call concurrently — it holds no state of its own.
type Planner struct{}

// NewPlanner returns a Planner. It carries no state — every Plan call is
// independent.
func NewPlanner() *Planner { return &Planner{} }

// columnPlan is one column's buffer-edit content, computed independently of
// every other column's — everything except each buffer's final NewOffset,
// which depends on the cumulative layout cursor and so is filled in by a
// second, sequential pass.
type columnPlan struct {
	name      string
	validity  BufferEdit
	offset    *BufferEdit
	data      BufferEdit
	hasData   bool
	nullCount int
	newLen    int
	children  []columnPlan
}

// Plan computes the BufferActions for every column in inputs and lays out
// their new segment offsets, returning the refreshed DynamicMetadata
// alongside. old supplies each column's existing BufferMeta so the Flush
// Engine knows where to read shift sources from. Each column's buffer
// content is independent of every other column's, so that work fans out
// across goroutines; only the final offset assignment is sequential, since
// it depends on the running layout cursor.
func (p *Planner) Plan(old DynamicMetadata, inputs []ColumnPlanInput) (BufferActions, DynamicMetadata, error) {
	if len(old.Nodes) < len(inputs) {
		return BufferActions{}, DynamicMetadata{}, &NodeMetadataExpectedError{ColumnIndex: len(old.Nodes)}
	}

	plans := make([]columnPlan, len(inputs))
	var g errgroup.Group
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			cp, err := planColumn(old.Nodes[i], in, i)
			if err != nil {
				return err
			}
			plans[i] = cp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BufferActions{}, DynamicMetadata{}, err
	}

	actions := BufferActions{Columns: make([]ColumnBufferActions, len(inputs))}
	newMeta := DynamicMetadata{Nodes: make([]NodeMeta, len(inputs))}

	var cursor int64
	for i, cp := range plans {
		var ca ColumnBufferActions
		var nm NodeMeta
		ca, nm, cursor = layoutColumnPlan(cp, cursor)
		actions.Columns[i] = ca
		newMeta.Nodes[i] = nm
	}
	newMeta.DataLength = cursor

	return actions, newMeta, nil
}

// layoutColumnPlan assigns cp's buffers (and, recursively, its children's)
// their final segment offsets against the running cursor, returning the
// ColumnBufferActions/NodeMeta pair the caller stitches into the batch-wide
// results, plus the cursor advanced past everything cp owns.
func layoutColumnPlan(cp columnPlan, cursor int64) (ColumnBufferActions, NodeMeta, int64) {
	cp.validity.NewOffset, cursor = place(cursor, cp.validity.NewLength)
	if cp.offset != nil {
		cp.offset.NewOffset, cursor = place(cursor, cp.offset.NewLength)
	}
	if cp.hasData {
		cp.data.NewOffset, cursor = place(cursor, cp.data.NewLength)
	}

	actions := ColumnBufferActions{
		Name:      cp.name,
		Validity:  cp.validity,
		Offset:    cp.offset,
		HasData:   cp.hasData,
		NullCount: cp.nullCount,
		NewLen:    cp.newLen,
	}
	buffers := []BufferMeta{{Kind: BufferValidity, Offset: cp.validity.NewOffset, Length: cp.validity.NewLength}}
	if cp.offset != nil {
		buffers = append(buffers, BufferMeta{Kind: BufferOffset, Offset: cp.offset.NewOffset, Length: cp.offset.NewLength})
	}
	if cp.hasData {
		actions.Data = cp.data
		buffers = append(buffers, BufferMeta{Kind: BufferData, Offset: cp.data.NewOffset, Length: cp.data.NewLength})
	}

	var childMeta []NodeMeta
	if len(cp.children) > 0 {
		actions.Children = make([]ColumnBufferActions, len(cp.children))
		childMeta = make([]NodeMeta, len(cp.children))
		for i, child := range cp.children {
			actions.Children[i], childMeta[i], cursor = layoutColumnPlan(child, cursor)
		}
	}

	node := NodeMeta{Name: cp.name, Length: cp.newLen, NullCount: cp.nullCount, Buffers: buffers, Children: childMeta}
	return actions, node, cursor
}

// planColumn computes column i's validity/offset/data buffer edits without
// assigning final segment offsets. A fixed-size-list column (ListMultiplier
// > 0) and a variable-size-list column (FixedWidth == 0 with Children) own
// no Data buffer of their own; instead they scale their own row actions into
// their children's row-index domain and recurse.
func planColumn(oldNode NodeMeta, in ColumnPlanInput, i int) (columnPlan, error) {
	newLen := in.Actions.TotalLen(in.OldLen)

	validityMeta, ok := oldNode.BufferOf(BufferValidity)
	if !ok {
		return columnPlan{}, &BufferMetadataExpectedError{ColumnIndex: i, Kind: BufferValidity}
	}
	validityBitmap, nullCount := planValidity(in.Old.Validity, in.OldLen, in.Actions, copyValidities(in), in.Create.Validity)
	validityEdit := BufferEdit{
		Kind:      EditReplace,
		OldOffset: validityMeta.Offset,
		OldLength: validityMeta.Length,
		NewLength: int64(len(validityBitmap)),
		Replace:   validityBitmap,
	}

	if in.Layout.ListMultiplier > 0 {
		childActions := scaleRowActions(in.Actions, in.Layout.ListMultiplier)
		children, err := planChildren(oldNode, in, i, in.OldLen*in.Layout.ListMultiplier, childActions)
		if err != nil {
			return columnPlan{}, err
		}
		return columnPlan{name: in.Name, validity: validityEdit, nullCount: nullCount, newLen: newLen, children: children}, nil
	}

	if in.Layout.FixedWidth == 0 && len(in.Children) > 0 {
		offsetMeta, ok := oldNode.BufferOf(BufferOffset)
		if !ok {
			return columnPlan{}, &BufferMetadataExpectedError{ColumnIndex: i, Kind: BufferOffset}
		}
		newOffsets := planOffsetValues(in)
		offsetBytes := encodeOffsets(newOffsets)
		offsetEdit := BufferEdit{
			Kind:      EditTweak,
			OldOffset: offsetMeta.Offset,
			OldLength: offsetMeta.Length,
			NewLength: int64(len(offsetBytes)),
			Creates:   []CreateAction{{DstOffset: 0, Data: offsetBytes}},
		}
		childActions := deriveListChildActions(in)
		children, err := planChildren(oldNode, in, i, childUnitCount(in.Old.Offsets, in.OldLen), childActions)
		if err != nil {
			return columnPlan{}, err
		}
		return columnPlan{name: in.Name, validity: validityEdit, offset: &offsetEdit, nullCount: nullCount, newLen: newLen, children: children}, nil
	}

	var offsetEditPtr *BufferEdit
	if in.Layout.FixedWidth == 0 {
		offsetMeta, ok := oldNode.BufferOf(BufferOffset)
		if !ok {
			return columnPlan{}, &BufferMetadataExpectedError{ColumnIndex: i, Kind: BufferOffset}
		}
		if _, large := oldNode.BufferOf(BufferLargeOffset); large {
			return columnPlan{}, &UnimplementedBufferTypeError{ColumnIndex: i}
		}
		offsetBytes := encodeOffsets(planOffsetValues(in))
		offsetEdit := BufferEdit{
			Kind:      EditTweak,
			OldOffset: offsetMeta.Offset,
			OldLength: offsetMeta.Length,
			NewLength: int64(len(offsetBytes)),
			Creates:   []CreateAction{{DstOffset: 0, Data: offsetBytes}},
		}
		offsetEditPtr = &offsetEdit
	}

	dataMeta, ok := oldNode.BufferOf(BufferData)
	if !ok {
		return columnPlan{}, &BufferMetadataExpectedError{ColumnIndex: i, Kind: BufferData}
	}
	dataEdit := planDataBuffer(in)
	dataEdit.OldOffset, dataEdit.OldLength = dataMeta.Offset, dataMeta.Length

	return columnPlan{
		name:      in.Name,
		validity:  validityEdit,
		offset:    offsetEditPtr,
		data:      dataEdit,
		hasData:   true,
		nullCount: nullCount,
		newLen:    newLen,
	}, nil
}

// planChildren recurses into a list column's nested node(s), matching each
// oldNode.Children[ci]/in.Children[ci] pair and overriding the child's own
// OldLen/Actions with the ones derived from the parent's row actions —
// a child's row-index domain is never the caller's to specify, since it is
// entirely a function of the parent's shape.
func planChildren(oldNode NodeMeta, in ColumnPlanInput, i int, childOldLen int, childActions RowActions) ([]columnPlan, error) {
	if len(oldNode.Children) < len(in.Children) {
		return nil, &NodeMetadataExpectedError{ColumnIndex: i}
	}
	children := make([]columnPlan, len(in.Children))
	for ci, childIn := range in.Children {
		childIn.OldLen = childOldLen
		childIn.Actions = childActions
		cp, err := planColumn(oldNode.Children[ci], childIn, i)
		if err != nil {
			return nil, err
		}
		children[ci] = cp
	}
	return children, nil
}

// scaleRowActions multiplies every row range and the create count by mult —
// the transform a fixed-size-list column's own row actions undergo before
// they describe its children's row-index domain.
func scaleRowActions(a RowActions, mult int) RowActions {
	out := RowActions{Create: a.Create * mult}
	for _, r := range a.Remove {
		out.Remove = append(out.Remove, Range{Start: r.Start * mult, End: r.End * mult})
	}
	for _, src := range a.Copy {
		ranges := make([]Range, len(src.Ranges))
		for i, r := range src.Ranges {
			ranges[i] = Range{Start: r.Start * mult, End: r.End * mult}
		}
		out.Copy = append(out.Copy, CopySource{BatchIndex: src.BatchIndex, Ranges: ranges})
	}
	return out
}

// offsetSpan converts a row range into the unit range it spans in a list
// column's offset buffer — the shape the column's children are addressed by.
func offsetSpan(offsets []int32, r Range) Range {
	return Range{Start: int(offsets[r.Start]), End: int(offsets[r.End])}
}

// childUnitCount reports the total element count a variable-size list's old
// offset buffer addresses across its first n rows.
func childUnitCount(offsets []int32, n int) int {
	if len(offsets) == 0 {
		return 0
	}
	return int(offsets[n])
}

// deriveListChildActions re-derives a variable-size list's own row actions
// in its children's row-index domain: each remove/copy row range becomes the
// unit span its old offsets cover, and the create count becomes the total
// unit count the new record's offsets contribute.
func deriveListChildActions(in ColumnPlanInput) RowActions {
	out := RowActions{}
	for _, r := range in.Actions.Remove {
		out.Remove = append(out.Remove, offsetSpan(in.Old.Offsets, r))
	}
	for _, src := range in.Actions.Copy {
		col := in.CopySources[src.BatchIndex]
		ranges := make([]Range, len(src.Ranges))
		for i, r := range src.Ranges {
			ranges[i] = offsetSpan(col.Offsets, r)
		}
		out.Copy = append(out.Copy, CopySource{BatchIndex: src.BatchIndex, Ranges: ranges})
	}
	if in.Actions.Create > 0 {
		out.Create = offsetSpan(in.Create.Offsets, Range{Start: 0, End: in.Actions.Create}).Len()
	}
	return out
}

// align is the byte alignment every buffer's start is padded to, matching
// Arrow's own buffer alignment convention.
const align = int64(8)

// place returns the aligned offset a buffer of the given length starts at,
// and the new running cursor past it.
func place(cursor int64, length int64) (offset int64, next int64) {
	pad := (align - cursor%align) % align
	offset = cursor + pad
	return offset, offset + length
}

func copyValidities(in ColumnPlanInput) map[int][]byte {
	out := make(map[int][]byte, len(in.CopySources))
	for b, src := range in.CopySources {
		out[b] = src.Validity
	}
	return out
}

// planValidity rebuilds a node's validity bitmap as a Replace action: a
// freshly allocated bitmap populated by walking retained, then copied, then
// created rows in that order, counting unset bits as it goes.
func planValidity(oldBitmap []byte, oldLen int, actions RowActions, copyBitmaps map[int][]byte, createBitmap []byte) ([]byte, int) {
	newLen := actions.TotalLen(oldLen)
	out := make([]byte, (newLen+7)/8)
	dst := 0
	unset := 0
	writeBit := func(bitmap []byte, idx int) {
		if readBit(bitmap, idx) {
			out[dst/8] |= 1 << uint(dst%8)
		} else {
			unset++
		}
		dst++
	}
	for _, r := range retainedRanges(oldLen, actions.Remove) {
		for i := r.Start; i < r.End; i++ {
			writeBit(oldBitmap, i)
		}
	}
	for _, src := range actions.Copy {
		bitmap := copyBitmaps[src.BatchIndex]
		for _, r := range src.Ranges {
			for i := r.Start; i < r.End; i++ {
				writeBit(bitmap, i)
			}
		}
	}
	for i := 0; i < actions.Create; i++ {
		writeBit(createBitmap, i)
	}
	return out, unset
}

func readBit(bitmap []byte, idx int) bool {
	if bitmap == nil {
		return true
	}
	return bitmap[idx/8]&(1<<uint(idx%8)) != 0
}

// planDataBuffer plans the Data buffer Tweak: shifts relocate retained byte
// runs in place, a Copy blob appends bytes read from sibling batches, and a
// Create action appends bytes from the new record — concatenated in that
// order, matching the row layout RowActions.TotalLen assumes.
func planDataBuffer(in ColumnPlanInput) BufferEdit {
	var shifts []ShiftAction
	var cursor int64
	for _, r := range retainedRanges(in.OldLen, in.Actions.Remove) {
		if r.Len() == 0 {
			continue
		}
		srcStart, srcEnd := byteRange(in.Old, in.Layout, r)
		length := srcEnd - srcStart
		shifts = append(shifts, ShiftAction{SrcOffset: srcStart, Len: length, DstOffset: cursor})
		cursor += length
	}

	copyByteOffset := cursor
	var copyData []byte
	for _, src := range in.Actions.Copy {
		col := in.CopySources[src.BatchIndex]
		for _, r := range src.Ranges {
			s, e := byteRange(col, in.Layout, r)
			copyData = append(copyData, col.Data[s:e]...)
		}
	}
	cursor += int64(len(copyData))

	var creates []CreateAction
	if in.Actions.Create > 0 {
		s, e := byteRange(in.Create, in.Layout, Range{Start: 0, End: in.Actions.Create})
		creates = append(creates, CreateAction{DstOffset: cursor, Data: in.Create.Data[s:e]})
		cursor += e - s
	}

	return BufferEdit{
		Kind:           EditTweak,
		NewLength:      cursor,
		Shifts:         shifts,
		CopyData:       copyData,
		CopyByteOffset: copyByteOffset,
		Creates:        creates,
	}
}

// planOffsetValues computes the complete new offsets array directly rather
// than replaying a low-level per-run value-delta shift: each
// retained/copied/created row contributes its own element byte length (read
// from its source's own offsets), and the result is the running cumulative
// sum, which is monotonic and starts at zero by construction. This is a
// deliberate simplification of the offset buffer's shift/rebase
// bookkeeping — see DESIGN.md.
func planOffsetValues(in ColumnPlanInput) []int32 {
	out := make([]int32, 1, in.Actions.TotalLen(in.OldLen)+1)
	out[0] = 0
	var cursor int64

	appendFrom := func(offsets []int32, r Range) {
		for i := r.Start; i < r.End; i++ {
			cursor += int64(offsets[i+1] - offsets[i])
			out = append(out, int32(cursor))
		}
	}

	for _, r := range retainedRanges(in.OldLen, in.Actions.Remove) {
		appendFrom(in.Old.Offsets, r)
	}
	for _, src := range in.Actions.Copy {
		col := in.CopySources[src.BatchIndex]
		for _, r := range src.Ranges {
			appendFrom(col.Offsets, r)
		}
	}
	if in.Actions.Create > 0 {
		appendFrom(in.Create.Offsets, Range{Start: 0, End: in.Actions.Create})
	}
	return out
}

func encodeOffsets(offsets []int32) []byte {
	out := make([]byte, len(offsets)*4)
	for i, v := range offsets {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out
}
