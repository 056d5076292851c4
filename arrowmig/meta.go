// Package arrowmig plans and applies in-place migrations of an Arrow
// columnar record batch living in a shared-memory segment: given an old
// batch's dynamic metadata, a set of row-index actions (remove/copy/create),
// and a new Arrow record supplying create-row data, it computes the buffer
// edits needed to turn the old batch into the new one without a full
// re-materialization, then flushes those edits into the segment in an order
// that never lets a write clobber a byte a later step still needs to read.
package arrowmig

import "github.com/apache/arrow-go/v18/arrow"

// BufferKind tags which of an Arrow node's physical buffers a BufferMeta
// describes, matching arrow's buffer-slot convention (validity bitmap first,
// then offsets for variable-width types, then the data buffer itself).
type BufferKind int

const (
	BufferValidity BufferKind = iota
	BufferOffset
	BufferData
	BufferLargeOffset
)

// BufferMeta is the planner's record of where one physical buffer lives in
// the segment's data region, byte-aligned to the segment's buffer alignment.
type BufferMeta struct {
	Kind    BufferKind
	Offset  int64
	Length  int64
	Padding int64
}

// NodeMeta is one Arrow node's (column, or nested child) dynamic metadata:
// its row length, validity null count, and the physical buffers backing it
// in declared order.
type NodeMeta struct {
	Name      string
	Type      arrow.DataType
	Length    int
	NullCount int
	Buffers   []BufferMeta
	Children  []NodeMeta
}

// DynamicMetadata is the full per-batch metadata table the Flush Engine
// writes back into the segment's metadata block after a migration, keyed by
// column in schema order.
type DynamicMetadata struct {
	Nodes      []NodeMeta
	DataLength int64
}

// BufferOf returns the first buffer of kind k on n, and whether it exists.
func (n NodeMeta) BufferOf(k BufferKind) (BufferMeta, bool) {
	for _, b := range n.Buffers {
		if b.Kind == k {
			return b, true
		}
	}
	return BufferMeta{}, false
}
