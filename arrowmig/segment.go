package arrowmig

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Metaversion is the concurrency token readers compare their loaded state
// against: a batch observed with loaded == persisted is consistent; any
// mismatch means a migration landed since the reader last refreshed.
type Metaversion struct {
	Persisted uint64
	Loaded    uint64
}

// Consistent reports whether the reader's loaded version matches what is
// currently persisted.
func (m Metaversion) Consistent() bool { return m.Loaded == m.Persisted }

// Segment is a resizable shared-memory stand-in: a growable byte slice plus
// the metaversion token, with no OS-level mapping of its own. A production
// deployment would back this with an actual shared-memory mapping; this
// facade is deliberately the narrow interface the Planner/Flush Engine need
// from one.
type Segment struct {
	data         []byte
	metaversion  Metaversion
}

// NewSegment allocates a Segment with an initial data region of size bytes.
func NewSegment(size int64) *Segment {
	return &Segment{data: make([]byte, size)}
}

// DataLength reports the current size of the data region.
func (s *Segment) DataLength() int64 { return int64(len(s.data)) }

// SetDataLength grows (or, if already large enough, leaves unchanged) the
// segment's data region to at least n bytes, the Flush Engine's pre-flight
// step. It never shrinks the region, since a shrink would require proving
// no live buffer still references the trimmed tail.
func (s *Segment) SetDataLength(n int64) error {
	if n < 0 {
		return &SegmentResizeError{Requested: n, Cause: fmt.Errorf("negative length")}
	}
	if n <= int64(len(s.data)) {
		return nil
	}
	grown := make([]byte, n)
	copy(grown, s.data)
	s.data = grown
	return nil
}

// Metaversion returns the segment's current concurrency token.
func (s *Segment) Metaversion() Metaversion { return s.metaversion }

// bumpMetaversion advances the persisted counter once a flush completes.
func (s *Segment) bumpMetaversion() { s.metaversion.Persisted++ }

func (s *Segment) write(offset int64, data []byte) {
	copy(s.data[offset:offset+int64(len(data))], data)
}

func (s *Segment) read(offset, length int64) []byte {
	return s.data[offset : offset+length]
}

// copyWithin relocates a byte run inside the segment's own buffer. Go's
// built-in copy is overlap-safe (it behaves like memmove), which is what
// lets the Flush Engine's left-to-right / right-to-left orderings stay
// in-place without a scratch buffer.
func (s *Segment) copyWithin(srcOffset, dstOffset, length int64) {
	copy(s.data[dstOffset:dstOffset+length], s.data[srcOffset:srcOffset+length])
}

// Bytes returns the segment's full data region. Intended for tests and for
// handing a read snapshot to a consistent reader.
func (s *Segment) Bytes() []byte { return s.data }

// dynamicMetadataWire is the msgpack wire shape of DynamicMetadata, encoded
// into the segment's metadata block: per-buffer offset/length/padding,
// per-node length/null-count. msgpack is used here, not JSON, so the block
// stays a compact length-prefixed binary header rather than a
// self-describing text format.
type dynamicMetadataWire struct {
	Nodes      []nodeMetaWire `msgpack:"nodes"`
	DataLength int64          `msgpack:"data_length"`
}

type nodeMetaWire struct {
	Name      string           `msgpack:"name"`
	Length    int              `msgpack:"length"`
	NullCount int              `msgpack:"null_count"`
	Buffers   []bufferMetaWire `msgpack:"buffers"`
	Children  []nodeMetaWire   `msgpack:"children"`
}

type bufferMetaWire struct {
	Kind    int   `msgpack:"kind"`
	Offset  int64 `msgpack:"offset"`
	Length  int64 `msgpack:"length"`
	Padding int64 `msgpack:"padding"`
}

// EncodeDynamicMetadata serializes meta into the msgpack bytes the segment's
// metadata block stores.
func EncodeDynamicMetadata(meta DynamicMetadata) ([]byte, error) {
	wire := dynamicMetadataWire{DataLength: meta.DataLength}
	for _, n := range meta.Nodes {
		wire.Nodes = append(wire.Nodes, encodeNodeMeta(n))
	}
	return msgpack.Marshal(wire)
}

func encodeNodeMeta(n NodeMeta) nodeMetaWire {
	nw := nodeMetaWire{Name: n.Name, Length: n.Length, NullCount: n.NullCount}
	for _, b := range n.Buffers {
		nw.Buffers = append(nw.Buffers, bufferMetaWire{Kind: int(b.Kind), Offset: b.Offset, Length: b.Length, Padding: b.Padding})
	}
	for _, c := range n.Children {
		nw.Children = append(nw.Children, encodeNodeMeta(c))
	}
	return nw
}

// DecodeDynamicMetadata parses the msgpack bytes produced by
// EncodeDynamicMetadata back into a DynamicMetadata.
func DecodeDynamicMetadata(data []byte) (DynamicMetadata, error) {
	var wire dynamicMetadataWire
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return DynamicMetadata{}, fmt.Errorf("arrowmig: decoding dynamic metadata: %w", err)
	}
	meta := DynamicMetadata{DataLength: wire.DataLength}
	for _, nw := range wire.Nodes {
		meta.Nodes = append(meta.Nodes, decodeNodeMeta(nw))
	}
	return meta, nil
}

func decodeNodeMeta(nw nodeMetaWire) NodeMeta {
	n := NodeMeta{Name: nw.Name, Length: nw.Length, NullCount: nw.NullCount}
	for _, bw := range nw.Buffers {
		n.Buffers = append(n.Buffers, BufferMeta{Kind: BufferKind(bw.Kind), Offset: bw.Offset, Length: bw.Length, Padding: bw.Padding})
	}
	for _, cw := range nw.Children {
		n.Children = append(n.Children, decodeNodeMeta(cw))
	}
	return n
}
