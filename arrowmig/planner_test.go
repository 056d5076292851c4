package arrowmig_test

import (
	"encoding/binary"
	"testing"

	"github.com/hashintel/graphcompiler/arrowmig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeInt64s(values ...int64) []byte {
	out := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[i*8:], uint64(v))
	}
	return out
}

func decodeInt64s(data []byte) []int64 {
	out := make([]int64, len(data)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out
}

func oldMetaFixedWidth(validityOffset, validityLen, dataOffset, dataLen int64) arrowmig.DynamicMetadata {
	return arrowmig.DynamicMetadata{Nodes: []arrowmig.NodeMeta{{
		Name:   "col",
		Length: 5,
		Buffers: []arrowmig.BufferMeta{
			{Kind: arrowmig.BufferValidity, Offset: validityOffset, Length: validityLen},
			{Kind: arrowmig.BufferData, Offset: dataOffset, Length: dataLen},
		},
	}}}
}

func TestPlanner_RemoveAndCreate_FixedWidth(t *testing.T) {
	oldValues := []int64{10, 20, 30, 40, 50}
	oldData := encodeInt64s(oldValues...)

	oldMeta := oldMetaFixedWidth(0, 1, 8, int64(len(oldData)))

	seg := arrowmig.NewSegment(8 + int64(len(oldData)))
	// Segment.write is unexported; populate the old Data buffer by hand
	// by copying directly into Bytes().
	copy(seg.Bytes()[8:], oldData)

	input := arrowmig.ColumnPlanInput{
		Name:    "col",
		Layout:  arrowmig.ColumnLayout{FixedWidth: 8},
		OldLen:  5,
		Actions: arrowmig.NewRowActions([]int{2}, nil, 1),
		Old:     arrowmig.ColumnSource{Data: oldData},
		Create:  arrowmig.ColumnSource{Data: encodeInt64s(99)},
	}

	planner := arrowmig.NewPlanner()
	actions, newMeta, err := planner.Plan(oldMeta, []arrowmig.ColumnPlanInput{input})
	require.NoError(t, err)
	require.Len(t, newMeta.Nodes, 1)
	assert.Equal(t, 5, newMeta.Nodes[0].Length, "length conservation: 5 - 1 remove + 0 copy + 1 create")
	assert.Equal(t, 0, newMeta.Nodes[0].NullCount)

	err = arrowmig.Flush(seg, actions, newMeta.DataLength)
	require.NoError(t, err)

	dataBuf, ok := newMeta.Nodes[0].BufferOf(arrowmig.BufferData)
	require.True(t, ok)
	got := decodeInt64s(seg.Bytes()[dataBuf.Offset : dataBuf.Offset+dataBuf.Length])
	assert.Equal(t, []int64{10, 20, 40, 50, 99}, got)
}

func TestPlanner_EmptyMigration_IsIdempotent(t *testing.T) {
	oldValues := []int64{1, 2, 3}
	oldData := encodeInt64s(oldValues...)
	oldMeta := oldMetaFixedWidth(0, 1, 8, int64(len(oldData)))

	seg := arrowmig.NewSegment(8 + int64(len(oldData)))
	copy(seg.Bytes()[8:], oldData)
	before := append([]byte(nil), seg.Bytes()...)

	input := arrowmig.ColumnPlanInput{
		Name:    "col",
		Layout:  arrowmig.ColumnLayout{FixedWidth: 8},
		OldLen:  3,
		Actions: arrowmig.NewRowActions(nil, nil, 0),
		Old:     arrowmig.ColumnSource{Data: oldData},
	}

	planner := arrowmig.NewPlanner()
	actions, newMeta, err := planner.Plan(oldMeta, []arrowmig.ColumnPlanInput{input})
	require.NoError(t, err)
	assert.Equal(t, 3, newMeta.Nodes[0].Length)

	require.NoError(t, arrowmig.Flush(seg, actions, newMeta.DataLength))

	dataBuf, _ := newMeta.Nodes[0].BufferOf(arrowmig.BufferData)
	got := seg.Bytes()[dataBuf.Offset : dataBuf.Offset+dataBuf.Length]
	assert.Equal(t, decodeInt64s(before[8:]), decodeInt64s(got))
}

func TestPlanner_FixedSizeListOfTwo_ScalesChildRanges(t *testing.T) {
	// Three rows of a 2-element fixed-size list: [1,2], [3,4], [5,6].
	oldChildData := encodeInt64s(1, 2, 3, 4, 5, 6)

	oldMeta := arrowmig.DynamicMetadata{Nodes: []arrowmig.NodeMeta{{
		Name:   "points",
		Length: 3,
		Buffers: []arrowmig.BufferMeta{
			{Kind: arrowmig.BufferValidity, Offset: 0, Length: 1},
		},
		Children: []arrowmig.NodeMeta{{
			Name:   "coord",
			Length: 6,
			Buffers: []arrowmig.BufferMeta{
				{Kind: arrowmig.BufferValidity, Offset: 8, Length: 1},
				{Kind: arrowmig.BufferData, Offset: 16, Length: int64(len(oldChildData))},
			},
		}},
	}}}

	seg := arrowmig.NewSegment(16 + int64(len(oldChildData)))
	copy(seg.Bytes()[16:], oldChildData)

	input := arrowmig.ColumnPlanInput{
		Name:    "points",
		Layout:  arrowmig.ColumnLayout{ListMultiplier: 2},
		OldLen:  3,
		Actions: arrowmig.NewRowActions([]int{1}, nil, 1), // drop row 1 ([3,4]), append one new row
		Children: []arrowmig.ColumnPlanInput{{
			Name:   "coord",
			Layout: arrowmig.ColumnLayout{FixedWidth: 8},
			Old:    arrowmig.ColumnSource{Data: oldChildData},
			Create: arrowmig.ColumnSource{Data: encodeInt64s(9, 9)},
		}},
	}

	planner := arrowmig.NewPlanner()
	actions, newMeta, err := planner.Plan(oldMeta, []arrowmig.ColumnPlanInput{input})
	require.NoError(t, err)
	require.Len(t, newMeta.Nodes, 1)
	assert.Equal(t, 3, newMeta.Nodes[0].Length, "row count is conserved: 3 - 1 remove + 1 create")
	require.Len(t, newMeta.Nodes[0].Children, 1)
	assert.Equal(t, 6, newMeta.Nodes[0].Children[0].Length, "child unit count scales by the list multiplier: 3 rows * 2")
	require.Len(t, actions.Columns, 1)
	require.Len(t, actions.Columns[0].Children, 1)
	assert.False(t, actions.Columns[0].HasData, "a fixed-size-list parent owns no Data buffer of its own")
	assert.True(t, actions.Columns[0].Children[0].HasData)

	require.NoError(t, arrowmig.Flush(seg, actions, newMeta.DataLength))

	dataBuf, ok := newMeta.Nodes[0].Children[0].BufferOf(arrowmig.BufferData)
	require.True(t, ok)
	got := decodeInt64s(seg.Bytes()[dataBuf.Offset : dataBuf.Offset+dataBuf.Length])
	assert.Equal(t, []int64{1, 2, 5, 6, 9, 9}, got, "row 1's pair is dropped, the surviving pairs keep their order, the new pair is appended")
}

func TestPlanner_VariableWidth_OffsetMonotonicityAndRebase(t *testing.T) {
	// Old strings: "aa", "bbb", "c" -> offsets [0,2,5,6], data "aabbbc"
	oldOffsets := []int32{0, 2, 5, 6}
	oldData := []byte("aabbbc")
	oldMeta := arrowmig.DynamicMetadata{Nodes: []arrowmig.NodeMeta{{
		Name:   "s",
		Length: 3,
		Buffers: []arrowmig.BufferMeta{
			{Kind: arrowmig.BufferValidity, Offset: 0, Length: 1},
			{Kind: arrowmig.BufferOffset, Offset: 8, Length: int64(len(oldOffsets) * 4)},
			{Kind: arrowmig.BufferData, Offset: 24, Length: int64(len(oldData))},
		},
	}}}

	seg := arrowmig.NewSegment(24 + int64(len(oldData)))

	input := arrowmig.ColumnPlanInput{
		Name:    "s",
		Layout:  arrowmig.ColumnLayout{},
		OldLen:  3,
		Actions: arrowmig.NewRowActions([]int{0}, nil, 1), // remove "aa", create one new string
		Old:     arrowmig.ColumnSource{Data: oldData, Offsets: oldOffsets},
		Create:  arrowmig.ColumnSource{Data: []byte("dddd"), Offsets: []int32{0, 4}},
	}

	planner := arrowmig.NewPlanner()
	actions, newMeta, err := planner.Plan(oldMeta, []arrowmig.ColumnPlanInput{input})
	require.NoError(t, err)
	assert.Equal(t, 3, newMeta.Nodes[0].Length)

	// Seed the segment's old Data buffer so the retained-range shift has
	// something to read.
	copy(seg.Bytes()[24:], oldData)

	require.NoError(t, arrowmig.Flush(seg, actions, newMeta.DataLength))

	offBuf, ok := newMeta.Nodes[0].BufferOf(arrowmig.BufferOffset)
	require.True(t, ok)
	raw := seg.Bytes()[offBuf.Offset : offBuf.Offset+offBuf.Length]
	offsets := make([]int32, len(raw)/4)
	for i := range offsets {
		offsets[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	require.Len(t, offsets, 4)
	assert.Equal(t, int32(0), offsets[0], "offset buffer must start at zero")
	for i := 1; i < len(offsets); i++ {
		assert.LessOrEqual(t, offsets[i-1], offsets[i], "offsets must be monotonic")
	}
	assert.Equal(t, int32(3), offsets[1], "retained 'bbb' keeps its own length")
	assert.Equal(t, int32(4), offsets[2], "retained 'c' keeps its own length")
	assert.Equal(t, int32(8), offsets[3], "created 'dddd' appended at the tail")
}
