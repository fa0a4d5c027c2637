package algebra

import (
	"bytes"
	"testing"

	"github.com/Reeywhaar/bin-diff/block"
	"github.com/Reeywhaar/bin-diff/diffstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, blocks ...block.Block) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, b := range blocks {
		require.NoError(t, block.EncodeOne(&buf, b))
	}
	return &buf
}

func decodeAll(t *testing.T, r *bytes.Buffer) []block.Block {
	t.Helper()
	s := diffstream.New(r)
	var out []block.Block
	for {
		b, err := s.Next()
		if err != nil {
			break
		}
		out = append(out, b)
	}
	return out
}

func TestSumFusesRemoveThenAddIntoReplace(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewSkip(1), block.NewRemove(3)))
	d2 := diffstream.New(encode(t, block.NewAdd([]byte("XY"))))

	var out bytes.Buffer
	require.NoError(t, Sum(&out, d1, d2))

	got := decodeAll(t, &out)
	require.Len(t, got, 2)
	assert.Equal(t, block.Skip, got[0].Action)
	assert.True(t, got[1].Equal(block.NewReplace(3, []byte("XY"))))
}

func TestSumDoesNotFuseSkipAndAdd(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewSkip(4)))
	d2 := diffstream.New(encode(t, block.NewAdd([]byte("Z"))))

	var out bytes.Buffer
	require.NoError(t, Sum(&out, d1, d2))

	got := decodeAll(t, &out)
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(block.NewSkip(4)))
	assert.True(t, got[1].Equal(block.NewAdd([]byte("Z"))))
}

func TestSumFusesSkipAndSkip(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewSkip(4)))
	d2 := diffstream.New(encode(t, block.NewSkip(6)))

	var out bytes.Buffer
	require.NoError(t, Sum(&out, d1, d2))

	got := decodeAll(t, &out)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(block.NewSkip(10)))
}

func TestSumWithEmptyD1IsD2(t *testing.T) {
	d1 := diffstream.New(encode(t))
	d2 := diffstream.New(encode(t, block.NewAdd([]byte("hi"))))

	var out bytes.Buffer
	require.NoError(t, Sum(&out, d1, d2))

	got := decodeAll(t, &out)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(block.NewAdd([]byte("hi"))))
}

func TestSumWithEmptyD2IsD1(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewSkip(3)))
	d2 := diffstream.New(encode(t))

	var out bytes.Buffer
	require.NoError(t, Sum(&out, d1, d2))

	got := decodeAll(t, &out)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(block.NewSkip(3)))
}

func TestSumOverflowDoesNotFuse(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewSkip(block.MaxLength)))
	d2 := diffstream.New(encode(t, block.NewSkip(1)))

	var out bytes.Buffer
	require.NoError(t, Sum(&out, d1, d2))

	got := decodeAll(t, &out)
	require.Len(t, got, 2, "a fused length would overflow uint32, so the seam must stay unfused")
	assert.True(t, got[0].Equal(block.NewSkip(block.MaxLength)))
	assert.True(t, got[1].Equal(block.NewSkip(1)))
}

func TestSumFusesReplaceAndRemoveRun(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewRemove(2)))
	d2 := diffstream.New(encode(t, block.NewReplace(3, []byte("q"))))

	var out bytes.Buffer
	require.NoError(t, Sum(&out, d1, d2))

	got := decodeAll(t, &out)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(block.NewReplace(5, []byte("q"))))
}

func TestSumFusesReplaceAndAdd(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewReplace(2, []byte("ab"))))
	d2 := diffstream.New(encode(t, block.NewAdd([]byte("cd"))))

	var out bytes.Buffer
	require.NoError(t, Sum(&out, d1, d2))

	got := decodeAll(t, &out)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(block.NewReplace(2, []byte("abcd"))))
}

func TestSumFusesReplaceSameAndAdd(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewReplaceSame([]byte("ab"))))
	d2 := diffstream.New(encode(t, block.NewAdd([]byte("cd"))))

	var out bytes.Buffer
	require.NoError(t, Sum(&out, d1, d2))

	got := decodeAll(t, &out)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(block.NewReplace(2, []byte("abcd"))))
}
