package algebra

import (
	"bytes"
	"testing"

	"github.com/Reeywhaar/bin-diff/block"
	"github.com/Reeywhaar/bin-diff/diffstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// applyBlocks is a minimal, test-only reference interpreter for a block
// sequence against a source buffer, used to check Combine's output is
// semantically equivalent to composing its two inputs (apply(D1|D2, A)
// == apply(D2, apply(D1, A))), not just structurally plausible.
func applyBlocks(t *testing.T, source []byte, blocks []block.Block) []byte {
	t.Helper()
	var out []byte
	var pos uint32
	for _, b := range blocks {
		switch b.Action {
		case block.Skip:
			out = append(out, source[pos:pos+b.Length]...)
			pos += b.Length
		case block.Add:
			out = append(out, b.Data...)
		case block.Remove:
			pos += b.Length
		case block.Replace:
			pos += b.RemoveLength
			out = append(out, b.Data...)
		case block.ReplaceSame:
			pos += b.Length
			out = append(out, b.Data...)
		}
	}
	require.Equal(t, int(pos), len(source), "block sequence must consume all of source")
	return out
}

func TestCombineAlignmentMismatchIsUnmatchedDiffLength(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewSkip(3)))
	d2 := diffstream.New(encode(t, block.NewSkip(5)))

	var out bytes.Buffer
	err := Combine(&out, d1, d2)
	assert.ErrorIs(t, err, ErrUnmatchedDiffLength)
}

func TestCombineD2ExpectsMoreThanD1ProducesErrors(t *testing.T) {
	d1 := diffstream.New(encode(t))
	d2 := diffstream.New(encode(t, block.NewSkip(1)))

	var out bytes.Buffer
	err := Combine(&out, d1, d2)
	assert.ErrorIs(t, err, ErrUnmatchedDiffLength)
}

func TestCombineD1LeavesUnconsumedBytesErrors(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewAdd([]byte("xy"))))
	d2 := diffstream.New(encode(t))

	var out bytes.Buffer
	err := Combine(&out, d1, d2)
	assert.ErrorIs(t, err, ErrUnmatchedDiffLength)
}

func TestCombineAddThenRemoveAnnihilates(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewAdd([]byte("XY"))))
	d2 := diffstream.New(encode(t, block.NewRemove(2)))

	var out bytes.Buffer
	require.NoError(t, Combine(&out, d1, d2))
	assert.Equal(t, 0, out.Len())
}

func TestCombineReplaceThenReplaceFuses(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewReplace(2, []byte("ab"))))
	d2 := diffstream.New(encode(t, block.NewReplace(2, []byte("cd"))))

	var out bytes.Buffer
	require.NoError(t, Combine(&out, d1, d2))

	got := decodeAll(t, &out)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(block.NewReplace(2, []byte("cd"))))
}

func TestCombineTrailingAddAfterD1ExhaustionIsValid(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewSkip(1)))
	d2 := diffstream.New(encode(t, block.NewSkip(1), block.NewAdd([]byte("tail"))))

	var out bytes.Buffer
	require.NoError(t, Combine(&out, d1, d2))

	got := decodeAll(t, &out)
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(block.NewSkip(1)))
	assert.True(t, got[1].Equal(block.NewAdd([]byte("tail"))))
}

func TestCombineTrailingRemoveAfterD2ExhaustionIsValid(t *testing.T) {
	d1 := diffstream.New(encode(t, block.NewSkip(1), block.NewRemove(4)))
	d2 := diffstream.New(encode(t, block.NewSkip(1)))

	var out bytes.Buffer
	require.NoError(t, Combine(&out, d1, d2))

	got := decodeAll(t, &out)
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(block.NewSkip(1)))
	assert.True(t, got[1].Equal(block.NewRemove(4)))
}

func TestCombineIdentityWithPureSkip(t *testing.T) {
	source := []byte("abcdef")
	d1 := diffstream.New(encode(t, block.NewSkip(uint32(len(source)))))
	d2 := diffstream.New(encode(t, block.NewSkip(uint32(len(source)))))

	var out bytes.Buffer
	require.NoError(t, Combine(&out, d1, d2))

	got := decodeAll(t, &out)
	result := applyBlocks(t, source, got)
	assert.Equal(t, source, result)
}

func TestCombineEndToEndMatchesSequentialApply(t *testing.T) {
	source := []byte("HELLO")

	d1Blocks := []block.Block{
		block.NewSkip(1),
		block.NewReplaceSame([]byte("X")),
		block.NewSkip(3),
	}
	d2Blocks := []block.Block{
		block.NewSkip(3),
		block.NewRemove(1),
		block.NewSkip(1),
	}

	mid := applyBlocks(t, source, d1Blocks)
	assert.Equal(t, "HXLLO", string(mid))
	final := applyBlocks(t, mid, d2Blocks)
	assert.Equal(t, "HXLO", string(final))

	d1 := diffstream.New(encode(t, d1Blocks...))
	d2 := diffstream.New(encode(t, d2Blocks...))

	var out bytes.Buffer
	require.NoError(t, Combine(&out, d1, d2))

	combined := decodeAll(t, &out)
	gotFinal := applyBlocks(t, source, combined)
	assert.Equal(t, string(final), string(gotFinal))
}
