package diffstream

import (
	"bytes"
	"io"
	"testing"

	"github.com/Reeywhaar/bin-diff/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeAll(t *testing.T, blocks ...block.Block) *bytes.Buffer {
	var buf bytes.Buffer
	for _, b := range blocks {
		require.NoError(t, block.EncodeOne(&buf, b))
	}
	return &buf
}

func TestNextYieldsBlocksInOrder(t *testing.T) {
	buf := encodeAll(t, block.NewSkip(1), block.NewAdd([]byte("x")))
	s := New(buf)

	b1, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, block.Skip, b1.Action)

	b2, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, block.Add, b2.Action)

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPeekDoesNotConsume(t *testing.T) {
	buf := encodeAll(t, block.NewSkip(1))
	s := New(buf)

	p1, err := s.Peek()
	require.NoError(t, err)
	p2, err := s.Peek()
	require.NoError(t, err)
	assert.True(t, p1.Equal(p2))

	n, err := s.Next()
	require.NoError(t, err)
	assert.True(t, n.Equal(p1))

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPutBackReturnsBlockToFront(t *testing.T) {
	buf := encodeAll(t, block.NewSkip(5))
	s := New(buf)

	residual := block.NewSkip(2)
	require.NoError(t, s.PutBack(residual))

	got, err := s.Next()
	require.NoError(t, err)
	assert.True(t, got.Equal(residual))

	got2, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(5), got2.Length)
}

func TestPutBackSlotIsSingle(t *testing.T) {
	s := New(bytes.NewReader(nil))
	require.NoError(t, s.PutBack(block.NewSkip(1)))
	err := s.PutBack(block.NewSkip(2))
	assert.ErrorIs(t, err, ErrPushbackFull)
}

func TestEmptyStreamIsWellFormed(t *testing.T) {
	s := New(bytes.NewReader(nil))
	_, err := s.Next()
	assert.ErrorIs(t, err, io.EOF)
}
