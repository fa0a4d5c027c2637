// Package diffstream provides a lazy, forward-only cursor over the
// blocks of a diff. It drives the block codec and adds the single-slot
// pushback the algebra needs to carry partial-block remainders across
// reduction steps. It never buffers more than one block ahead.
package diffstream

import (
	"errors"
	"io"

	"github.com/Reeywhaar/bin-diff/block"
)

// Stream is a forward cursor over an underlying byte source, reading
// one block at a time. It has no random access, no rewind, and no size
// query: the only operations are Next, Peek, and PutBack.
type Stream struct {
	r        io.Reader
	lookahead *block.Block
	lookaheadErr error
	haveLookahead bool
	pushedBack *block.Block
}

// New wraps r as a Stream.
func New(r io.Reader) *Stream {
	return &Stream{r: r}
}

// Next consumes and returns the next block. It returns io.EOF when the
// stream is exhausted, or an error from the codec (wrapping
// block.ErrMalformedBlock or block.ErrIoError) on a bad read.
func (s *Stream) Next() (block.Block, error) {
	if s.pushedBack != nil {
		b := *s.pushedBack
		s.pushedBack = nil
		return b, nil
	}
	if s.haveLookahead {
		b, err := *s.lookahead, s.lookaheadErr
		s.haveLookahead = false
		s.lookahead = nil
		s.lookaheadErr = nil
		return b, err
	}
	return block.DecodeOne(s.r)
}

// Peek returns the next block without consuming it. Calling Peek
// repeatedly returns the same block until Next or PutBack is called.
func (s *Stream) Peek() (block.Block, error) {
	if s.pushedBack != nil {
		return *s.pushedBack, nil
	}
	if s.haveLookahead {
		return *s.lookahead, s.lookaheadErr
	}
	b, err := block.DecodeOne(s.r)
	s.lookahead = &b
	s.lookaheadErr = err
	s.haveLookahead = true
	return b, err
}

// ErrPushbackFull is returned by PutBack when a block has already been
// pushed back and not yet consumed by Next (Peek does not consume it).
var ErrPushbackFull = errors.New("diffstream: pushback slot already occupied")

// PutBack returns a block to the front of the stream, to be the next
// one yielded by Next or Peek. Only one block may be pending at a time;
// this is the single slot of buffering the algebra is permitted (spec
// §5, §9).
func (s *Stream) PutBack(b block.Block) error {
	if s.pushedBack != nil {
		return ErrPushbackFull
	}
	s.pushedBack = &b
	return nil
}
