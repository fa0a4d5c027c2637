// Package apply is the reference collaborator that turns a diff stream
// plus a source reader into an output writer (spec §6, explicitly out
// of the metaformat's own scope). It exists so the algebra's end-to-end
// laws (spec §8: apply(D1|D2, A) == apply(D2, apply(D1, A))) are
// independently testable against something that isn't the algebra
// itself.
//
// The shoveling loop is grounded on the teacher's toyqueue.Pump: read
// one unit of work, drain it, repeat until the feeder reports an error
// (io.EOF on clean completion).
package apply

import (
	"bufio"
	"errors"
	"io"

	"github.com/Reeywhaar/bin-diff/block"
	"github.com/Reeywhaar/bin-diff/diffstream"
)

// ErrSourceTooShort is returned when a block's Skip/Remove/Replace
// source-side length reaches past the end of the source reader.
var ErrSourceTooShort = errors.New("apply: source exhausted before diff")

// ErrTrailingSource is returned when the source reader still has bytes
// left after every block in the diff has been applied.
var ErrTrailingSource = errors.New("apply: source has unconsumed trailing bytes")

// Apply reads diff blocks from r and source bytes from src, writing the
// resulting byte stream to w. It is a straightforward single-pass
// interpreter, not an optimization target: production-grade diff/patch
// record pumping belongs to a format-specific wrapper, not this core.
func Apply(w io.Writer, r io.Reader, src io.Reader) error {
	s := diffstream.New(r)
	br := bufio.NewReader(src)

	for {
		b, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := applyOne(w, br, b); err != nil {
			return err
		}
	}

	if _, err := br.Peek(1); err != io.EOF {
		return ErrTrailingSource
	}
	return nil
}

func applyOne(w io.Writer, src *bufio.Reader, b block.Block) error {
	switch b.Action {
	case block.Skip:
		if _, err := io.CopyN(w, src, int64(b.Length)); err != nil {
			return wrapShortRead(err)
		}
	case block.Add:
		if _, err := w.Write(b.Data); err != nil {
			return err
		}
	case block.Remove:
		if _, err := io.CopyN(io.Discard, src, int64(b.Length)); err != nil {
			return wrapShortRead(err)
		}
	case block.Replace:
		if _, err := io.CopyN(io.Discard, src, int64(b.RemoveLength)); err != nil {
			return wrapShortRead(err)
		}
		if _, err := w.Write(b.Data); err != nil {
			return err
		}
	case block.ReplaceSame:
		if _, err := io.CopyN(io.Discard, src, int64(b.Length)); err != nil {
			return wrapShortRead(err)
		}
		if _, err := w.Write(b.Data); err != nil {
			return err
		}
	}
	return nil
}

func wrapShortRead(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrSourceTooShort
	}
	return err
}
