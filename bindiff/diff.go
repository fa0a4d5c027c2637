// Package bindiff glues the block codec, the diff stream, and the
// algebra into a single buffered value: the package most callers
// actually import, rather than block/diffstream/algebra directly.
package bindiff

import (
	"bytes"
	"io"

	"github.com/Reeywhaar/bin-diff/algebra"
	"github.com/Reeywhaar/bin-diff/block"
	"github.com/Reeywhaar/bin-diff/diffstream"
)

// Diff is a fully-read, in-memory diff: the encoded wire bytes plus
// lazily decoded blocks for introspection. Sum and Combine operate on
// the wire bytes directly, so neither ever allocates more than its
// output.
type Diff struct {
	encoded []byte
}

// ReadDiff reads all blocks from r and returns them as a Diff. It
// fails on the first malformed block.
func ReadDiff(r io.Reader) (Diff, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return Diff{}, err
	}
	// Validate eagerly: a Diff value should never wrap unparsable bytes.
	s := diffstream.New(bytes.NewReader(buf))
	for {
		_, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Diff{}, err
		}
	}
	return Diff{encoded: buf}, nil
}

// FromBlocks encodes blocks into a Diff.
func FromBlocks(blocks ...block.Block) (Diff, error) {
	var buf bytes.Buffer
	for _, b := range blocks {
		if err := block.EncodeOne(&buf, b); err != nil {
			return Diff{}, err
		}
	}
	return Diff{encoded: buf.Bytes()}, nil
}

// WriteTo writes the diff's wire bytes to w, satisfying io.WriterTo.
func (d Diff) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.encoded)
	return int64(n), err
}

// Bytes returns the diff's encoded wire form. Callers must not mutate
// the returned slice.
func (d Diff) Bytes() []byte {
	return d.encoded
}

func (d Diff) stream() *diffstream.Stream {
	return diffstream.New(bytes.NewReader(d.encoded))
}

// Sum concatenates d and other over contiguous source regions (spec
// §4.3), fusing the seam between them where the fusion table applies.
func (d Diff) Sum(other Diff) (Diff, error) {
	var buf bytes.Buffer
	if err := algebra.Sum(&buf, d.stream(), other.stream()); err != nil {
		return Diff{}, err
	}
	return Diff{encoded: buf.Bytes()}, nil
}

// Combine composes d (A→B) with other (B→C) into a diff A→C, without
// materializing B (spec §4.4).
func (d Diff) Combine(other Diff) (Diff, error) {
	var buf bytes.Buffer
	if err := algebra.Combine(&buf, d.stream(), other.stream()); err != nil {
		return Diff{}, err
	}
	return Diff{encoded: buf.Bytes()}, nil
}

// Canonicalize returns an equivalent Diff with every adjacent pair of
// blocks fused as far as the §4.3 seam table allows. Sum requires its
// inputs already be in this form (see DESIGN.md); this is how a caller
// holding an un-canonicalized diff gets there explicitly.
func (d Diff) Canonicalize() (Diff, error) {
	s := d.stream()
	acc, err := FromBlocks()
	if err != nil {
		return Diff{}, err
	}
	for {
		b, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Diff{}, err
		}
		if b.IsNoop() {
			continue
		}
		next, err := FromBlocks(b)
		if err != nil {
			return Diff{}, err
		}
		acc, err = acc.Sum(next)
		if err != nil {
			return Diff{}, err
		}
	}
	return acc, nil
}

// Stat summarizes a diff's block composition: how many blocks of each
// action it holds, and how many source/output bytes they account for.
// Not part of spec.md's operation list; a read-only introspection
// extension used by diffmetrics and by tests asserting fusion occurred.
type Stat struct {
	SkipCount, AddCount, RemoveCount, ReplaceCount, ReplaceSameCount int
	SourceBytes, OutputBytes                                        uint64
}

// Stat walks the diff once and reports Stat.
func (d Diff) Stat() (Stat, error) {
	var st Stat
	s := d.stream()
	for {
		b, err := s.Next()
		if err == io.EOF {
			return st, nil
		}
		if err != nil {
			return Stat{}, err
		}
		switch b.Action {
		case block.Skip:
			st.SkipCount++
		case block.Add:
			st.AddCount++
		case block.Remove:
			st.RemoveCount++
		case block.Replace:
			st.ReplaceCount++
		case block.ReplaceSame:
			st.ReplaceSameCount++
		}
		st.SourceBytes += uint64(b.SourceAdvance())
		st.OutputBytes += uint64(b.OutputLength())
	}
}
