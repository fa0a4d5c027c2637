// Package algebra implements the two binary operations over diff
// streams: Sum (concatenation with seam fusion) and Combine (transitive
// composition without materializing the intermediate byte stream). This
// is the hard, interesting part of the metaformat; everything upstream
// (block, diffstream) exists to support it.
package algebra

import (
	"errors"
	"io"

	"github.com/Reeywhaar/bin-diff/block"
	"github.com/Reeywhaar/bin-diff/diffstream"
)

// ErrLengthOverflow is the sentinel for spec's closed LengthOverflow error
// kind: an algebra operation would have to produce a length field ≥ 2^32.
// Sum never returns it — on overflow it backs off to emitting the pair
// unfused (see fuse's doc comment) rather than failing. Combine never
// returns it either: see DESIGN.md for why its two-cursor walk can't
// construct an oversized block in the first place. The sentinel is still
// declared, both named symbols in spec §7 must exist, and it remains
// available to any future Combine strategy (e.g. a batching wrapper) that
// does sum lengths and needs to fail loudly instead of silently.
var ErrLengthOverflow = errors.New("algebra: length field would overflow")

// Sum streams all blocks of d1, then all blocks of d2, into w, fusing
// the last block of d1 with the first block of d2 per the seam table
// (spec §4.3) when possible. Fusion is applied only once, at the seam;
// the interior of each input is assumed to already be in canonical
// fused form (this implementation's resolution of the Open Question in
// spec §9 — see DESIGN.md).
func Sum(w io.Writer, d1, d2 *diffstream.Stream) error {
	var pending *block.Block
	for {
		b, err := d1.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if pending != nil {
			if err := block.EncodeOne(w, *pending); err != nil {
				return err
			}
		}
		cur := b
		pending = &cur
	}

	first, firstErr := d2.Next()
	if firstErr != nil && firstErr != io.EOF {
		return firstErr
	}
	hasFirst := firstErr == nil

	if pending != nil && hasFirst {
		if fused, ok := fuse(*pending, first); ok {
			pending = &fused
			hasFirst = false
		}
	}

	if pending != nil {
		if err := block.EncodeOne(w, *pending); err != nil {
			return err
		}
	}
	if hasFirst {
		if err := block.EncodeOne(w, first); err != nil {
			return err
		}
	}

	for {
		b, err := d2.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := block.EncodeOne(w, b); err != nil {
			return err
		}
	}
}

// fuse applies the seam table of spec §4.3 to a (last of d1, first of
// d2) pair. ok is false when no rule applies (the pair must be emitted
// as two separate blocks) or when fusing would overflow a length field
// (spec's Overflow rule: emit unfused rather than overflow).
func fuse(last, first block.Block) (block.Block, bool) {
	switch {
	case last.Action == block.Skip && first.Action == block.Skip:
		sum, ok := addLengths(last.Length, first.Length)
		if !ok {
			return block.Block{}, false
		}
		return block.NewSkip(sum), true

	case last.Action == block.Add && first.Action == block.Add:
		if !lengthFits(len(last.Data) + len(first.Data)) {
			return block.Block{}, false
		}
		return block.NewAdd(concat(last.Data, first.Data)), true

	case last.Action == block.Remove && first.Action == block.Remove:
		sum, ok := addLengths(last.Length, first.Length)
		if !ok {
			return block.Block{}, false
		}
		return block.NewRemove(sum), true

	case last.Action == block.Remove && first.Action == block.Add:
		return block.NewReplace(last.Length, first.Data), true

	case last.Action == block.Remove && (first.Action == block.Replace || first.Action == block.ReplaceSame):
		removeLength := firstRemoveLength(first)
		sum, ok := addLengths(last.Length, removeLength)
		if !ok {
			return block.Block{}, false
		}
		return block.NewReplace(sum, first.Data), true

	case last.Action == block.Replace && first.Action == block.Add:
		if !lengthFits(len(last.Data) + len(first.Data)) {
			return block.Block{}, false
		}
		return block.NewReplace(last.RemoveLength, concat(last.Data, first.Data)), true

	case last.Action == block.ReplaceSame && first.Action == block.Add:
		if !lengthFits(len(last.Data) + len(first.Data)) {
			return block.Block{}, false
		}
		return block.NewReplace(last.Length, concat(last.Data, first.Data)), true

	default:
		return block.Block{}, false
	}
}

func firstRemoveLength(b block.Block) uint32 {
	if b.Action == block.ReplaceSame {
		return b.Length
	}
	return b.RemoveLength
}

func addLengths(a, b uint32) (uint32, bool) {
	sum := uint64(a) + uint64(b)
	if sum > block.MaxLength {
		return 0, false
	}
	return uint32(sum), true
}

func lengthFits(n int) bool {
	return n >= 0 && uint64(n) <= block.MaxLength
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
