package algebra

import (
	"errors"
	"io"

	"github.com/Reeywhaar/bin-diff/block"
	"github.com/Reeywhaar/bin-diff/diffstream"
	"golang.org/x/exp/constraints"
)

// ErrUnmatchedDiffLength is returned when D1 and D2 disagree on the
// length of the intermediate B stream: either D1 still owes B bytes
// that D2 never addresses, or D2 still expects B bytes D1 never
// produced (spec §4.4 Termination).
var ErrUnmatchedDiffLength = errors.New("algebra: unmatched diff length")

func minLen[T constraints.Unsigned](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// d1unit is the currently-being-consumed B-producing fragment of D1's
// head block. kind is 0 (empty, need a new D1 block), 'S' (Skip,
// remaining n bytes pass through), or 'A' (Add, remaining data bytes
// injected). D1's Remove never becomes a unit: it is emitted the
// instant it is read (spec's "advance only D1" rule).
type d1unit struct {
	kind byte
	n    uint32
	data []byte
}

// d2unit is the currently-being-consumed B-consuming fragment of D2's
// head block. kind is 0, 'S' (Skip, passes B through to C), or 'R'
// (Remove, annihilates B; thenAdd holds the pending insertion of a
// decomposed Replace/ReplaceSame, emitted exactly once when n reaches
// zero, per the Sequencing rule).
type d2unit struct {
	kind    byte
	n       uint32
	thenAdd []byte
}

// replaceRemoveLength returns the B-bytes (for D2) or A-bytes (for D1)
// a Replace/ReplaceSame block consumes on its "remove" side.
func replaceRemoveLength(b block.Block) uint32 {
	if b.Action == block.ReplaceSame {
		return b.Length
	}
	return b.RemoveLength
}

// emitFused writes emission (0 or 1 blocks) to w, first trying to fuse
// fuseCandidate (a Remove carried from a decomposed D1 Replace) with
// the first emitted block per the §4.3 seam table — this is how
// Replace(x,y)|D2 reproduces a single Replace(x,*) output instead of a
// separate Remove then Add (spec §4.4's "fusible to Replace" notes).
// fuseCandidate is always consumed (set to nil) by this call.
func emitFused(w io.Writer, fuseCandidate **block.Block, emission []block.Block) error {
	fc := *fuseCandidate
	*fuseCandidate = nil

	if fc == nil {
		for _, b := range emission {
			if err := block.EncodeOne(w, b); err != nil {
				return err
			}
		}
		return nil
	}

	if len(emission) == 0 {
		return block.EncodeOne(w, *fc)
	}

	if fused, ok := fuse(*fc, emission[0]); ok {
		if err := block.EncodeOne(w, fused); err != nil {
			return err
		}
		for _, b := range emission[1:] {
			if err := block.EncodeOne(w, b); err != nil {
				return err
			}
		}
		return nil
	}

	if err := block.EncodeOne(w, *fc); err != nil {
		return err
	}
	for _, b := range emission {
		if err := block.EncodeOne(w, b); err != nil {
			return err
		}
	}
	return nil
}

// Combine walks d1 (A→B) and d2 (B→C) with a two-cursor prefix walk and
// writes d3 (A→C) to w, without ever materializing B (spec §4.4).
func Combine(w io.Writer, d1, d2 *diffstream.Stream) error {
	var d1cur d1unit
	var d2cur d2unit
	var fuseCandidate *block.Block
	d1Done, d2Done := false, false

	for {
		if d1cur.kind == 0 && !d1Done {
			b, err := d1.Next()
			switch {
			case err == io.EOF:
				d1Done = true
			case err != nil:
				return err
			default:
				if err := refillD1(b, &d1cur, &fuseCandidate, w); err != nil {
					return err
				}
			}
		}

		if d2cur.kind == 0 && !d2Done {
			b, err := d2.Next()
			switch {
			case err == io.EOF:
				d2Done = true
			case err != nil:
				return err
			default:
				if err := refillD2(b, &d2cur, &fuseCandidate, w); err != nil {
					return err
				}
			}
		}

		if d1Done && d2cur.kind != 0 {
			return ErrUnmatchedDiffLength
		}
		if d2Done && d1cur.kind != 0 {
			return ErrUnmatchedDiffLength
		}
		if d1Done && d2Done {
			return nil
		}
		if d1cur.kind == 0 || d2cur.kind == 0 {
			continue
		}

		if err := pairStep(&d1cur, &d2cur, &fuseCandidate, w); err != nil {
			return err
		}
	}
}

// refillD1 turns a freshly read D1 block into cursor state: Remove is
// emitted on the spot (it never produces B, so it never needs pairing);
// Skip/Add become the new current unit; Replace/ReplaceSame decompose
// into an immediate-or-pending Remove and an Add-phase unit.
func refillD1(b block.Block, cur *d1unit, fuseCandidate **block.Block, w io.Writer) error {
	if b.IsNoop() {
		return nil
	}
	switch b.Action {
	case block.Skip:
		*cur = d1unit{kind: 'S', n: b.Length}
	case block.Add:
		*cur = d1unit{kind: 'A', data: b.Data}
	case block.Remove:
		return block.EncodeOne(w, block.NewRemove(b.Length))
	case block.Replace, block.ReplaceSame:
		rl := replaceRemoveLength(b)
		rm := block.NewRemove(rl)
		if len(b.Data) == 0 {
			// No Add-phase to pair against: Replace(x,0) behaves
			// exactly like Remove(x).
			return block.EncodeOne(w, rm)
		}
		*fuseCandidate = &rm
		*cur = d1unit{kind: 'A', data: b.Data}
	}
	return nil
}

// refillD2 turns a freshly read D2 block into cursor state: Add never
// consumes B, so it is emitted on the spot (fusing with any pending D1
// Replace remainder); Skip/Remove become the new current unit;
// Replace/ReplaceSame decompose into a Remove-phase unit carrying the
// insertion to emit once that phase is exhausted.
func refillD2(b block.Block, cur *d2unit, fuseCandidate **block.Block, w io.Writer) error {
	if b.IsNoop() {
		return nil
	}
	switch b.Action {
	case block.Skip:
		*cur = d2unit{kind: 'S', n: b.Length}
	case block.Remove:
		*cur = d2unit{kind: 'R', n: b.Length}
	case block.Add:
		return emitFused(w, fuseCandidate, []block.Block{block.NewAdd(b.Data)})
	case block.Replace, block.ReplaceSame:
		rl := replaceRemoveLength(b)
		if rl == 0 {
			// No Remove-phase to pair against: Replace(0,z) behaves
			// exactly like Add(z).
			return emitFused(w, fuseCandidate, []block.Block{block.NewAdd(b.Data)})
		}
		*cur = d2unit{kind: 'R', n: rl, thenAdd: b.Data}
	}
	return nil
}

// pairStep consumes min(d1cur, d2cur) bytes of B from both cursors and
// emits the corresponding D3 fragment, per the case table in spec §4.4.
func pairStep(d1cur *d1unit, d2cur *d2unit, fuseCandidate **block.Block, w io.Writer) error {
	switch {
	case d1cur.kind == 'S' && d2cur.kind == 'S':
		k := minLen(d1cur.n, d2cur.n)
		d1cur.n -= k
		d2cur.n -= k
		if err := block.EncodeOne(w, block.NewSkip(k)); err != nil {
			return err
		}

	case d1cur.kind == 'S' && d2cur.kind == 'R':
		k := minLen(d1cur.n, d2cur.n)
		d1cur.n -= k
		d2cur.n -= k
		if err := block.EncodeOne(w, block.NewRemove(k)); err != nil {
			return err
		}
		if d2cur.n == 0 && d2cur.thenAdd != nil {
			if err := block.EncodeOne(w, block.NewAdd(d2cur.thenAdd)); err != nil {
				return err
			}
			d2cur.thenAdd = nil
		}

	case d1cur.kind == 'A' && d2cur.kind == 'S':
		k := minLen(uint32(len(d1cur.data)), d2cur.n)
		prefix := d1cur.data[:k]
		d1cur.data = d1cur.data[k:]
		d2cur.n -= k
		if err := emitFused(w, fuseCandidate, []block.Block{block.NewAdd(prefix)}); err != nil {
			return err
		}

	case d1cur.kind == 'A' && d2cur.kind == 'R':
		k := minLen(uint32(len(d1cur.data)), d2cur.n)
		d1cur.data = d1cur.data[k:]
		d2cur.n -= k
		var emission []block.Block
		if d2cur.n == 0 && d2cur.thenAdd != nil {
			emission = append(emission, block.NewAdd(d2cur.thenAdd))
			d2cur.thenAdd = nil
		}
		if err := emitFused(w, fuseCandidate, emission); err != nil {
			return err
		}
	}

	if d1cur.kind == 'S' && d1cur.n == 0 {
		*d1cur = d1unit{}
	}
	if d1cur.kind == 'A' && len(d1cur.data) == 0 {
		*d1cur = d1unit{}
	}
	if d2cur.kind == 'S' && d2cur.n == 0 {
		*d2cur = d2unit{}
	}
	if d2cur.kind == 'R' && d2cur.n == 0 && d2cur.thenAdd == nil {
		*d2cur = d2unit{}
	}
	return nil
}
