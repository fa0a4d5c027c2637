// Package block implements the wire-level codec for a single diff block:
// the headerless, signature-free record format described by the binary
// diff metaformat. It is pure and stateless — it knows nothing about
// streams, seams, or algebra, only how to turn one block into bytes and
// back.
package block

import (
	"errors"
)

// Action is the tagged discriminator for a block's instruction. It is a
// 2-byte big-endian field on the wire (see DecodeOne/EncodeOne).
type Action uint16

const (
	Skip Action = iota
	Add
	Remove
	Replace
	ReplaceSame
)

func (a Action) String() string {
	switch a {
	case Skip:
		return "Skip"
	case Add:
		return "Add"
	case Remove:
		return "Remove"
	case Replace:
		return "Replace"
	case ReplaceSame:
		return "ReplaceSame"
	default:
		return "Unknown"
	}
}

// MaxLength is the largest length field representable on the wire (a
// 32-bit unsigned value). The algebra must never produce a block whose
// length field would exceed this.
const MaxLength = 1<<32 - 1

// Block is one immutable, decoded wire record. Only the fields relevant
// to its Action are meaningful:
//
//	Skip         Length
//	Add          Length, Data
//	Remove       Length
//	Replace      RemoveLength, Length, Data
//	ReplaceSame  Length, Data
type Block struct {
	Action       Action
	Length       uint32
	RemoveLength uint32
	Data         []byte
}

// NewSkip builds a Skip(length) block.
func NewSkip(length uint32) Block {
	return Block{Action: Skip, Length: length}
}

// NewAdd builds an Add(len(data), data) block. data is owned by the
// returned block; callers must not mutate it afterwards.
func NewAdd(data []byte) Block {
	return Block{Action: Add, Length: uint32(len(data)), Data: data}
}

// NewRemove builds a Remove(length) block.
func NewRemove(length uint32) Block {
	return Block{Action: Remove, Length: length}
}

// NewReplace builds a Replace(removeLength, len(data), data) block.
func NewReplace(removeLength uint32, data []byte) Block {
	return Block{Action: Replace, RemoveLength: removeLength, Length: uint32(len(data)), Data: data}
}

// NewReplaceSame builds a ReplaceSame(len(data), data) block, the
// compact on-wire form of a Replace whose RemoveLength equals Length.
func NewReplaceSame(data []byte) Block {
	return Block{Action: ReplaceSame, Length: uint32(len(data)), Data: data}
}

// IsNoop reports whether the block has no observable effect: a
// zero-length Skip, Add, or Remove. Replace/ReplaceSame with a
// zero-length data AND zero remove length are also no-ops.
func (b Block) IsNoop() bool {
	switch b.Action {
	case Skip, Remove:
		return b.Length == 0
	case Add:
		return b.Length == 0
	case Replace:
		return b.Length == 0 && b.RemoveLength == 0
	case ReplaceSame:
		return b.Length == 0
	default:
		return false
	}
}

// SourceAdvance returns how many bytes of the source stream this block
// consumes when applied, per spec §3's "Meaning when applied" column.
func (b Block) SourceAdvance() uint32 {
	switch b.Action {
	case Skip, Remove:
		return b.Length
	case Replace:
		return b.RemoveLength
	case ReplaceSame:
		return b.Length
	case Add:
		return 0
	default:
		return 0
	}
}

// OutputLength returns how many bytes of output this block contributes
// when applied — its "B-length" in the algebra's terminology.
func (b Block) OutputLength() uint32 {
	switch b.Action {
	case Skip:
		return b.Length
	case Add, Replace, ReplaceSame:
		return uint32(len(b.Data))
	case Remove:
		return 0
	default:
		return 0
	}
}

// Equal compares two blocks by value. ReplaceSame and an equivalent
// Replace(n,n,data) are NOT equal: the wire form is part of the value,
// per spec's round-trip requirement.
func (b Block) Equal(o Block) bool {
	if b.Action != o.Action || b.Length != o.Length || b.RemoveLength != o.RemoveLength {
		return false
	}
	if len(b.Data) != len(o.Data) {
		return false
	}
	for i := range b.Data {
		if b.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

// ErrMalformedBlock covers an unknown action tag, a short read on any
// length or payload field, or a length that overflows a length-bounded
// reader's remaining bytes.
var ErrMalformedBlock = errors.New("block: malformed block")

// ErrIoError wraps an underlying reader/writer failure.
var ErrIoError = errors.New("block: io error")
