package block

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DecodeOne reads a single block from r: a 2-byte big-endian action tag,
// then the length field(s) for that tag, then the payload for Add,
// Replace, and ReplaceSame.
//
// Returns io.EOF if r has nothing left to give at the point a new block
// would start (a well-formed end of diff). Returns ErrMalformedBlock,
// wrapped with context, for an unknown tag or a short read partway
// through a block. Any other reader failure is wrapped in ErrIoError.
func DecodeOne(r io.Reader) (Block, error) {
	var tagBuf [2]byte
	if _, err := io.ReadFull(r, tagBuf[:]); err != nil {
		if err == io.EOF {
			return Block{}, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return Block{}, errors.Join(ErrMalformedBlock, fmt.Errorf("short read on action tag"))
		}
		return Block{}, errors.Join(ErrIoError, err)
	}
	tag := binary.BigEndian.Uint16(tagBuf[:])
	action := Action(tag)

	switch action {
	case Skip:
		length, err := readLength(r)
		if err != nil {
			return Block{}, err
		}
		return NewSkip(length), nil

	case Remove:
		length, err := readLength(r)
		if err != nil {
			return Block{}, err
		}
		return NewRemove(length), nil

	case Add:
		length, err := readLength(r)
		if err != nil {
			return Block{}, err
		}
		data, err := readPayload(r, length)
		if err != nil {
			return Block{}, err
		}
		return NewAdd(data), nil

	case ReplaceSame:
		length, err := readLength(r)
		if err != nil {
			return Block{}, err
		}
		data, err := readPayload(r, length)
		if err != nil {
			return Block{}, err
		}
		return NewReplaceSame(data), nil

	case Replace:
		removeLength, err := readLength(r)
		if err != nil {
			return Block{}, err
		}
		length, err := readLength(r)
		if err != nil {
			return Block{}, err
		}
		data, err := readPayload(r, length)
		if err != nil {
			return Block{}, err
		}
		return NewReplace(removeLength, data), nil

	default:
		return Block{}, errors.Join(ErrMalformedBlock, fmt.Errorf("unknown action tag %d", tag))
	}
}

func readLength(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, errors.Join(ErrMalformedBlock, fmt.Errorf("short read on length field"))
		}
		return 0, errors.Join(ErrIoError, err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readPayload(r io.Reader, length uint32) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Join(ErrMalformedBlock, fmt.Errorf("truncated payload"))
		}
		return nil, errors.Join(ErrIoError, err)
	}
	return data, nil
}

// EncodeOne writes a single block to w: tag, length(s), payload, in that
// order. It is infallible given a writer with sufficient capacity;
// writer errors are propagated wrapped in ErrIoError.
func EncodeOne(w io.Writer, b Block) error {
	var tagBuf [2]byte
	binary.BigEndian.PutUint16(tagBuf[:], uint16(b.Action))
	if _, err := w.Write(tagBuf[:]); err != nil {
		return errors.Join(ErrIoError, err)
	}

	switch b.Action {
	case Skip, Remove:
		return writeLength(w, b.Length)

	case Add, ReplaceSame:
		if err := writeLength(w, b.Length); err != nil {
			return err
		}
		return writePayload(w, b.Data)

	case Replace:
		if err := writeLength(w, b.RemoveLength); err != nil {
			return err
		}
		if err := writeLength(w, b.Length); err != nil {
			return err
		}
		return writePayload(w, b.Data)

	default:
		return errors.Join(ErrMalformedBlock, fmt.Errorf("unknown action tag %d", b.Action))
	}
}

func writeLength(w io.Writer, length uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], length)
	if _, err := w.Write(buf[:]); err != nil {
		return errors.Join(ErrIoError, err)
	}
	return nil
}

func writePayload(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := w.Write(data); err != nil {
		return errors.Join(ErrIoError, err)
	}
	return nil
}
