// Package nvlist implements a streaming decoder for ZFS-style nvlists in native encoding, as
// returned by the /dev/zfs ioctls, and a matching encoder used to build fixtures.
package nvlist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
	"unsafe"
)

var (
	ErrInvalidEncoding  = errors.New("this nvlist is not in native encoding")
	ErrInvalidEndianess = errors.New("this nvlist is neither in big nor in little endian")
	ErrInvalidData      = errors.New("this nvlist contains invalid data")
)

// Encoding represents the encoding used for serialization/deserialization
type Encoding uint8

const (
	// EncodingNative is used in syscalls and cache files
	EncodingNative Encoding = 0x00
	// EncodingXDR is used on-disk (and is not actually XDR)
	EncodingXDR  Encoding = 0x01
	bigEndian             = 0x00
	littleEndian          = 0x01
)

// maxElements bounds the element count of a single pair.
const maxElements = 65535

// NVListReader walks the pairs of an nvlist one at a time. Embedded nvlists are not
// skipped automatically: after Next returns TypeNvlist the following calls to Next yield the
// embedded pairs until io.EOF, and TypeNvlistArray is followed by NumElements such runs.
//
// Strings and names returned by the reader alias Data and must be cloned to outlive it.
type NVListReader struct {
	Data []byte
	pos  int

	encoding  Encoding
	alignment int
	flags     uint32
	version   int32

	nameBytes    []byte
	numElements  int
	dataPos      int
	dataLen      int
	currentToken NVType
}

func (r *NVListReader) readByte() (byte, error) {
	if r.pos < len(r.Data) {
		val := r.Data[r.pos]
		r.pos++
		return val, nil
	}
	return 0x00, ErrInvalidData
}

func (r *NVListReader) readNvHeader() error {
	encoding, err := r.readByte()
	if err != nil {
		return err
	}
	switch Encoding(encoding) {
	case EncodingNative:
		r.encoding = EncodingNative
		r.alignment = 8
	case EncodingXDR:
		r.encoding = EncodingXDR
		r.alignment = 4
	default:
		return ErrInvalidEncoding
	}

	endianess, err := r.readByte()
	if err != nil {
		return err
	}
	switch endianess {
	case littleEndian:
	case bigEndian:
		return fmt.Errorf("conversion from big endian not yet supported")
	default:
		return ErrInvalidEndianess
	}

	if _, err := r.readBytes(2); err != nil { // reserved
		return err
	}

	v, err := r.readUint32()
	if err != nil {
		return err
	}
	r.version = int32(v)

	r.flags, err = r.readUint32()
	return err
}

func (r *NVListReader) readUint32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint32(b), nil
}

func (r *NVListReader) readUint16() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint16(b), nil
}

func (r *NVListReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.Data) {
		return nil, ErrInvalidData
	}
	b := r.Data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Next advances to the next pair of the current (possibly embedded) list. It returns
// io.EOF at the end marker of that list.
func (r *NVListReader) Next() (NVType, error) {
	if r.pos == 0 {
		err := r.readNvHeader()
		if err != nil {
			return TypeUnknown, err
		}
	}

	startPos := r.pos

	rawSize, err := r.readUint32()
	if err != nil {
		return TypeUnknown, err
	}
	size := int32(rawSize)
	if size < 0 {
		return TypeUnknown, ErrInvalidData
	}
	if size == 0 { // End indicated by zero size
		return TypeUnknown, io.EOF
	}
	nextNVPairPos := startPos + int(size)
	if nextNVPairPos > len(r.Data) {
		return TypeUnknown, ErrInvalidData
	}

	if r.encoding == EncodingXDR {
		// Decoded size, irrelevant here
		if _, err := r.readBytes(4); err != nil {
			return TypeUnknown, err
		}
	}

	rawNameSize, err := r.readUint16()
	if err != nil {
		return TypeUnknown, err
	}
	nameSize := int16(rawNameSize)
	if nameSize <= 0 { // Null terminated, so at least size 1 is required
		return TypeUnknown, ErrInvalidData
	}

	// reserved
	if _, err := r.readUint16(); err != nil {
		return TypeUnknown, err
	}

	rawElements, err := r.readUint32()
	if err != nil {
		return TypeUnknown, err
	}
	numElements := int32(rawElements)
	if numElements < 0 || numElements > maxElements {
		return TypeUnknown, ErrInvalidData
	}
	r.numElements = int(numElements)

	nvTypeUInt32, err := r.readUint32()
	if err != nil {
		return TypeUnknown, err
	}
	nvType := NVType(nvTypeUInt32)

	nameBytes, err := r.readBytes(int(nameSize))
	if err != nil {
		return TypeUnknown, err
	}
	r.nameBytes = nameBytes[:len(nameBytes)-1]

	if (r.pos-startPos)%r.alignment != 0 {
		r.pos += r.alignment - ((r.pos - startPos) % r.alignment)
	}
	if r.pos > nextNVPairPos {
		return TypeUnknown, ErrInvalidData
	}

	r.dataPos = r.pos
	r.dataLen = nextNVPairPos - r.pos
	r.pos = nextNVPairPos
	r.currentToken = nvType

	if nvType == TypeStringArray {
		// ignore the space for the pointers
		r.dataPos += 8 * r.numElements
		r.dataLen -= 8 * r.numElements
		if r.dataLen < 0 {
			return TypeUnknown, ErrInvalidData
		}
	}

	return nvType, nil
}

func (r *NVListReader) Token() NVType {
	return r.currentToken
}

// Name returns the name of the current pair without copying.
func (r *NVListReader) Name() string {
	return unsafe.String(unsafe.SliceData(r.nameBytes), len(r.nameBytes))
}

func (r *NVListReader) NumElements() int {
	return r.numElements
}

func (r *NVListReader) value(n int) []byte {
	if n > r.dataLen {
		return nil
	}
	return r.Data[r.dataPos : r.dataPos+n]
}

// UInt64 decodes the current uint64 pair. Truncated values decode as 0.
func (r *NVListReader) UInt64() uint64 {
	b := r.value(8)
	if b == nil {
		return 0
	}
	return binary.NativeEndian.Uint64(b)
}

func (r *NVListReader) Int32() int32 {
	b := r.value(4)
	if b == nil {
		return 0
	}
	return int32(binary.NativeEndian.Uint32(b))
}

// UInt64Array appends the elements of the current uint64 array pair to dst. The values are
// copied out of Data, so the result stays valid after the buffer is reused.
func (r *NVListReader) UInt64Array(dst []uint64) ([]uint64, error) {
	b := r.value(8 * r.numElements)
	if b == nil && r.numElements > 0 {
		return nil, ErrInvalidData
	}
	dst = slices.Grow(dst, r.numElements)
	for i := range r.numElements {
		dst = append(dst, binary.NativeEndian.Uint64(b[8*i:]))
	}
	return dst, nil
}

func (r *NVListReader) Boolean() (bool, error) {
	switch r.Int32() {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidData
	}
}

func (r *NVListReader) bytesUntilDelimiter(from int, delim byte) ([]byte, error) {
	for i := from; i < r.dataLen; i++ {
		if r.Data[r.dataPos+i] == delim {
			return r.Data[r.dataPos+from : r.dataPos+i], nil
		}
	}
	return nil, ErrInvalidData
}

// String returns the current string pair without copying.
func (r *NVListReader) String() (string, error) {
	b, err := r.bytesUntilDelimiter(0, 0x00)
	if err != nil {
		return "", err
	}
	return unsafe.String(unsafe.SliceData(b), len(b)), nil
}

// StringArray appends cloned copies of the current string array pair to dst.
func (r *NVListReader) StringArray(dst []string) ([]string, error) {
	dst = slices.Grow(dst, r.numElements)
	off := 0
	for range r.numElements {
		b, err := r.bytesUntilDelimiter(off, 0x00)
		if err != nil {
			return nil, err
		}
		dst = append(dst, string(b))
		off += len(b) + 1
	}
	return dst, nil
}

// Skip consumes the remainder of the current list, including embedded lists.
func (r *NVListReader) Skip() error {
	for {
		token, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}

		if token == TypeNvlist {
			err = r.Skip()
			if err != nil {
				return err
			}
		} else if token == TypeNvlistArray {
			for range r.NumElements() {
				err = r.Skip()
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// SkipValue skips the embedded lists that belong to the pair Next just returned. It is a
// no-op for scalar and array pairs.
func (r *NVListReader) SkipValue() error {
	switch r.currentToken {
	case TypeNvlist:
		return r.Skip()
	case TypeNvlistArray:
		for range r.NumElements() {
			if err := r.Skip(); err != nil {
				return err
			}
		}
	}
	return nil
}
