// Package kstat reads the named kstats the SPL exports under /proc/spl/kstat.
package kstat

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"unsafe"
)

// KSTAT_TYPE_NAMED, the only kstat type with a name/type/data table.
const TypeNamed = 1

// Data types of a named kstat row (KSTAT_DATA_*).
const (
	DataChar   = 0
	DataInt32  = 1
	DataUInt32 = 2
	DataInt64  = 3
	DataUInt64 = 4
	DataLong   = 5
	DataULong  = 6
	DataString = 7
)

var ErrUnsupportedType = errors.New("only named kstats are supported")

type KStatHeader struct {
	ID    uint64
	Type  uint8
	NData uint64
}

// KStatReader walks the rows of a named kstat. Row names and data alias Data.
type KStatReader struct {
	Data []byte
	pos  int

	Header KStatHeader

	rowName string
	rowType uint8
	rowData string
}

func (r *KStatReader) readUntilExclude(b byte) (string, error) {
	data := r.Data
	pos := r.pos

	for {
		if pos >= len(data) {
			return "", io.ErrUnexpectedEOF
		}
		if data[pos] == b {
			break
		}
		pos++
	}
	d := data[r.pos:pos]
	// Eat the character we want to exclude
	pos++
	r.pos = pos

	s := unsafe.String(unsafe.SliceData(d), len(d))
	return s, nil
}

func (r *KStatReader) readUntilExcludeIgnoringPrefix(b byte, ignorePrefix byte) (string, error) {
	data := r.Data
	pos := r.pos

	for {
		if pos >= len(data) {
			return "", io.ErrUnexpectedEOF
		}
		if data[pos] != ignorePrefix {
			break
		}
		pos++
	}

	r.pos = pos

	return r.readUntilExclude(b)
}

func (r *KStatReader) readHeaderUint(name string, delim byte, base int) (uint64, error) {
	s, err := r.readUntilExclude(delim)
	if err != nil {
		return 0, fmt.Errorf("error reading %s from header: %w", name, err)
	}
	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing %s from header: %w", name, err)
	}
	return v, nil
}

// readHeader parses "kid type flags ndata data_size crtime snaptime".
func (r *KStatReader) readHeader() error {
	var err error
	if r.Header.ID, err = r.readHeaderUint("kid", ' ', 10); err != nil {
		return err
	}
	t, err := r.readHeaderUint("type", ' ', 10)
	if err != nil {
		return err
	}
	r.Header.Type = uint8(t)
	if _, err := r.readHeaderUint("flags", ' ', 0); err != nil {
		return err
	}
	if r.Header.NData, err = r.readHeaderUint("ndata", ' ', 10); err != nil {
		return err
	}
	for _, field := range []string{"data_size", "crtime"} {
		if _, err := r.readHeaderUint(field, ' ', 10); err != nil {
			return err
		}
	}
	_, err = r.readHeaderUint("snaptime", '\n', 10)
	return err
}

func (r *KStatReader) readColumnHeaders() error {
	for i, want := range []string{"name", "type", "data"} {
		delim := byte(' ')
		if i == 2 {
			delim = '\n'
		}
		c, err := r.readUntilExcludeIgnoringPrefix(delim, ' ')
		if err != nil {
			return fmt.Errorf("error reading column header: %w", err)
		}
		if c != want {
			return fmt.Errorf("unexpected column header: want %q, got %q", want, c)
		}
	}
	return nil
}

// Next advances to the next row and returns its name, or io.EOF after the last row.
func (r *KStatReader) Next() (string, error) {
	if r.pos == 0 {
		err := r.readHeader()
		if err != nil {
			return "", err
		}

		if r.Header.Type != TypeNamed {
			return "", fmt.Errorf("%w: got type %d", ErrUnsupportedType, r.Header.Type)
		}

		err = r.readColumnHeaders()
		if err != nil {
			return "", fmt.Errorf("error reading column headers: %w", err)
		}
	}

	if r.pos == len(r.Data) {
		return "", io.EOF
	}

	var err error
	r.rowName, err = r.readUntilExcludeIgnoringPrefix(' ', ' ')
	if err != nil {
		return "", fmt.Errorf("error reading value of column name: %w", err)
	}
	rowType, err := r.readUntilExcludeIgnoringPrefix(' ', ' ')
	if err != nil {
		return "", fmt.Errorf("error reading value of column type: %w", err)
	}
	t, err := strconv.ParseUint(rowType, 10, 8)
	if err != nil {
		return "", fmt.Errorf("error parsing type of row %q: %w", r.rowName, err)
	}
	r.rowType = uint8(t)
	r.rowData, err = r.readUntilExcludeIgnoringPrefix('\n', ' ')
	if err != nil {
		return "", fmt.Errorf("error reading value of column data: %w", err)
	}

	return r.rowName, nil
}

func (r *KStatReader) RowType() uint8 {
	return r.rowType
}

// RowIsUnsigned reports whether the current row holds an unsigned integer.
func (r *KStatReader) RowIsUnsigned() bool {
	switch r.rowType {
	case DataUInt32, DataUInt64, DataULong:
		return true
	}
	return false
}

func (r *KStatReader) RowData() string {
	return r.rowData
}

func (r *KStatReader) RowDataAsUInt64() (uint64, error) {
	i, err := strconv.ParseUint(r.RowData(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing row data as uint64: %w", err)
	}
	return i, nil
}
