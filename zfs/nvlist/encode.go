package nvlist

import (
	"encoding/binary"
)

// nvlistStructSize is sizeof(nvlist_t), reserved in the value of embedded list pairs.
const nvlistStructSize = 24

const flagUniqueName = 0x1

// List is an ordered set of pairs that Marshal encodes in native encoding. It covers the
// types the pool config uses and is meant for fixtures, not for talking to the kernel.
type List struct {
	pairs []pair
}

type pair struct {
	name  string
	typ   NVType
	u64   uint64
	u64s  []uint64
	str   string
	strs  []string
	list  *List
	lists []*List
}

func NewList() *List {
	return &List{}
}

func (l *List) AddBoolean(name string) *List {
	l.pairs = append(l.pairs, pair{name: name, typ: TypeBoolean})
	return l
}

func (l *List) AddUint64(name string, v uint64) *List {
	l.pairs = append(l.pairs, pair{name: name, typ: TypeUint64, u64: v})
	return l
}

func (l *List) AddUint64Array(name string, v []uint64) *List {
	l.pairs = append(l.pairs, pair{name: name, typ: TypeUint64Array, u64s: v})
	return l
}

func (l *List) AddString(name string, v string) *List {
	l.pairs = append(l.pairs, pair{name: name, typ: TypeString, str: v})
	return l
}

func (l *List) AddStringArray(name string, v []string) *List {
	l.pairs = append(l.pairs, pair{name: name, typ: TypeStringArray, strs: v})
	return l
}

func (l *List) AddNvlist(name string, v *List) *List {
	l.pairs = append(l.pairs, pair{name: name, typ: TypeNvlist, list: v})
	return l
}

func (l *List) AddNvlistArray(name string, v []*List) *List {
	l.pairs = append(l.pairs, pair{name: name, typ: TypeNvlistArray, lists: v})
	return l
}

// Marshal encodes the list with a native, little endian stream header.
func (l *List) Marshal() []byte {
	buf := []byte{byte(EncodingNative), littleEndian, 0, 0}
	buf = binary.NativeEndian.AppendUint32(buf, 0) // version
	buf = binary.NativeEndian.AppendUint32(buf, flagUniqueName)
	return l.appendPairs(buf)
}

func (l *List) appendPairs(buf []byte) []byte {
	for i := range l.pairs {
		buf = l.pairs[i].append(buf)
	}
	// end marker
	return binary.NativeEndian.AppendUint32(buf, 0)
}

func align8(n int) int {
	return (n + 7) &^ 7
}

func (p *pair) value() (value []byte, elements int) {
	switch p.typ {
	case TypeBoolean:
		return nil, 0
	case TypeUint64:
		return binary.NativeEndian.AppendUint64(nil, p.u64), 1
	case TypeUint64Array:
		for _, v := range p.u64s {
			value = binary.NativeEndian.AppendUint64(value, v)
		}
		return value, len(p.u64s)
	case TypeString:
		return append([]byte(p.str), 0), 1
	case TypeStringArray:
		value = make([]byte, 8*len(p.strs))
		for _, s := range p.strs {
			value = append(value, s...)
			value = append(value, 0)
		}
		return value, len(p.strs)
	case TypeNvlist:
		return make([]byte, nvlistStructSize), 1
	case TypeNvlistArray:
		return make([]byte, (8+nvlistStructSize)*len(p.lists)), len(p.lists)
	}
	return nil, 0
}

func (p *pair) append(buf []byte) []byte {
	value, elements := p.value()
	header := align8(16 + len(p.name) + 1)
	size := header + align8(len(value))

	start := len(buf)
	buf = binary.NativeEndian.AppendUint32(buf, uint32(size))
	buf = binary.NativeEndian.AppendUint16(buf, uint16(len(p.name)+1))
	buf = binary.NativeEndian.AppendUint16(buf, 0)
	buf = binary.NativeEndian.AppendUint32(buf, uint32(elements))
	buf = binary.NativeEndian.AppendUint32(buf, uint32(p.typ))
	buf = append(buf, p.name...)
	buf = append(buf, 0)
	buf = append(buf, make([]byte, start+header-len(buf))...)
	buf = append(buf, value...)
	buf = append(buf, make([]byte, start+size-len(buf))...)

	switch p.typ {
	case TypeNvlist:
		buf = p.list.appendPairs(buf)
	case TypeNvlistArray:
		for _, l := range p.lists {
			buf = l.appendPairs(buf)
		}
	}
	return buf
}
