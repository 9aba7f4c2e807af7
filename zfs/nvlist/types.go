package nvlist

// NVType is the data_type_t tag stored in every nvpair header.
type NVType uint32

const (
	TypeUnknown NVType = iota
	TypeBoolean
	TypeByte
	TypeInt16
	TypeUint16
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeString
	TypeByteArray
	TypeInt16Array
	TypeUint16Array
	TypeInt32Array
	TypeUint32Array
	TypeInt64Array
	TypeUint64Array
	TypeStringArray
	TypeHrtime
	TypeNvlist
	TypeNvlistArray
	TypeBooleanValue
	TypeInt8
	TypeUint8
	TypeBooleanArray
	TypeInt8Array
	TypeUint8Array
	TypeDouble
)

var typeNames = [...]string{
	TypeUnknown:      "unknown",
	TypeBoolean:      "boolean",
	TypeByte:         "byte",
	TypeInt16:        "int16",
	TypeUint16:       "uint16",
	TypeInt32:        "int32",
	TypeUint32:       "uint32",
	TypeInt64:        "int64",
	TypeUint64:       "uint64",
	TypeString:       "string",
	TypeByteArray:    "bytearray",
	TypeInt16Array:   "int16array",
	TypeUint16Array:  "uint16array",
	TypeInt32Array:   "int32array",
	TypeUint32Array:  "uint32array",
	TypeInt64Array:   "int64array",
	TypeUint64Array:  "uint64array",
	TypeStringArray:  "stringarray",
	TypeHrtime:       "hrtime",
	TypeNvlist:       "nvlist",
	TypeNvlistArray:  "nvlistarray",
	TypeBooleanValue: "booleanvalue",
	TypeInt8:         "int8",
	TypeUint8:        "uint8",
	TypeBooleanArray: "booleanarray",
	TypeInt8Array:    "int8array",
	TypeUint8Array:   "uint8array",
	TypeDouble:       "double",
}

func (t NVType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// IsArray reports whether values of this type carry an element count.
func (t NVType) IsArray() bool {
	switch t {
	case TypeByteArray, TypeInt16Array, TypeUint16Array, TypeInt32Array, TypeUint32Array,
		TypeInt64Array, TypeUint64Array, TypeStringArray, TypeNvlistArray, TypeBooleanArray,
		TypeInt8Array, TypeUint8Array:
		return true
	}
	return false
}
