// Package bplist decodes Apple binary property lists, format version "00".
//
// It implements only the reading half of the format (see
// https://opensource.apple.com/source/CF/CF-550/CFBinaryPList.c for the
// canonical description): validate the trailer, load the offset table, and
// materialize objects on demand by index. Writing bplists and other format
// versions are out of scope; a "set" is decoded only as a plain list of
// element indices.
package bplist

// Tag identifies the kind of value a decoded Object holds.
type Tag int

const (
	TagNull Tag = iota
	TagBool
	TagFill
	TagInt
	TagReal
	TagDate
	TagData
	TagASCIIString
	TagUnicodeString
	TagUID
	TagArray
	TagSet
	TagDict
)

func (t Tag) String() string {
	switch t {
	case TagNull:
		return "null"
	case TagBool:
		return "bool"
	case TagFill:
		return "fill"
	case TagInt:
		return "int"
	case TagReal:
		return "real"
	case TagDate:
		return "date"
	case TagData:
		return "data"
	case TagASCIIString:
		return "ascii-string"
	case TagUnicodeString:
		return "unicode-string"
	case TagUID:
		return "uid"
	case TagArray:
		return "array"
	case TagSet:
		return "set"
	case TagDict:
		return "dict"
	}
	return "unknown"
}

// Object is a decoded bplist value. Which fields are meaningful depends on
// Tag; see the field comments.
type Object struct {
	Tag Tag

	Bool bool // TagBool

	Int      uint64 // TagInt: unsigned payload, read big-endian
	IntWidth int    // TagInt: declared width in bytes (1, 2, 4, 8, or 16)

	Real      float64 // TagReal, TagDate: seconds since the NSDate epoch for TagDate
	RealWidth int     // TagReal: 4 or 8

	Bytes []byte // TagData: raw payload. TagInt with IntWidth==16: raw 16-byte payload.

	Str string // TagASCIIString

	Unicode []uint16 // TagUnicodeString: UTF-16BE code units, already byte-swapped to host order

	UID uint64 // TagUID

	// Refs holds object-table indices for container tags.
	//   TagArray, TagSet: len(Refs) == element count, in order.
	//   TagDict: len(Refs) == 2*DictCount; Refs[:DictCount] are key indices,
	//            Refs[DictCount:] are the parallel value indices.
	Refs      []int
	DictCount int

	// IsBaseWritingDirection and IsNSTime are presentation hints computed by
	// DictLookup when this object was observed as a dict value whose paired
	// key was the literal ASCII string "BaseWritingDirection" or "NS.time".
	// They ride along only for the caller that asked; they are not persisted
	// across independent Decode calls.
	IsBaseWritingDirection bool
	IsNSTime               bool
}
