package bplist

import "math"

const trailerSize = 26

// Decoder is a random-access reader over an in-memory bplist-v00 byte
// buffer. A Decoder owns its buffer and offset table; all other
// components borrow from it by object index. The buffer is never mutated
// after NewDecoder returns.
type Decoder struct {
	buf    []byte
	offset []int // offset[i] is the byte offset of object i

	offsetIntSize int
	refIntSize    int
	numObjects    int
	rootIndex     int

	pendingHint pendingHint // last value-index flagged by DictLookup, if any
}

// NewDecoder validates buf as a bplist-v00 document and builds its offset
// table. maxSize, if positive, rejects buffers larger than that ceiling
// before any other validation runs.
func NewDecoder(buf []byte, maxSize int) (*Decoder, error) {
	if maxSize > 0 && len(buf) > maxSize {
		return nil, newErr(ErrNotBplist, -1, "input is %d bytes, exceeds ceiling of %d", len(buf), maxSize)
	}
	if len(buf) < 8 {
		return nil, newErr(ErrNotBplist, -1, "buffer of %d bytes is too small to hold a header", len(buf))
	}
	if string(buf[0:6]) != "bplist" {
		return nil, newErr(ErrNotBplist, -1, "missing 'bplist' magic")
	}
	if string(buf[6:8]) != "00" {
		return nil, newErr(ErrUnsupportedVersion, -1, "version %q is not supported", buf[6:8])
	}
	if len(buf) < 8+trailerSize {
		return nil, newErr(ErrMalformedTrailer, -1, "buffer too small to hold a trailer")
	}

	trailer := buf[len(buf)-trailerSize:]
	d := &Decoder{
		buf:           buf,
		offsetIntSize: int(trailer[0]),
		refIntSize:    int(trailer[1]),
		pendingHint:   pendingHint{index: -1},
	}
	numObjects, err := readUint(trailer, 2, 8)
	if err != nil {
		return nil, err
	}
	rootIndex, err := readUint(trailer, 10, 8)
	if err != nil {
		return nil, err
	}
	offsetTableStart, err := readUint(trailer, 18, 8)
	if err != nil {
		return nil, err
	}
	d.numObjects = int(numObjects)
	d.rootIndex = int(rootIndex)

	if !validWidth(d.offsetIntSize) || !validWidth(d.refIntSize) {
		return nil, newErr(ErrMalformedTrailer, -1, "offsetIntSize=%d refIntSize=%d must be in {1,2,4,8}", d.offsetIntSize, d.refIntSize)
	}
	if d.numObjects == 0 || d.rootIndex >= d.numObjects {
		return nil, newErr(ErrMalformedTrailer, -1, "rootObjectIndex %d out of range for %d objects", d.rootIndex, d.numObjects)
	}
	tableBytes := d.numObjects * d.offsetIntSize
	tableEnd := int(offsetTableStart) + tableBytes
	if offsetTableStart > uint64(len(buf)) || tableEnd > len(buf)-trailerSize {
		return nil, newErr(ErrMalformedTrailer, -1, "offset table [%d,%d) does not fit before trailer (limit %d)", offsetTableStart, tableEnd, len(buf)-trailerSize)
	}

	d.offset = make([]int, d.numObjects)
	base := int(offsetTableStart)
	for i := 0; i < d.numObjects; i++ {
		off, err := readUint(buf, base+i*d.offsetIntSize, d.offsetIntSize)
		if err != nil {
			return nil, err
		}
		if off >= uint64(len(buf)) {
			return nil, newErr(ErrOutOfBounds, int(off), "object #%d offset points outside buffer", i)
		}
		d.offset[i] = int(off)
	}

	return d, nil
}

func validWidth(w int) bool {
	return w == 1 || w == 2 || w == 4 || w == 8
}

// NumObjects returns the number of objects in the offset table.
func (d *Decoder) NumObjects() int { return d.numObjects }

// RootIndex returns the index of the document's root object.
func (d *Decoder) RootIndex() int { return d.rootIndex }

// sizeAndShift implements the ScalarOverflow size policy: for lo < 0xF the
// count is lo itself; otherwise the following byte must itself be an Int
// atom (high nibble 1) whose low nibble k gives a 2^k-byte big-endian count.
// It returns the unit count and the number of extra header bytes consumed
// beyond the tag byte.
func (d *Decoder) sizeAndShift(off int, lo int) (count int, shift int, err error) {
	if lo != 0xF {
		return lo, 0, nil
	}
	if off+1 >= len(d.buf) {
		return 0, 0, newErr(ErrOutOfBounds, off, "scalar-overflow continuation byte missing")
	}
	cont := d.buf[off+1]
	if cont>>4 != 1 {
		return 0, 0, newErr(ErrUnknownTag, off, "scalar-overflow continuation byte 0x%02x is not an int atom", cont)
	}
	width := 1 << (cont & 0x0F)
	v, err := readUint(d.buf, off+2, width)
	if err != nil {
		return 0, 0, err
	}
	return int(v), 1 + width, nil
}

// Decode materializes the object at the given index. Decoding is pure:
// calling Decode(index) twice returns equal values, and a failed decode
// never leaves behind a partially built Object (the zero value is returned
// alongside the error).
func (d *Decoder) Decode(index int) (Object, error) {
	if index < 0 || index >= d.numObjects {
		return Object{}, newErr(ErrOutOfBounds, -1, "object index %d out of range [0,%d)", index, d.numObjects)
	}
	off := d.offset[index]
	if off >= len(d.buf) {
		return Object{}, newErr(ErrOutOfBounds, off, "object header lies outside buffer")
	}
	header := d.buf[off]
	hi, lo := header>>4, int(header&0x0F)

	switch hi {
	case 0:
		switch lo {
		case 0x0:
			return Object{Tag: TagNull}, nil
		case 0x8:
			return Object{Tag: TagBool, Bool: false}, nil
		case 0x9:
			return Object{Tag: TagBool, Bool: true}, nil
		case 0xF:
			return Object{Tag: TagFill}, nil
		}
		return Object{}, newErr(ErrUnknownTag, off, "header byte 0x%02x", header)

	case 1: // int
		width := 1 << uint(lo)
		if width == 16 {
			if off+1+16 > len(d.buf) {
				return Object{}, newErr(ErrOutOfBounds, off, "16-byte int payload exceeds buffer")
			}
			raw := append([]byte(nil), d.buf[off+1:off+1+16]...)
			v, err := readUint(d.buf, off+9, 8) // low 8 bytes carry the value per bplist convention
			if err != nil {
				return Object{}, err
			}
			return Object{Tag: TagInt, Int: v, IntWidth: 16, Bytes: raw}, nil
		}
		v, err := readUint(d.buf, off+1, width)
		if err != nil {
			return Object{}, err
		}
		return Object{Tag: TagInt, Int: v, IntWidth: width}, nil

	case 2: // real
		width := 1 << uint(lo)
		if width != 4 && width != 8 {
			return Object{}, newErr(ErrUnsupportedWidth, off, "real width %d", width)
		}
		v, err := readUint(d.buf, off+1, width)
		if err != nil {
			return Object{}, err
		}
		var f float64
		if width == 4 {
			f = float64(math.Float32frombits(uint32(v)))
		} else {
			f = math.Float64frombits(v)
		}
		return Object{Tag: TagReal, Real: f, RealWidth: width}, nil

	case 3: // date
		if lo != 3 {
			return Object{}, newErr(ErrUnknownTag, off, "header byte 0x%02x", header)
		}
		v, err := readUint(d.buf, off+1, 8)
		if err != nil {
			return Object{}, err
		}
		return Object{Tag: TagDate, Real: math.Float64frombits(v)}, nil

	case 4: // data
		count, shift, err := d.sizeAndShift(off, lo)
		if err != nil {
			return Object{}, err
		}
		start := off + 1 + shift
		if err := d.checkBounds(off, start, count, 1); err != nil {
			return Object{}, err
		}
		return Object{Tag: TagData, Bytes: append([]byte(nil), d.buf[start:start+count]...)}, nil

	case 5: // ASCII string
		count, shift, err := d.sizeAndShift(off, lo)
		if err != nil {
			return Object{}, err
		}
		start := off + 1 + shift
		if err := d.checkBounds(off, start, count, 1); err != nil {
			return Object{}, err
		}
		return Object{Tag: TagASCIIString, Str: string(d.buf[start : start+count])}, nil

	case 6: // unicode string
		count, shift, err := d.sizeAndShift(off, lo)
		if err != nil {
			return Object{}, err
		}
		start := off + 1 + shift
		if err := d.checkBounds(off, start, count, 2); err != nil {
			return Object{}, err
		}
		units := make([]uint16, count)
		for i := 0; i < count; i++ {
			v, err := readUint(d.buf, start+2*i, 2)
			if err != nil {
				return Object{}, err
			}
			units[i] = uint16(v)
		}
		return Object{Tag: TagUnicodeString, Unicode: units}, nil

	case 8: // UID
		width := lo + 1
		v, err := readUintWide(d.buf, off+1, width)
		if err != nil {
			return Object{}, err
		}
		return Object{Tag: TagUID, UID: v}, nil

	case 10: // array
		count, shift, err := d.sizeAndShift(off, lo)
		if err != nil {
			return Object{}, err
		}
		start := off + 1 + shift
		refs, err := d.readRefs(off, start, count)
		if err != nil {
			return Object{}, err
		}
		return Object{Tag: TagArray, Refs: refs}, nil

	case 12: // set
		count, shift, err := d.sizeAndShift(off, lo)
		if err != nil {
			return Object{}, err
		}
		start := off + 1 + shift
		refs, err := d.readRefs(off, start, count)
		if err != nil {
			return Object{}, err
		}
		return Object{Tag: TagSet, Refs: refs}, nil

	case 13: // dict
		count, shift, err := d.sizeAndShift(off, lo)
		if err != nil {
			return Object{}, err
		}
		keyStart := off + 1 + shift
		keyRefs, err := d.readRefs(off, keyStart, count)
		if err != nil {
			return Object{}, err
		}
		valStart := keyStart + count*d.refIntSize
		valRefs, err := d.readRefs(off, valStart, count)
		if err != nil {
			return Object{}, err
		}
		return Object{Tag: TagDict, Refs: append(keyRefs, valRefs...), DictCount: count}, nil
	}

	return Object{}, newErr(ErrUnknownTag, off, "header byte 0x%02x", header)
}

func (d *Decoder) checkBounds(headerOff, start, count, unitSize int) error {
	if count < 0 {
		return newErr(ErrCountOverflow, headerOff, "negative count %d", count)
	}
	need := count * unitSize
	if need/max(unitSize, 1) != count { // overflow guard
		return newErr(ErrCountOverflow, headerOff, "count %d * unit %d overflows", count, unitSize)
	}
	if start < 0 || start+need > len(d.buf) {
		return newErr(ErrOutOfBounds, headerOff, "payload [%d,%d) exceeds buffer of %d bytes", start, start+need, len(d.buf))
	}
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (d *Decoder) readRefs(headerOff, start, count int) ([]int, error) {
	if err := d.checkBounds(headerOff, start, count, d.refIntSize); err != nil {
		return nil, err
	}
	refs := make([]int, count)
	for i := 0; i < count; i++ {
		v, err := readUint(d.buf, start+i*d.refIntSize, d.refIntSize)
		if err != nil {
			return nil, err
		}
		if int(v) >= d.numObjects {
			return nil, newErr(ErrOutOfBounds, headerOff, "ref #%d (%d) exceeds object count %d", i, v, d.numObjects)
		}
		refs[i] = int(v)
	}
	return refs, nil
}
