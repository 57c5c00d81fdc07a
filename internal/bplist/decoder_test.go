package bplist

import (
	"bytes"
	"testing"
)

// appendTrailer appends a bplist-v00 trailer to buf for numObjects objects
// whose offset table starts at offsetTableStart.
func appendTrailer(buf []byte, offsetIntSize, refIntSize int, numObjects, rootIndex, offsetTableStart int) []byte {
	trailer := make([]byte, trailerSize)
	trailer[0] = byte(offsetIntSize)
	trailer[1] = byte(refIntSize)
	putUint64(trailer[2:10], uint64(numObjects))
	putUint64(trailer[10:18], uint64(rootIndex))
	putUint64(trailer[18:26], uint64(offsetTableStart))
	return append(buf, trailer...)
}

func putUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func TestReadUint16(t *testing.T) {
	buf := []byte{0x12, 0x34}
	v, err := readUint(buf, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x1234 {
		t.Fatalf("got %#x, want 0x1234", v)
	}
}

func TestDecodeUIDWidth(t *testing.T) {
	// header 0x83: tag UID, lo=3 => width lo+1=4
	buf := []byte{'b', 'p', 'l', 'i', 's', 't', '0', '0'}
	buf = append(buf, 0x83, 0x00, 0x00, 0x11, 0x22)
	offTableStart := len(buf)
	buf = appendTrailer(buf, 1, 1, 1, 0, offTableStart)
	// patch in offset table entry pointing at object header (offset 8)
	buf = insertOffsetTable(buf, offTableStart, []int{8})

	d, err := NewDecoder(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	obj, err := d.Decode(0)
	if err != nil {
		t.Fatal(err)
	}
	if obj.Tag != TagUID || obj.UID != 0x001122 {
		t.Fatalf("got %+v", obj)
	}
}

func TestDecodeUIDOddWidthThreeBytes(t *testing.T) {
	// header 0x82: tag UID, lo=2 => width lo+1=3, a width outside the
	// {1,2,4,8} set readUint restricts itself to. Archives with more than
	// 65,536 objects use this width for every UID reference.
	buf := []byte{'b', 'p', 'l', 'i', 's', 't', '0', '0'}
	buf = append(buf, 0x82, 0x01, 0x00, 0x10)
	offTableStart := len(buf)
	buf = appendTrailer(buf, 1, 1, 1, 0, offTableStart)
	buf = insertOffsetTable(buf, offTableStart, []int{8})

	d, err := NewDecoder(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	obj, err := d.Decode(0)
	if err != nil {
		t.Fatal(err)
	}
	if obj.Tag != TagUID || obj.UID != 0x010010 {
		t.Fatalf("got %+v", obj)
	}
}

// insertOffsetTable writes the given per-object byte offsets (1 byte each)
// at position start, growing buf if the trailer already follows it.
func insertOffsetTable(buf []byte, start int, offsets []int) []byte {
	table := make([]byte, len(offsets))
	for i, o := range offsets {
		table[i] = byte(o)
	}
	out := append([]byte{}, buf[:start]...)
	out = append(out, table...)
	out = append(out, buf[start:]...)
	return out
}

func TestScalarOverflowLongASCIIString(t *testing.T) {
	// header 0x5F ascii string, overflow marker, then int atom 0x11 (width
	// 2^1=2 bytes) holding count 256, followed by 256 'A' bytes.
	header := []byte{0x5F, 0x11, 0x01, 0x00}
	payload := bytes.Repeat([]byte{'A'}, 256)

	buf := []byte{'b', 'p', 'l', 'i', 's', 't', '0', '0'}
	objOff := len(buf)
	buf = append(buf, header...)
	buf = append(buf, payload...)
	offTableStart := len(buf)
	buf = appendTrailer(buf, 2, 1, 1, 0, offTableStart)
	buf = insertOffsetTableWide(buf, offTableStart, []int{objOff}, 2)

	d, err := NewDecoder(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	obj, err := d.Decode(0)
	if err != nil {
		t.Fatal(err)
	}
	if obj.Tag != TagASCIIString || len(obj.Str) != 256 {
		t.Fatalf("got tag=%s len=%d", obj.Tag, len(obj.Str))
	}
	for _, c := range obj.Str {
		if c != 'A' {
			t.Fatalf("unexpected char %q", c)
		}
	}
}

func insertOffsetTableWide(buf []byte, start int, offsets []int, width int) []byte {
	table := make([]byte, len(offsets)*width)
	for i, o := range offsets {
		b := make([]byte, width)
		v := uint64(o)
		for j := width - 1; j >= 0; j-- {
			b[j] = byte(v)
			v >>= 8
		}
		copy(table[i*width:], b)
	}
	out := append([]byte{}, buf[:start]...)
	out = append(out, table...)
	out = append(out, buf[start:]...)
	return out
}

func TestDictWithScalarOverflowSixteenPairs(t *testing.T) {
	const n = 16
	header := []byte{0xDF, 0x10, 0x10} // dict, overflow, int atom width 2^0=1, count=16
	buf := []byte{'b', 'p', 'l', 'i', 's', 't', '0', '0'}
	dictOff := len(buf)
	buf = append(buf, header...)

	// n key refs then n value refs, refIntSize=1, pointing at distinct
	// 1-byte ASCII-string objects appended after the dict header.
	stringsStart := dictOff + len(header) + 2*n
	keyRefs := make([]byte, n)
	valRefs := make([]byte, n)
	var strings []byte
	for i := 0; i < n; i++ {
		keyRefs[i] = byte(1 + i) // object index, not byte offset
		valRefs[i] = byte(1 + n + i)
		_ = stringsStart
	}
	buf = append(buf, keyRefs...)
	buf = append(buf, valRefs...)

	offsets := []int{dictOff} // object 0 = dict
	for i := 0; i < n; i++ {
		asciiOff := len(buf) + len(strings)
		strings = append(strings, 0x51, byte('a'+i)) // 1-char ascii key string 'a'+i
		offsets = append(offsets, asciiOff)
	}
	for i := 0; i < n; i++ {
		asciiOff := len(buf) + len(strings)
		strings = append(strings, 0x51, byte('A'+i)) // 1-char ascii value string 'A'+i
		offsets = append(offsets, asciiOff)
	}
	buf = append(buf, strings...)

	offTableStart := len(buf)
	buf = appendTrailer(buf, 2, 1, len(offsets), 0, offTableStart)
	buf = insertOffsetTableWide(buf, offTableStart, offsets, 2)

	d, err := NewDecoder(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	dict, err := d.Decode(0)
	if err != nil {
		t.Fatal(err)
	}
	if dict.Tag != TagDict || dict.DictCount != n {
		t.Fatalf("got tag=%s count=%d", dict.Tag, dict.DictCount)
	}
	for i := 0; i < n; i++ {
		keyObj, err := d.Decode(dict.Refs[i])
		if err != nil {
			t.Fatal(err)
		}
		if keyObj.Str != string(rune('a'+i)) {
			t.Fatalf("pair %d: key = %q", i, keyObj.Str)
		}
	}
}

func TestRejectsTooSmallInput(t *testing.T) {
	_, err := NewDecoder([]byte("bpl"), 0)
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ErrNotBplist {
		t.Fatalf("got %v, want ErrNotBplist", err)
	}
}

func TestRejectsTrailerPastEnd(t *testing.T) {
	buf := []byte{'b', 'p', 'l', 'i', 's', 't', '0', '0'}
	buf = appendTrailer(buf, 1, 1, 1, 0, 1000) // offset table start far past buffer
	_, err := NewDecoder(buf, 0)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDictLookupEmptyDict(t *testing.T) {
	header := []byte{0xD0} // empty dict
	buf := []byte{'b', 'p', 'l', 'i', 's', 't', '0', '0'}
	off := len(buf)
	buf = append(buf, header...)
	offTableStart := len(buf)
	buf = appendTrailer(buf, 1, 1, 1, 0, offTableStart)
	buf = insertOffsetTable(buf, offTableStart, []int{off})

	d, err := NewDecoder(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	dict, err := d.Decode(0)
	if err != nil {
		t.Fatal(err)
	}
	_, found, err := d.DictLookup(dict, "anything")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected not found on empty dict")
	}
}

func TestUnknownTagFromBadOverflowContinuation(t *testing.T) {
	// ascii string tag with overflow marker but the following byte does not
	// have high nibble 1 (not an int atom) -> ErrUnknownTag.
	header := []byte{0x5F, 0x20}
	buf := []byte{'b', 'p', 'l', 'i', 's', 't', '0', '0'}
	off := len(buf)
	buf = append(buf, header...)
	offTableStart := len(buf)
	buf = appendTrailer(buf, 1, 1, 1, 0, offTableStart)
	buf = insertOffsetTable(buf, offTableStart, []int{off})

	d, err := NewDecoder(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, err = d.Decode(0)
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ErrUnknownTag {
		t.Fatalf("got %v, want ErrUnknownTag", err)
	}
}
