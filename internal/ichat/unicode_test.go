package ichat

import "testing"

func TestEncodeUTF16BEUnitBoundaries(t *testing.T) {
	cases := []struct {
		unit uint16
		want []byte
	}{
		{0x41, []byte{0x41}},                         // 'A', 1 byte
		{0x7F, []byte{0x7F}},                          // top of 1-byte range
		{0x80, []byte{0xC2, 0x80}},                    // bottom of 2-byte range
		{0x7FF, []byte{0xDF, 0xBF}},                   // top of 2-byte range
		{0x800, []byte{0xE0, 0xA0, 0x80}},              // bottom of 3-byte range
		{0xFFFF, []byte{0xEF, 0xBF, 0xBF}},             // top of 16-bit range
	}
	for _, c := range cases {
		got, err := EncodeUTF16BEUnit(c.unit)
		if err != nil {
			t.Fatalf("unit %#x: unexpected error %v", c.unit, err)
		}
		if !bytesEqual(got, c.want) {
			t.Fatalf("unit %#x: got % x, want % x", c.unit, got, c.want)
		}
	}
}

func TestEncodeUTF16BEUnitRejectsSurrogates(t *testing.T) {
	for _, unit := range []uint16{0xD800, 0xDBFF, 0xDC00, 0xDFFF} {
		if _, err := EncodeUTF16BEUnit(unit); err == nil {
			t.Fatalf("unit %#x: expected ErrForbiddenCodeUnit", unit)
		}
	}
}

func TestDecodeDecorativeUnicodeStripsNonASCII(t *testing.T) {
	// U+202A (LEFT-TO-RIGHT EMBEDDING) is decorative and should be dropped,
	// leaving only the ASCII content.
	units := []uint16{0x202A, 'h', 'i', 0x202C}
	got := decodeDecorativeUnicode(units)
	if got != "hi" {
		t.Fatalf("got %q, want \"hi\"", got)
	}
}

func TestDecodeDecorativeUnicodeAllDecorativeIsPlaceholder(t *testing.T) {
	got := decodeDecorativeUnicode([]uint16{0x202A, 0x202C})
	if got != "<Unicode>" {
		t.Fatalf("got %q, want <Unicode>", got)
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
