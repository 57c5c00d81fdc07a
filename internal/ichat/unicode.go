package ichat

import "fmt"

// ErrForbiddenCodeUnit is returned by EncodeUTF16BEUnit for a code unit in
// the surrogate range [0xD800, 0xE000); this decoder treats each 16-bit
// code unit independently and does not pair surrogates (spec.md §4.7/§9).
type ErrForbiddenCodeUnit uint16

func (e ErrForbiddenCodeUnit) Error() string {
	return fmt.Sprintf("code unit 0x%04x falls in the surrogate range", uint16(e))
}

// EncodeUTF16BEUnit converts one UTF-16BE code unit to its canonical UTF-8
// byte sequence. This is the corrected encoding: the source implementation
// being converted from wrote the lowest six bits of its last byte twice for
// 4-byte sequences; this implementation produces the standard encoding
// throughout (spec.md §9 Open Question 2).
func EncodeUTF16BEUnit(unit uint16) ([]byte, error) {
	switch {
	case unit < 0x80:
		return []byte{byte(unit)}, nil
	case unit < 0x800:
		return []byte{
			byte(0xC0 | (unit >> 6)),
			byte(0x80 | (unit & 0x3F)),
		}, nil
	case unit >= 0xD800 && unit < 0xE000:
		return nil, ErrForbiddenCodeUnit(unit)
	default: // < 0x10000, always true for a 16-bit input
		return []byte{
			byte(0xE0 | (unit >> 12)),
			byte(0x80 | ((unit >> 6) & 0x3F)),
			byte(0x80 | (unit & 0x3F)),
		}, nil
	}
}
