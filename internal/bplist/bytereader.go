package bplist

// readUint reads a big-endian unsigned integer of the given width (1, 2, 4,
// or 8 bytes) from buf at off.
func readUint(buf []byte, off, width int) (uint64, error) {
	if width != 1 && width != 2 && width != 4 && width != 8 {
		return 0, newErr(ErrUnsupportedWidth, off, "width %d not in {1,2,4,8}", width)
	}
	if off < 0 || off+width > len(buf) {
		return 0, newErr(ErrOutOfBounds, off, "read of width %d exceeds buffer of %d bytes", width, len(buf))
	}
	var v uint64
	for i := 0; i < width; i++ {
		v = (v << 8) | uint64(buf[off+i])
	}
	return v, nil
}

// readUintWide reads a big-endian unsigned integer of any width from 1 to 8
// bytes. UIDs use the lo+1 SizePolicy (spec.md §4.2), which produces widths
// other than the {1,2,4,8} powers of two readUint restricts itself to — a
// 3-byte UID is routine past 65,536 objects, the common case for long chat
// logs.
func readUintWide(buf []byte, off, width int) (uint64, error) {
	if width < 1 || width > 8 {
		return 0, newErr(ErrUnsupportedWidth, off, "width %d not in [1,8]", width)
	}
	if off < 0 || off+width > len(buf) {
		return 0, newErr(ErrOutOfBounds, off, "read of width %d exceeds buffer of %d bytes", width, len(buf))
	}
	var v uint64
	for i := 0; i < width; i++ {
		v = (v << 8) | uint64(buf[off+i])
	}
	return v, nil
}

// readIntSignExtended reads a big-endian integer of the given width and
// sign-extends it to a full int64. This corrects the source implementation's
// bug of truncating 4- and 8-byte signed reads through an intermediate
// int16 (see DESIGN.md).
func readIntSignExtended(buf []byte, off, width int) (int64, error) {
	u, err := readUint(buf, off, width)
	if err != nil {
		return 0, err
	}
	return SignExtend(u, width), nil
}

// SignExtend reinterprets the low width*8 bits of v as a two's-complement
// signed value of that width, sign-extended to int64. Raw-browse mode uses
// this on an Int object flagged IsBaseWritingDirection, matching the
// original program's signed display for that one well-known key.
func SignExtend(v uint64, width int) int64 {
	bits := uint(width) * 8
	shift := 64 - bits
	return int64(v<<shift) >> shift
}
