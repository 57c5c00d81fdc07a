package bplist

// DictLookup scans dict's keys for one equal (byte-wise) to key and returns
// the index of the paired value. It reports found=false, with no error, if
// no such key exists. When the match is found, the dict-scan also computes
// the IsBaseWritingDirection/IsNSTime presentation hints for the *value*
// object: DecodeHinted on the returned index sets the flags on it if key
// was literally "BaseWritingDirection" or "NS.time" (plain Decode does not).
func (d *Decoder) DictLookup(dict Object, key string) (valueIndex int, found bool, err error) {
	if dict.Tag != TagDict {
		return 0, false, newErr(ErrUnknownTag, -1, "DictLookup on non-dict object (tag %s)", dict.Tag)
	}
	n := dict.DictCount
	for i := 0; i < n; i++ {
		keyObj, err := d.Decode(dict.Refs[i])
		if err != nil {
			return 0, false, err
		}
		if keyObj.Tag == TagASCIIString && keyObj.Str == key {
			valIdx := dict.Refs[n+i]
			if key == "BaseWritingDirection" || key == "NS.time" {
				d.pendingHint = pendingHint{index: valIdx, baseWritingDirection: key == "BaseWritingDirection", nsTime: key == "NS.time"}
			}
			return valIdx, true, nil
		}
	}
	return 0, false, nil
}

// ArrayAt returns the object-table index of the i'th element of arr.
func (d *Decoder) ArrayAt(arr Object, i int) (index int, ok bool, err error) {
	if arr.Tag != TagArray && arr.Tag != TagSet {
		return 0, false, newErr(ErrUnknownTag, -1, "ArrayAt on non-array object (tag %s)", arr.Tag)
	}
	if i < 0 || i >= len(arr.Refs) {
		return 0, false, nil
	}
	return arr.Refs[i], true, nil
}

// FollowUID loads the object at index, requires it to be a UID, and returns
// the index it references (bounds-checked against the object count).
func (d *Decoder) FollowUID(index int) (int, error) {
	obj, err := d.Decode(index)
	if err != nil {
		return 0, err
	}
	if obj.Tag != TagUID {
		return 0, newErr(ErrUnknownTag, -1, "FollowUID: object #%d is %s, not a UID", index, obj.Tag)
	}
	if int(obj.UID) >= d.numObjects {
		return 0, newErr(ErrOutOfBounds, -1, "UID #%d references object %d, only %d exist", index, obj.UID, d.numObjects)
	}
	return int(obj.UID), nil
}

// DecodeHinted behaves like Decode, but also returns the
// IsBaseWritingDirection/IsNSTime hints most recently computed for this
// index by DictLookup, if any. It is how a caller observes the flag
// propagation described by the format's dict-scan semantics.
func (d *Decoder) DecodeHinted(index int) (Object, error) {
	obj, err := d.Decode(index)
	if err != nil {
		return obj, err
	}
	if d.pendingHint.index == index {
		obj.IsBaseWritingDirection = d.pendingHint.baseWritingDirection
		obj.IsNSTime = d.pendingHint.nsTime
	}
	return obj, nil
}

type pendingHint struct {
	index                int
	baseWritingDirection bool
	nsTime               bool
}
