// Package ichattest builds hand-assembled bplist-v00 archive fixtures for
// tests elsewhere in the module (the ichat package's own tests and the
// render package's output tests both need the same archive shape).
package ichattest

import "math"

// FixtureBuilder hand-assembles a minimal bplist-v00 buffer encoding an
// iChat keyed archive, built around object-table indices rather than raw
// offsets, so the NSKeyedArchiver UID/$objects indirection can be expressed
// directly.
type FixtureBuilder struct {
	objs [][]byte
}

func (b *FixtureBuilder) add(data []byte) int {
	b.objs = append(b.objs, data)
	return len(b.objs) - 1
}

// ASCII records an ASCII string object and returns its object-table index.
func (b *FixtureBuilder) ASCII(s string) int {
	n := len(s)
	if n < 15 {
		return b.add(append([]byte{byte(0x50 | n)}, []byte(s)...))
	}
	buf := []byte{0x5F, 0x10, byte(n)}
	return b.add(append(buf, []byte(s)...))
}

// Int records an 8-byte signed/unsigned integer object.
func (b *FixtureBuilder) Int(v uint64) int {
	buf := make([]byte, 9)
	buf[0] = 0x13 // hi=1 (int), lo=3 -> width 2^3=8
	for i := 0; i < 8; i++ {
		buf[8-i] = byte(v)
		v >>= 8
	}
	return b.add(buf)
}

// Real records an 8-byte IEEE-754 real object.
func (b *FixtureBuilder) Real(v float64) int {
	bits := math.Float64bits(v)
	buf := make([]byte, 9)
	buf[0] = 0x23 // hi=2 (real), lo=3 -> width 8
	for i := 0; i < 8; i++ {
		buf[8-i] = byte(bits)
		bits >>= 8
	}
	return b.add(buf)
}

// UID records a 2-byte-wide UID object.
func (b *FixtureBuilder) UID(v uint64) int {
	return b.add([]byte{0x81, byte(v >> 8), byte(v)}) // lo=1 -> width 2
}

// Array records an array object referencing the given object-table indices.
func (b *FixtureBuilder) Array(refs []int) int {
	if len(refs) >= 0xF {
		panic("ichattest: array overflow not supported")
	}
	buf := []byte{byte(0xA0 | len(refs))}
	for _, r := range refs {
		buf = append(buf, byte(r>>8), byte(r))
	}
	return b.add(buf)
}

// Dict records a dict object pairing keys[i] with vals[i] (both object-table
// indices).
func (b *FixtureBuilder) Dict(keys, vals []int) int {
	if len(keys) != len(vals) || len(keys) >= 0xF {
		panic("ichattest: dict shape not supported")
	}
	buf := []byte{byte(0xD0 | len(keys))}
	for _, k := range keys {
		buf = append(buf, byte(k>>8), byte(k))
	}
	for _, v := range vals {
		buf = append(buf, byte(v>>8), byte(v))
	}
	return b.add(buf)
}

// Finish assembles the header, object table, offset table, and trailer into
// a complete bplist-v00 buffer rooted at rootIndex.
func (b *FixtureBuilder) Finish(rootIndex int) []byte {
	out := []byte("bplist00")
	offsets := make([]int, len(b.objs))
	for i, o := range b.objs {
		offsets[i] = len(out)
		out = append(out, o...)
	}
	offTableStart := len(out)
	for _, off := range offsets {
		out = append(out, byte(off>>8), byte(off))
	}
	trailer := make([]byte, 26)
	trailer[0] = 2 // offsetIntSize
	trailer[1] = 2 // refIntSize
	putBE64(trailer[2:10], uint64(len(b.objs)))
	putBE64(trailer[10:18], uint64(rootIndex))
	putBE64(trailer[18:26], uint64(offTableStart))
	return append(out, trailer...)
}

func putBE64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// ichatVersion duplicates the unexported constant in package ichat;
// EndToEndTextMessage is the fixture's only consumer of the value.
const ichatVersion = 100000

// EndToEndTextMessage reproduces spec scenario 6: two participants alice@x
// and bob@y, one text message "hi" at NSDate 0.0 from alice@x.
func EndToEndTextMessage() []byte {
	b := &FixtureBuilder{}

	aliceName := b.ASCII("alice")
	bobName := b.ASCII("bob")
	aliceID := b.ASCII("alice@x")
	bobID := b.ASCII("bob@y")

	keyParticipants := b.ASCII("Participants")
	keyPresentity := b.ASCII("PresentityIDs")

	// Archive position assignment (index into the $objects array):
	//   0: topDict          1: metadataDict     2: keyParticipants-str
	//   3: keyPresentity-str 4: msgListDict      5: participantsListDict
	//   6: presentityListDict 7: aliceName       8: bobName
	//   9: aliceID          10: bobID            11: senderDict
	//  12: timeDict         13: msgTextDict      14: stringDict
	//  15: msgDict
	const (
		posTop            = 0
		posMetadata       = 1
		posKeyParticipant = 2
		posKeyPresentity  = 3
		posMsgList        = 4
		posParticipants   = 5
		posPresentity     = 6
		posAliceName      = 7
		posBobName        = 8
		posAliceID        = 9
		posBobID          = 10
		posSender         = 11
		posTime           = 12
		posMsgText        = 13
		posString         = 14
		posMsg            = 15
	)

	keyParticipantsUID := b.UID(posKeyParticipant)
	keyPresentityUID := b.UID(posKeyPresentity)
	valParticipantsUID := b.UID(posParticipants)
	valPresentityUID := b.UID(posPresentity)

	metadataKeys := b.Array([]int{keyParticipantsUID, keyPresentityUID})
	metadataValues := b.Array([]int{valParticipantsUID, valPresentityUID})
	keyNSKeys := b.ASCII("NS.keys")
	keyNSObjects := b.ASCII("NS.objects")
	metadataDict := b.Dict([]int{keyNSKeys, keyNSObjects}, []int{metadataKeys, metadataValues})

	keyMetadata := b.ASCII("metadata")
	metadataUIDObj := b.UID(posMetadata)
	topDict := b.Dict([]int{keyMetadata}, []int{metadataUIDObj})

	aliceNameElemUID := b.UID(posAliceName)
	bobNameElemUID := b.UID(posBobName)
	keyNSObjects2 := b.ASCII("NS.objects")
	participantsNames := b.Array([]int{aliceNameElemUID, bobNameElemUID})
	participantsListDict := b.Dict([]int{keyNSObjects2}, []int{participantsNames})

	aliceIDElemUID := b.UID(posAliceID)
	bobIDElemUID := b.UID(posBobID)
	keyNSObjects3 := b.ASCII("NS.objects")
	presentityIDs := b.Array([]int{aliceIDElemUID, bobIDElemUID})
	presentityListDict := b.Dict([]int{keyNSObjects3}, []int{presentityIDs})

	senderIDUID := b.UID(posAliceID)
	keyID := b.ASCII("ID")
	senderDict := b.Dict([]int{keyID}, []int{senderIDUID})

	nsTimeKey := b.ASCII("NS.time")
	zeroReal := b.Real(0.0)
	timeDict := b.Dict([]int{nsTimeKey}, []int{zeroReal})

	nsStringKey := b.ASCII("NS.string")
	hiStr := b.ASCII("hi")
	stringDict := b.Dict([]int{nsStringKey}, []int{hiStr})

	nsStringDictKey := b.ASCII("NSString")
	stringUID := b.UID(posString)
	msgTextDict := b.Dict([]int{nsStringDictKey}, []int{stringUID})

	senderKey := b.ASCII("Sender")
	senderUID := b.UID(posSender)
	timeKey := b.ASCII("Time")
	timeUID := b.UID(posTime)
	originalMessageKey := b.ASCII("OriginalMessage")
	originalMessageVal := b.Int(1) // presence only, value unchecked
	messageTextKey := b.ASCII("MessageText")
	messageTextUID := b.UID(posMsgText)
	msgDict := b.Dict(
		[]int{senderKey, timeKey, originalMessageKey, messageTextKey},
		[]int{senderUID, timeUID, originalMessageVal, messageTextUID},
	)

	msgListElemUID := b.UID(posMsg)
	keyNSObjects4 := b.ASCII("NS.objects")
	msgListArr := b.Array([]int{msgListElemUID})
	msgListDict := b.Dict([]int{keyNSObjects4}, []int{msgListArr})

	// The $objects array itself: objectsRefs[i] is the object-table index
	// of the object at archive position i.
	objectsRefs := make([]int, 16)
	objectsRefs[posTop] = topDict
	objectsRefs[posMetadata] = metadataDict
	objectsRefs[posKeyParticipant] = keyParticipants
	objectsRefs[posKeyPresentity] = keyPresentity
	objectsRefs[posMsgList] = msgListDict
	objectsRefs[posParticipants] = participantsListDict
	objectsRefs[posPresentity] = presentityListDict
	objectsRefs[posAliceName] = aliceName
	objectsRefs[posBobName] = bobName
	objectsRefs[posAliceID] = aliceID
	objectsRefs[posBobID] = bobID
	objectsRefs[posSender] = senderDict
	objectsRefs[posTime] = timeDict
	objectsRefs[posMsgText] = msgTextDict
	objectsRefs[posString] = stringDict
	objectsRefs[posMsg] = msgDict

	objectsArr := b.Array(objectsRefs)

	topUID := b.UID(posTop)
	versionKey := b.ASCII("$version")
	versionVal := b.Int(ichatVersion)
	objectsKey := b.ASCII("$objects")
	topKey := b.ASCII("$top")
	root := b.Dict(
		[]int{versionKey, objectsKey, topKey},
		[]int{versionVal, objectsArr, topUID},
	)

	return b.Finish(root)
}
