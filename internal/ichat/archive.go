package ichat

import (
	"fmt"
	"strings"

	"github.com/amethystsoftware/ichatconv/internal/bplist"
	"github.com/amethystsoftware/ichatconv/internal/config"
)

const ichatVersion = 100000

// ParticipantTable holds the chat's participant display names and account
// identifiers, index-aligned: Names[i] is the display name for the account
// at IDs[i].
type ParticipantTable struct {
	Names []string
	IDs   []string
}

// Session binds a decoded archive to its keyed-archive metadata: the
// participant table and the ordered list of message-dict references. It is
// the "global mutable state becomes a Session value" design from spec.md
// §9 — constructed once and passed by reference to the interpreter and
// renderer, never retained by them.
type Session struct {
	dec    *bplist.Decoder
	Config config.SessionConfig

	objectsArray bplist.Object // the root's "$objects" array

	Participants       ParticipantTable
	messageList        bplist.Object // "NS.objects" of $objects[4]; each element a UID
	FirstTimestampLong string
}

// LooksLikeIChatArchive reports whether dec's root object matches the
// iChat keyed-archive schema: a dict with "$version" == 100000 and an
// "$objects" array. It does not validate participant/message shape.
func LooksLikeIChatArchive(dec *bplist.Decoder) (root bplist.Object, objects bplist.Object, ok bool, err error) {
	root, err = dec.Decode(dec.RootIndex())
	if err != nil {
		return bplist.Object{}, bplist.Object{}, false, err
	}
	if root.Tag != bplist.TagDict {
		return root, bplist.Object{}, false, nil
	}
	verIdx, found, err := dec.DictLookup(root, "$version")
	if err != nil {
		return root, bplist.Object{}, false, err
	}
	if !found {
		return root, bplist.Object{}, false, nil
	}
	verObj, err := dec.Decode(verIdx)
	if err != nil {
		return root, bplist.Object{}, false, err
	}
	if verObj.Tag != bplist.TagInt || verObj.Int != ichatVersion {
		return root, bplist.Object{}, false, nil
	}
	objIdx, found, err := dec.DictLookup(root, "$objects")
	if err != nil {
		return root, bplist.Object{}, false, err
	}
	if !found {
		return root, bplist.Object{}, false, nil
	}
	objects, err = dec.Decode(objIdx)
	if err != nil {
		return root, bplist.Object{}, false, err
	}
	if objects.Tag != bplist.TagArray {
		return root, bplist.Object{}, false, nil
	}
	return root, objects, true, nil
}

// Open validates dec's document as an iChat archive, builds the participant table, and
// locates the message list. trimEmailIDs, when set, truncates each
// participant ID at its first '@' as it is recorded (spec.md §4.4 step 6).
func Open(dec *bplist.Decoder, cfg config.SessionConfig, trimEmailIDs bool) (*Session, error) {
	root, objects, ok, err := LooksLikeIChatArchive(dec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, archiveErr("$version/$objects", fmt.Errorf("root is not an iChat keyed archive"))
	}

	s := &Session{dec: dec, Config: cfg, objectsArray: objects}

	if err := s.loadParticipants(root, trimEmailIDs); err != nil {
		return s, err
	}
	if err := s.loadMessageList(); err != nil {
		return s, err
	}
	return s, nil
}

// followArchiveRef resolves the UID object stored at valueIndex by looking
// it up as a position within the cached "$objects" array, returning the
// object-table index the keyed archiver actually meant.
func (s *Session) followArchiveRef(valueIndex int) (int, error) {
	uidObj, err := s.dec.Decode(valueIndex)
	if err != nil {
		return 0, err
	}
	if uidObj.Tag != bplist.TagUID {
		return 0, fmt.Errorf("expected a UID at object #%d, found %s", valueIndex, uidObj.Tag)
	}
	idx, ok, err := s.dec.ArrayAt(s.objectsArray, int(uidObj.UID))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("UID %d is out of range of $objects (%d elements)", uidObj.UID, len(s.objectsArray.Refs))
	}
	return idx, nil
}

// lookupRef looks up key in dict, expecting its value to be a UID that must
// be followed through $objects, and returns the final object-table index.
func (s *Session) lookupRef(dict bplist.Object, key string) (int, bool, error) {
	valIdx, found, err := s.dec.DictLookup(dict, key)
	if err != nil || !found {
		return 0, found, err
	}
	idx, err := s.followArchiveRef(valIdx)
	return idx, true, err
}

// lookupDirect looks up key in dict and decodes its value directly, with no
// UID indirection (used for NS.keys/NS.objects/NS.string/NS.time, which the
// archiver inlines rather than referencing through $objects).
func (s *Session) lookupDirect(dict bplist.Object, key string) (bplist.Object, bool, error) {
	valIdx, found, err := s.dec.DictLookup(dict, key)
	if err != nil || !found {
		return bplist.Object{}, found, err
	}
	obj, err := s.dec.Decode(valIdx)
	return obj, true, err
}

// resolveDisplayString implements the "string-or-dict-with-NS.string-or-
// UnicodeString" capability named in spec.md §9: the same three-shape
// switch recurs for participant names, presentity IDs, message senders, and
// subjects.
func (s *Session) resolveDisplayString(index int) (string, error) {
	obj, err := s.dec.Decode(index)
	if err != nil {
		return "", err
	}
	switch obj.Tag {
	case bplist.TagASCIIString:
		if obj.Str == "" {
			return "<empty>", nil
		}
		return obj.Str, nil
	case bplist.TagUnicodeString:
		return decodeDecorativeUnicode(obj.Unicode), nil
	case bplist.TagDict:
		strObj, found, err := s.lookupDirect(obj, "NS.string")
		if err != nil {
			return "", err
		}
		if !found {
			return "", fmt.Errorf("dict has no NS.string key")
		}
		if strObj.Tag != bplist.TagASCIIString {
			return "", fmt.Errorf("NS.string value is %s, not an ASCII string", strObj.Tag)
		}
		if strObj.Str == "" {
			return "<empty>", nil
		}
		return strObj.Str, nil
	}
	return "", fmt.Errorf("object #%d (%s) is not a string, unicode string, or NS.string dict", index, obj.Tag)
}

// decodeDecorativeUnicode decodes a UnicodeString used as a display name:
// non-ASCII decorative code points (e.g. directional overrides U+202A/
// U+202C) are stripped, keeping only single-byte UTF-8 results, per
// spec.md §4.4 step 5.
func decodeDecorativeUnicode(units []uint16) string {
	var b strings.Builder
	for _, u := range units {
		enc, err := EncodeUTF16BEUnit(u)
		if err == nil && len(enc) == 1 {
			b.Write(enc)
		}
	}
	if b.Len() == 0 {
		return "<Unicode>"
	}
	return b.String()
}

func (s *Session) loadParticipants(root bplist.Object, trimEmailIDs bool) error {
	topIdx, found, err := s.lookupRef(root, "$top")
	if err != nil {
		return err
	}
	if !found {
		return archiveErr("$top", fmt.Errorf("missing"))
	}
	top, err := s.dec.Decode(topIdx)
	if err != nil {
		return err
	}
	if top.Tag != bplist.TagDict {
		return archiveErr("$top", fmt.Errorf("not a dict"))
	}

	metadataIdx, found, err := s.lookupRef(top, "metadata")
	if err != nil {
		return err
	}
	if !found {
		return archiveErr("$top.metadata", fmt.Errorf("missing"))
	}
	metadata, err := s.dec.Decode(metadataIdx)
	if err != nil {
		return err
	}
	if metadata.Tag != bplist.TagDict {
		return archiveErr("$top.metadata", fmt.Errorf("not a dict"))
	}

	metadataKeys, found, err := s.lookupDirect(metadata, "NS.keys")
	if err != nil {
		return err
	}
	if !found || metadataKeys.Tag != bplist.TagArray {
		return archiveErr("metadata.NS.keys", fmt.Errorf("missing or not an array"))
	}
	metadataValues, found, err := s.lookupDirect(metadata, "NS.objects")
	if err != nil {
		return err
	}
	if !found || metadataValues.Tag != bplist.TagArray {
		return archiveErr("metadata.NS.objects", fmt.Errorf("missing or not an array"))
	}

	partIndex, presIndex := -1, -1
	for a := range metadataKeys.Refs {
		keyIdx, err := s.followArchiveRef(metadataKeys.Refs[a])
		if err != nil {
			return err
		}
		keyObj, err := s.dec.Decode(keyIdx)
		if err != nil {
			return err
		}
		if keyObj.Tag != bplist.TagASCIIString {
			return archiveErr("metadata.NS.keys[]", fmt.Errorf("key is %s, not ASCII", keyObj.Tag))
		}
		switch keyObj.Str {
		case "Participants":
			partIndex = a
		case "PresentityIDs":
			presIndex = a
		}
	}
	if partIndex == -1 {
		return archiveErr("metadata.NS.keys", fmt.Errorf("no \"Participants\" entry"))
	}
	if presIndex == -1 {
		return archiveErr("metadata.NS.keys", fmt.Errorf("no \"PresentityIDs\" entry"))
	}

	names, err := s.loadStringList(metadataValues, partIndex)
	if err != nil {
		return err
	}
	ids, err := s.loadStringList(metadataValues, presIndex)
	if err != nil {
		return err
	}
	if trimEmailIDs {
		for i, id := range ids {
			if at := strings.IndexByte(id, '@'); at >= 0 {
				ids[i] = id[:at]
			}
		}
	}
	s.Participants = ParticipantTable{Names: names, IDs: ids}
	return nil
}

// loadStringList resolves metadataValues.Refs[listIndex] -> Dict -> NS.objects
// -> Array of UID references, each resolved via resolveDisplayString.
func (s *Session) loadStringList(metadataValues bplist.Object, listIndex int) ([]string, error) {
	listDictIdx, err := s.followArchiveRef(metadataValues.Refs[listIndex])
	if err != nil {
		return nil, err
	}
	listDict, err := s.dec.Decode(listDictIdx)
	if err != nil {
		return nil, err
	}
	if listDict.Tag != bplist.TagDict {
		return nil, archiveErr("metadata value", fmt.Errorf("not a dict"))
	}
	arr, found, err := s.lookupDirect(listDict, "NS.objects")
	if err != nil {
		return nil, err
	}
	if !found || arr.Tag != bplist.TagArray {
		return nil, archiveErr("metadata value.NS.objects", fmt.Errorf("missing or not an array"))
	}
	out := make([]string, len(arr.Refs))
	for i, ref := range arr.Refs {
		idx, err := s.followArchiveRef(ref)
		if err != nil {
			return nil, err
		}
		str, err := s.resolveDisplayString(idx)
		if err != nil {
			return nil, err
		}
		out[i] = str
	}
	return out, nil
}

func (s *Session) loadMessageList() error {
	msgListDictIdx, ok, err := s.dec.ArrayAt(s.objectsArray, 4)
	if err != nil {
		return err
	}
	if !ok {
		return archiveErr("$objects[4]", fmt.Errorf("out of range"))
	}
	msgListDict, err := s.dec.Decode(msgListDictIdx)
	if err != nil {
		return err
	}
	if msgListDict.Tag != bplist.TagDict {
		return archiveErr("$objects[4]", fmt.Errorf("not a dict"))
	}
	arr, found, err := s.lookupDirect(msgListDict, "NS.objects")
	if err != nil {
		return err
	}
	if !found || arr.Tag != bplist.TagArray {
		return archiveErr("$objects[4].NS.objects", fmt.Errorf("missing or not an array"))
	}
	s.messageList = arr
	return nil
}

// NumMessages returns the number of messages in chat order.
func (s *Session) NumMessages() int { return len(s.messageList.Refs) }

// messageDictIndex resolves the i'th entry of the message list to the
// object-table index of its BPmsg dict.
func (s *Session) messageDictIndex(i int) (int, error) {
	if i < 0 || i >= len(s.messageList.Refs) {
		return 0, fmt.Errorf("message index %d out of range", i)
	}
	return s.followArchiveRef(s.messageList.Refs[i])
}
