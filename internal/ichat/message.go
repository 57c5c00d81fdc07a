package ichat

import (
	"fmt"
	"strings"

	"github.com/amethystsoftware/ichatconv/internal/bplist"
)

// statusOnline/statusOffline are the StatusChatItemStatusType values that
// mark a message as a synthetic client notice ("X is now online/offline.")
// rather than text a participant typed.
const (
	statusOnline  = 1
	statusOffline = 2
)

const filenameAttributeKey = "__kIMFilenameAttributeName"

// Message is one interpreted chat entry: either text (Text, or UnicodeText
// when IsUnicodeText is set) or a file transfer (FileNames set,
// FileTransferCount equal to len(FileNames); a filename that cannot be
// resolved is an error). Hiccup is set for a known-corrupt file-transfer shape that is
// skipped rather than treated as fatal (spec.md §4.5, "SMS hiccup").
type Message struct {
	Hiccup            bool
	FromClient        bool
	SenderID          string // participant account id, or "" when FromClient
	SubjectID         string // set only for online/offline client notices, from Subject.ID
	TimeShort         string
	TimeLong          string // set only on the first message of the archive
	Text              string
	IsUnicodeText     bool
	UnicodeText       []uint16
	FileNames         []string
	FileTransferCount int
}

// Message interprets the i'th entry of the session's message list.
func (s *Session) Message(i int) (Message, error) {
	msgDictIdx, err := s.messageDictIndex(i)
	if err != nil {
		return Message{}, messageErr(i, "message list", err)
	}
	msgDict, err := s.dec.Decode(msgDictIdx)
	if err != nil {
		return Message{}, messageErr(i, "message dict", err)
	}
	if msgDict.Tag != bplist.TagDict {
		return Message{}, messageErr(i, "message dict", fmt.Errorf("not a dict"))
	}

	var m Message

	if err := s.interpretSubjectOrSender(i, msgDict, &m); err != nil {
		return Message{}, err
	}

	if err := s.interpretTime(i, msgDict, &m); err != nil {
		return Message{}, err
	}

	hiccup, err := s.interpretBody(i, msgDict, &m)
	if err != nil {
		return Message{}, err
	}
	m.Hiccup = hiccup
	return m, nil
}

func (s *Session) interpretSubjectOrSender(i int, msgDict bplist.Object, m *Message) error {
	statusIdx, found, err := s.lookupRef(msgDict, "StatusChatItemStatusType")
	if err != nil {
		return messageErr(i, "StatusChatItemStatusType", err)
	}
	if found {
		statusObj, err := s.dec.Decode(statusIdx)
		if err != nil {
			return messageErr(i, "StatusChatItemStatusType", err)
		}
		if statusObj.Tag == bplist.TagInt && (statusObj.Int == statusOnline || statusObj.Int == statusOffline) {
			m.FromClient = true
			subjectDictIdx, found, err := s.lookupRef(msgDict, "Subject")
			if err != nil {
				return messageErr(i, "Subject", err)
			}
			if found {
				subjectDict, err := s.dec.Decode(subjectDictIdx)
				if err != nil {
					return messageErr(i, "Subject", err)
				}
				if subjectDict.Tag == bplist.TagDict {
					subjectNameIdx, found, err := s.lookupRef(subjectDict, "ID")
					if err != nil {
						return messageErr(i, "Subject.ID", err)
					}
					if found {
						name, err := s.resolveDisplayString(subjectNameIdx)
						if err != nil {
							return messageErr(i, "Subject.ID", err)
						}
						m.SubjectID = name
					}
				}
			}
			return nil
		}
	}

	senderValIdx, found, err := s.dec.DictLookup(msgDict, "Sender")
	if err != nil {
		return messageErr(i, "Sender", err)
	}
	if !found {
		return messageErr(i, "Sender", fmt.Errorf("missing"))
	}
	senderUID, err := s.dec.Decode(senderValIdx)
	if err != nil {
		return messageErr(i, "Sender", err)
	}
	if senderUID.Tag != bplist.TagUID {
		return messageErr(i, "Sender", fmt.Errorf("expected UID, found %s", senderUID.Tag))
	}
	if senderUID.UID == 0 {
		m.FromClient = true
		return nil
	}

	senderDictIdx, err := s.followArchiveRef(senderValIdx)
	if err != nil {
		return messageErr(i, "Sender", err)
	}
	senderDict, err := s.dec.Decode(senderDictIdx)
	if err != nil {
		return messageErr(i, "Sender", err)
	}
	if senderDict.Tag != bplist.TagDict {
		return messageErr(i, "Sender", fmt.Errorf("not a dict"))
	}
	senderIDIdx, found, err := s.lookupRef(senderDict, "ID")
	if err != nil {
		return messageErr(i, "Sender.ID", err)
	}
	if !found {
		return messageErr(i, "Sender.ID", fmt.Errorf("missing"))
	}
	senderID, err := s.resolveDisplayString(senderIDIdx)
	if err != nil {
		return messageErr(i, "Sender.ID", err)
	}
	m.SenderID = senderID
	return nil
}

func (s *Session) interpretTime(i int, msgDict bplist.Object, m *Message) error {
	timeDictIdx, found, err := s.lookupRef(msgDict, "Time")
	if err != nil {
		return messageErr(i, "Time", err)
	}
	if !found {
		return messageErr(i, "Time", fmt.Errorf("missing"))
	}
	timeDict, err := s.dec.Decode(timeDictIdx)
	if err != nil {
		return messageErr(i, "Time", err)
	}
	if timeDict.Tag != bplist.TagDict {
		return messageErr(i, "Time", fmt.Errorf("not a dict"))
	}
	nsTime, found, err := s.lookupDirect(timeDict, "NS.time")
	if err != nil {
		return messageErr(i, "Time.NS.time", err)
	}
	if !found || nsTime.Tag != bplist.TagReal {
		return messageErr(i, "Time.NS.time", fmt.Errorf("missing or not a real"))
	}
	m.TimeShort = FormatNSDate(nsTime.Real, s.Config.LocalOffsetHours, false)
	if i == 0 {
		s.FirstTimestampLong = FormatNSDate(nsTime.Real, s.Config.LocalOffsetHours, true)
		m.TimeLong = s.FirstTimestampLong
	}
	return nil
}

// interpretBody returns (hiccup, error): hiccup is true for the known
// corrupted file-transfer shape (missing NSAttributes), which the caller
// must skip rather than fail on.
func (s *Session) interpretBody(i int, msgDict bplist.Object, m *Message) (bool, error) {
	_, isText, err := s.dec.DictLookup(msgDict, "OriginalMessage")
	if err != nil {
		return false, messageErr(i, "OriginalMessage", err)
	}

	msgTextIdx, found, err := s.lookupRef(msgDict, "MessageText")
	if err != nil {
		return false, messageErr(i, "MessageText", err)
	}
	if !found {
		return false, messageErr(i, "MessageText", fmt.Errorf("missing"))
	}
	msgText, err := s.dec.Decode(msgTextIdx)
	if err != nil {
		return false, messageErr(i, "MessageText", err)
	}
	if msgText.Tag != bplist.TagDict {
		return false, messageErr(i, "MessageText", fmt.Errorf("not a dict"))
	}

	if isText {
		return false, s.interpretText(i, msgText, m)
	}
	return s.interpretFileTransfer(i, msgText, m)
}

func (s *Session) interpretText(i int, msgText bplist.Object, m *Message) error {
	stringDictIdx, found, err := s.lookupRef(msgText, "NSString")
	if err != nil {
		return messageErr(i, "MessageText.NSString", err)
	}
	if !found {
		return messageErr(i, "MessageText.NSString", fmt.Errorf("missing"))
	}
	stringDict, err := s.dec.Decode(stringDictIdx)
	if err != nil {
		return messageErr(i, "MessageText.NSString", err)
	}
	if stringDict.Tag != bplist.TagDict {
		return messageErr(i, "MessageText.NSString", fmt.Errorf("not a dict"))
	}
	strObj, found, err := s.lookupDirect(stringDict, "NS.string")
	if err != nil {
		return messageErr(i, "MessageText.NSString.NS.string", err)
	}
	if !found {
		return messageErr(i, "MessageText.NSString.NS.string", fmt.Errorf("missing"))
	}

	switch strObj.Tag {
	case bplist.TagASCIIString:
		m.Text = substituteOnlineOffline(strObj.Str, m.FromClient, m.SubjectID)
	case bplist.TagUnicodeString:
		m.IsUnicodeText = true
		m.UnicodeText = strObj.Unicode
	default:
		return messageErr(i, "MessageText.NSString.NS.string", fmt.Errorf("unexpected type %s", strObj.Tag))
	}
	return nil
}

// substituteOnlineOffline applies the client-notice substitution: a client
// message whose text is exactly "%@ is now online." or "%@ is now
// offline." has its placeholder replaced with the resolved subject id.
func substituteOnlineOffline(text string, fromClient bool, subjectID string) string {
	if !fromClient {
		return text
	}
	if text == "%@ is now online." || text == "%@ is now offline." {
		return strings.Replace(text, "%@", subjectID, 1)
	}
	return text
}

func (s *Session) interpretFileTransfer(i int, msgText bplist.Object, m *Message) (bool, error) {
	_, isMultiple, err := s.dec.DictLookup(msgText, "NSAttributeInfo")
	if err != nil {
		return false, messageErr(i, "NSAttributeInfo", err)
	}

	attribValIdx, found, err := s.dec.DictLookup(msgText, "NSAttributes")
	if err != nil {
		return false, messageErr(i, "NSAttributes", err)
	}
	if !found {
		return true, nil // the SMS hiccup: skip, not fatal
	}
	attribIdx, err := s.followArchiveRef(attribValIdx)
	if err != nil {
		return false, messageErr(i, "NSAttributes", err)
	}
	attrib, err := s.dec.Decode(attribIdx)
	if err != nil {
		return false, messageErr(i, "NSAttributes", err)
	}
	if attrib.Tag != bplist.TagDict {
		return false, messageErr(i, "NSAttributes", fmt.Errorf("not a dict"))
	}

	if isMultiple {
		objects, found, err := s.lookupDirect(attrib, "NS.objects")
		if err != nil {
			return false, messageErr(i, "NSAttributes.NS.objects", err)
		}
		if !found || objects.Tag != bplist.TagArray {
			return false, messageErr(i, "NSAttributes.NS.objects", fmt.Errorf("missing or not an array"))
		}
		names := make([]string, 0, len(objects.Refs))
		for a, ref := range objects.Refs {
			fileDictIdx, err := s.followArchiveRef(ref)
			if err != nil {
				return false, messageErr(i, fmt.Sprintf("NSAttributes.NS.objects[%d]", a), err)
			}
			fileDict, err := s.dec.Decode(fileDictIdx)
			if err != nil {
				return false, messageErr(i, fmt.Sprintf("NSAttributes.NS.objects[%d]", a), err)
			}
			if fileDict.Tag != bplist.TagDict {
				return false, messageErr(i, fmt.Sprintf("NSAttributes.NS.objects[%d]", a), fmt.Errorf("not a dict"))
			}
			name, err := s.filenameFromAttributeDict(i, fileDict)
			if err != nil {
				return false, err
			}
			names = append(names, name)
		}
		m.FileNames = names
		m.FileTransferCount = len(names)
		return false, nil
	}

	name, err := s.filenameFromAttributeDict(i, attrib)
	if err != nil {
		return false, err
	}
	m.FileNames = []string{name}
	m.FileTransferCount = 1
	return false, nil
}

func (s *Session) filenameFromAttributeDict(i int, dict bplist.Object) (string, error) {
	keys, found, err := s.lookupDirect(dict, "NS.keys")
	if err != nil {
		return "", messageErr(i, "attribute.NS.keys", err)
	}
	if !found || keys.Tag != bplist.TagArray {
		return "", messageErr(i, "attribute.NS.keys", fmt.Errorf("missing or not an array"))
	}
	values, found, err := s.lookupDirect(dict, "NS.objects")
	if err != nil {
		return "", messageErr(i, "attribute.NS.objects", err)
	}
	if !found || values.Tag != bplist.TagArray {
		return "", messageErr(i, "attribute.NS.objects", fmt.Errorf("missing or not an array"))
	}

	nameIndex := -1
	for b := range keys.Refs {
		keyIdx, err := s.followArchiveRef(keys.Refs[b])
		if err != nil {
			return "", messageErr(i, "attribute.NS.keys[]", err)
		}
		keyObj, err := s.dec.Decode(keyIdx)
		if err != nil {
			return "", messageErr(i, "attribute.NS.keys[]", err)
		}
		if keyObj.Tag == bplist.TagASCIIString && keyObj.Str == filenameAttributeKey {
			nameIndex = b
			break
		}
	}
	if nameIndex == -1 {
		return "", messageErr(i, "attribute.NS.keys", fmt.Errorf("no %s entry", filenameAttributeKey))
	}
	if nameIndex >= len(values.Refs) {
		return "", messageErr(i, "attribute.NS.objects", fmt.Errorf("fewer values than keys"))
	}
	fileNameIdx, err := s.followArchiveRef(values.Refs[nameIndex])
	if err != nil {
		return "", messageErr(i, "attribute.NS.objects[]", err)
	}
	fileName, err := s.dec.Decode(fileNameIdx)
	if err != nil {
		return "", messageErr(i, "attribute.NS.objects[]", err)
	}
	if fileName.Tag != bplist.TagASCIIString {
		return "", messageErr(i, "attribute.NS.objects[]", fmt.Errorf("not an ASCII string"))
	}
	return fileName.Str, nil
}
