// Package render serializes an interpreted chat session to plain text or
// to the RTF dialect the original "Convert ichat Files" program wrote,
// grounded on ichatReader.c's ConvertMessageToRTF/TXT and WriteSenderName.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/amethystsoftware/ichatconv/internal/ichat"
)

// Options controls display-name resolution; the output format is chosen by
// calling RenderTXT or RenderRTF, and the color table, font, and client
// name come from the session's config.
type Options struct {
	RealNames    bool
	TrimEmailIDs bool
}

// resolveSenderDisplay implements the "Common rules" shared by both
// dialects: find senderId in the participant table by trying the raw id
// and then a canonicalized form (strip from the first '@', strip a leading
// '+'), then pick a display string per opt.
func resolveSenderDisplay(p ichat.ParticipantTable, senderID string, opt Options) (display string, index int, known bool) {
	idx := indexOfID(p.IDs, senderID)
	if idx < 0 {
		canon := senderID
		if at := strings.IndexByte(canon, '@'); at >= 0 {
			canon = canon[:at]
		}
		canon = strings.TrimPrefix(canon, "+")
		idx = indexOfID(p.IDs, canon)
	}
	if idx < 0 {
		return trimAccountID(senderID, opt.TrimEmailIDs), -1, false
	}
	if opt.RealNames && idx < len(p.Names) && p.Names[idx] != "" {
		return p.Names[idx], idx, true
	}
	return trimAccountID(p.IDs[idx], opt.TrimEmailIDs), idx, true
}

func indexOfID(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

func trimAccountID(id string, trimEmailIDs bool) string {
	id = strings.TrimPrefix(id, "e:")
	if trimEmailIDs {
		if at := strings.IndexByte(id, '@'); at >= 0 {
			id = id[:at]
		}
	}
	return id
}

// collectMessages interprets every message up front. WriteTimeHeader-style
// headers need sess.FirstTimestampLong, which is only populated once
// message 0 has been interpreted, so callers must collect before writing
// the header rather than interleaving interpretation with output.
func collectMessages(sess *ichat.Session) ([]ichat.Message, error) {
	msgs := make([]ichat.Message, sess.NumMessages())
	for i := range msgs {
		msg, err := sess.Message(i)
		if err != nil {
			return nil, err
		}
		msgs[i] = msg
	}
	return msgs, nil
}

// RenderTXT writes the session as plain UTF-8 text, one line per message.
func RenderTXT(w io.Writer, sess *ichat.Session, opt Options) error {
	msgs, err := collectMessages(sess)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Chat window opened on %s:\n", sess.FirstTimestampLong); err != nil {
		return err
	}
	for _, msg := range msgs {
		if msg.Hiccup {
			continue
		}
		text := txtBody(msg)
		if msg.FromClient {
			if _, err := fmt.Fprintf(w, "%s %s : %s\n", msg.TimeShort, sess.Config.ClientName, text); err != nil {
				return err
			}
			continue
		}
		display, _, _ := resolveSenderDisplay(sess.Participants, msg.SenderID, opt)
		switch {
		case msg.FileTransferCount == 1:
			if _, err := fmt.Fprintf(w, "%s %s sent file %s.\n", msg.TimeShort, display, text); err != nil {
				return err
			}
		case msg.FileTransferCount > 1:
			if _, err := fmt.Fprintf(w, "%s %s sent %d files: %s.\n", msg.TimeShort, display, msg.FileTransferCount, text); err != nil {
				return err
			}
		default:
			if _, err := fmt.Fprintf(w, "%s %s: %s\n", msg.TimeShort, display, text); err != nil {
				return err
			}
		}
	}
	return nil
}

func txtBody(msg ichat.Message) string {
	if msg.FileTransferCount > 0 {
		return strings.Join(msg.FileNames, ", ")
	}
	if msg.IsUnicodeText {
		var b strings.Builder
		for _, u := range msg.UnicodeText {
			enc, err := ichat.EncodeUTF16BEUnit(u)
			if err == nil {
				b.Write(enc)
			}
		}
		return b.String()
	}
	return msg.Text
}
