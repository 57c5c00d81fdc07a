package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/amethystsoftware/ichatconv/internal/ichat"
)

// RenderRTF writes the session as the RTF dialect WriteRTFHeader/
// ConvertMessageToRTF produced: a fixed 7-color table, Helvetica, standard
// margins, one paragraph per message.
func RenderRTF(w io.Writer, sess *ichat.Session, opt Options) error {
	msgs, err := collectMessages(sess)
	if err != nil {
		return err
	}
	if err := writeRTFHeader(w, sess); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\\cf1 Chat window opened on %s:\\\n", sess.FirstTimestampLong); err != nil {
		return err
	}
	for _, msg := range msgs {
		if msg.Hiccup {
			continue
		}
		if err := writeRTFMessage(w, sess, msg, opt); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "}")
	return err
}

func writeRTFHeader(w io.Writer, sess *ichat.Session) error {
	var b strings.Builder
	b.WriteString(`{\rtf1\ansi\ansicpg1252\deff0` + "\n")
	fmt.Fprintf(&b, `{\fonttbl{\f0\fswiss\fcharset0 %s;}}`+"\n", sess.Config.RTFFont)
	b.WriteString(`{\colortbl`)
	for _, c := range sess.Config.RTFColors {
		fmt.Fprintf(&b, `\red%d\green%d\blue%d;`, c.Red, c.Green, c.Blue)
	}
	b.WriteString("}\n")
	b.WriteString(`\margl1440\margr1440\margt1440\margb1440` + "\n")
	b.WriteString(`\f0\fs24` + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeRTFMessage(w io.Writer, sess *ichat.Session, msg ichat.Message, opt Options) error {
	var b strings.Builder
	fmt.Fprintf(&b, `\cf1 %s `, msg.TimeShort)

	if msg.FromClient {
		fmt.Fprintf(&b, `\cf0 %s`, rtfEscapeASCII(sess.Config.ClientName))
	} else {
		display, index, known := resolveSenderDisplay(sess.Participants, msg.SenderID, opt)
		color := 0
		if known {
			color = (index % 5) + 2
		}
		italic := ""
		italicEnd := ""
		if msg.FileTransferCount > 0 {
			italic, italicEnd = `\i `, `\i0 `
		}
		fmt.Fprintf(&b, `\cf%d %s%s%s`, color, italic, rtfEscapeASCII(display), italicEnd)
	}

	b.WriteString(`\cf0 : `)
	b.WriteString(rtfBody(msg))
	b.WriteString(`\\` + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func rtfBody(msg ichat.Message) string {
	if msg.FileTransferCount > 0 {
		names := make([]string, len(msg.FileNames))
		for i, n := range msg.FileNames {
			names[i] = rtfEscapeASCII(n)
		}
		return strings.Join(names, ", ")
	}
	if msg.IsUnicodeText {
		return rtfEscapeUnicode(msg.UnicodeText)
	}
	return rtfEscapeASCII(msg.Text)
}

// rtfEscapeASCII escapes '{', '}', '\', and 0x0A by prefixing with '\'.
func rtfEscapeASCII(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '{' || c == '}' || c == '\\' || c == '\n' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// rtfEscapeUnicode writes ASCII-range code units directly (with the same
// escaping as rtfEscapeASCII) and every other code unit as \uc0\u<decimal>.
func rtfEscapeUnicode(units []uint16) string {
	var b strings.Builder
	for _, u := range units {
		if u < 0x80 {
			c := byte(u)
			if c == '{' || c == '}' || c == '\\' || c == '\n' {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, `\uc0\u%d `, int16(u))
	}
	return b.String()
}
