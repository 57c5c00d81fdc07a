package render

import (
	"strings"
	"testing"

	"github.com/amethystsoftware/ichatconv/internal/bplist"
	"github.com/amethystsoftware/ichatconv/internal/config"
	"github.com/amethystsoftware/ichatconv/internal/ichat"
	"github.com/amethystsoftware/ichatconv/internal/ichat/ichattest"
)

func openFixtureSession(t *testing.T) *ichat.Session {
	t.Helper()
	dec, err := bplist.NewDecoder(ichattest.EndToEndTextMessage(), 0)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	cfg := config.Default()
	cfg.LocalOffsetHours = 0
	sess, err := ichat.Open(dec, cfg, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return sess
}

// TestRenderTXTHeaderUsesFirstMessageTimestamp guards against emitting the
// "Chat window opened on" header before any message has been interpreted:
// FirstTimestampLong is only populated as a side effect of interpreting
// message 0, so the header must not be written first.
func TestRenderTXTHeaderUsesFirstMessageTimestamp(t *testing.T) {
	sess := openFixtureSession(t)
	var b strings.Builder
	if err := RenderTXT(&b, sess, Options{}); err != nil {
		t.Fatalf("RenderTXT: %v", err)
	}
	got := b.String()
	want := "Chat window opened on 2001-01-01 00:00:00:\n" +
		"00:00:00 alice: hi\n"
	if got != want {
		t.Fatalf("RenderTXT output = %q, want %q", got, want)
	}
}

func TestRenderRTFHeaderUsesFirstMessageTimestamp(t *testing.T) {
	sess := openFixtureSession(t)
	var b strings.Builder
	if err := RenderRTF(&b, sess, Options{}); err != nil {
		t.Fatalf("RenderRTF: %v", err)
	}
	got := b.String()
	if !strings.Contains(got, `Chat window opened on 2001-01-01 00:00:00:\`) {
		t.Fatalf("RenderRTF output missing populated header: %q", got)
	}
	if strings.Contains(got, "Chat window opened on :") {
		t.Fatalf("RenderRTF output has empty header: %q", got)
	}
}

func TestResolveSenderDisplayExactMatch(t *testing.T) {
	p := ichat.ParticipantTable{Names: []string{"Alice"}, IDs: []string{"alice@x"}}
	display, idx, known := resolveSenderDisplay(p, "alice@x", Options{})
	if !known || idx != 0 || display != "alice@x" {
		t.Fatalf("got display=%q idx=%d known=%v", display, idx, known)
	}
}

func TestResolveSenderDisplayRealNames(t *testing.T) {
	p := ichat.ParticipantTable{Names: []string{"Alice"}, IDs: []string{"alice@x"}}
	display, idx, known := resolveSenderDisplay(p, "alice@x", Options{RealNames: true})
	if !known || idx != 0 || display != "Alice" {
		t.Fatalf("got display=%q idx=%d known=%v", display, idx, known)
	}
}

func TestResolveSenderDisplayCanonicalizedMatch(t *testing.T) {
	p := ichat.ParticipantTable{Names: []string{"Bob"}, IDs: []string{"bob"}}
	// Raw sender id carries an email suffix and a leading '+' the
	// participant table doesn't: canonicalization should still find it.
	display, idx, known := resolveSenderDisplay(p, "+bob@y.example", Options{})
	if !known || idx != 0 || display != "bob" {
		t.Fatalf("got display=%q idx=%d known=%v", display, idx, known)
	}
}

func TestResolveSenderDisplayUnknownFallsBackToTrimmedID(t *testing.T) {
	p := ichat.ParticipantTable{}
	display, idx, known := resolveSenderDisplay(p, "e:ghost@nowhere", Options{TrimEmailIDs: true})
	if known || idx != -1 {
		t.Fatalf("expected unknown sender, got idx=%d known=%v", idx, known)
	}
	if display != "ghost" {
		t.Fatalf("got display=%q, want ghost", display)
	}
}

func TestRTFEscapeASCIISpecialChars(t *testing.T) {
	got := rtfEscapeASCII("a{b}c\\d\ne")
	want := `a\{b\}c\\d\` + "\n" + "e"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRTFEscapeUnicodeMixesASCIIAndEscapes(t *testing.T) {
	got := rtfEscapeUnicode([]uint16{'h', 'i', 0x00E9}) // "hi" + e-acute
	want := `hi\uc0\u233 `
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
