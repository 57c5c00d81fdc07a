package ichat

import (
	"testing"

	"github.com/amethystsoftware/ichatconv/internal/bplist"
	"github.com/amethystsoftware/ichatconv/internal/config"
	"github.com/amethystsoftware/ichatconv/internal/ichat/ichattest"
)

func TestEndToEndTextMessage(t *testing.T) {
	buf := ichattest.EndToEndTextMessage()
	dec, err := bplist.NewDecoder(buf, 0)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	cfg := config.Default()
	cfg.LocalOffsetHours = 0

	sess, err := Open(dec, cfg, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if got, want := sess.Participants.Names, []string{"alice", "bob"}; !equalStrings(got, want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
	if got, want := sess.Participants.IDs, []string{"alice", "bob"}; !equalStrings(got, want) {
		t.Fatalf("IDs (trimmed) = %v, want %v", got, want)
	}

	if sess.NumMessages() != 1 {
		t.Fatalf("NumMessages = %d, want 1", sess.NumMessages())
	}

	msg, err := sess.Message(0)
	if err != nil {
		t.Fatalf("Message(0): %v", err)
	}
	if msg.Hiccup {
		t.Fatal("unexpected hiccup")
	}
	if msg.FromClient {
		t.Fatal("expected a participant message, not a client notice")
	}
	if msg.SenderID != "alice@x" {
		t.Fatalf("SenderID = %q, want alice@x", msg.SenderID)
	}
	if msg.Text != "hi" || msg.IsUnicodeText {
		t.Fatalf("Text = %q isUnicode=%v, want \"hi\"/false", msg.Text, msg.IsUnicodeText)
	}
	if msg.TimeShort != "00:00:00" {
		t.Fatalf("TimeShort = %q, want 00:00:00", msg.TimeShort)
	}
	if sess.FirstTimestampLong != "2001-01-01 00:00:00" {
		t.Fatalf("FirstTimestampLong = %q", sess.FirstTimestampLong)
	}
}

func equalStrings(a, b []string) bool {
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
