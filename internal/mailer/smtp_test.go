package mailer

import (
	"strings"
	"testing"
)

func TestCompose_HeadersAndAttachment(t *testing.T) {
	m := NewSMTP("smtp.example.com:465", "bot@example.com", "secret", "bot@example.com", "reader@kindle.com")

	msg, err := m.compose("My_Book.epub", []byte("epub bytes"))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	text := string(msg)

	for _, want := range []string{
		"bot@example.com",
		"reader@kindle.com",
		"Subject: Send to Kindle",
		"application/epub+zip",
		"My_Book.epub",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestCompose_AttachmentIsEncoded(t *testing.T) {
	m := NewSMTP("smtp.example.com:465", "bot@example.com", "secret", "bot@example.com", "reader@kindle.com")

	msg, err := m.compose("a.epub", []byte{0x50, 0x4b, 0x03, 0x04})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	// The attachment part must be transfer-encoded, not raw bytes.
	if !strings.Contains(string(msg), "base64") {
		t.Error("expected a base64 transfer encoding for the attachment")
	}
}
