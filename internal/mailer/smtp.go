package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

const (
	subject     = "Send to Kindle"
	body        = "Delivered by kindlepost."
	contentType = "application/epub+zip"
)

// SMTP sends documents to the e-reader's personal document address over an
// implicit-TLS SMTP submission.
type SMTP struct {
	addr     string
	username string
	password string
	from     string
	to       string
}

// NewSMTP creates a mailer that submits through addr (host:port, implicit
// TLS) and delivers to the given destination address.
func NewSMTP(addr, username, password, from, to string) *SMTP {
	return &SMTP{
		addr:     addr,
		username: username,
		password: password,
		from:     from,
		to:       to,
	}
}

// Send builds the MIME message and submits it. One message per document.
func (s *SMTP) Send(ctx context.Context, filename string, content []byte) error {
	msg, err := s.compose(filename, content)
	if err != nil {
		return fmt.Errorf("compose message for %s: %w", filename, err)
	}

	c, err := smtp.DialTLS(s.addr, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.addr, err)
	}
	defer c.Close()

	if err := c.Auth(sasl.NewPlainClient("", s.username, s.password)); err != nil {
		return fmt.Errorf("authenticate as %s: %w", s.username, err)
	}

	if err := c.SendMail(s.from, []string{s.to}, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("send %s to %s: %w", filename, s.to, err)
	}

	slog.Info("document mailed", "filename", filename, "to", s.to, "bytes", len(content))
	return c.Quit()
}

// compose renders the full RFC 5322 message: a short text part plus the
// document attachment with its original filename.
func (s *SMTP) compose(filename string, content []byte) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: s.from}})
	h.SetAddressList("To", []*mail.Address{{Address: s.to}})
	h.SetSubject(subject)

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create writer: %w", err)
	}

	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	tw, err := mw.CreateSingleInline(th)
	if err != nil {
		return nil, fmt.Errorf("create text part: %w", err)
	}
	if _, err := tw.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("write text part: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close text part: %w", err)
	}

	var ah mail.AttachmentHeader
	ah.SetContentType(contentType, nil)
	ah.SetFilename(filename)
	ah.Set("Content-Transfer-Encoding", "base64")
	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return nil, fmt.Errorf("create attachment: %w", err)
	}
	if _, err := aw.Write(content); err != nil {
		return nil, fmt.Errorf("write attachment: %w", err)
	}
	if err := aw.Close(); err != nil {
		return nil, fmt.Errorf("close attachment: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}
