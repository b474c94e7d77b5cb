package mailer

import "context"

// Mailer delivers a document as an e-mail attachment to the configured
// destination. The bot only ever talks to this interface.
type Mailer interface {
	// Send submits content as an attachment named filename. Synchronous;
	// returns a transport error on failure.
	Send(ctx context.Context, filename string, content []byte) error
}
