package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/avieira/kindlepost/internal/mailer"
	"github.com/avieira/kindlepost/internal/session"
)

const (
	cmdStart  = "/start"
	cmdKindle = "/kindle"
	cmdStop   = "/stop"
)

// fallbackFilename is used when Telegram omits the document name.
const fallbackFilename = "book.epub"

// Document identifies an uploaded file on the chat transport.
type Document struct {
	FileID   string
	FileName string
}

// Event is a transport-agnostic inbound chat event: either a command or a
// document upload, with the sender's identity.
type Event struct {
	UserID   int64
	Command  string
	Document *Document
}

// Downloader fetches the raw bytes of an uploaded file from the chat
// transport.
type Downloader interface {
	Fetch(ctx context.Context, fileID string) ([]byte, error)
}

// Dispatcher turns inbound events into session transitions and reply text.
// It holds no transport handle, so handlers are testable with fakes.
type Dispatcher struct {
	state     *session.State
	mailer    mailer.Mailer
	documents Downloader
	allowedID int64

	commands map[string]func() string
}

// NewDispatcher wires the handlers to the shared state and collaborators.
func NewDispatcher(state *session.State, m mailer.Mailer, d Downloader, allowedID int64) *Dispatcher {
	disp := &Dispatcher{
		state:     state,
		mailer:    m,
		documents: d,
		allowedID: allowedID,
	}
	disp.commands = map[string]func() string{
		cmdStart:  disp.handleStart,
		cmdKindle: disp.handleKindle,
		cmdStop:   disp.handleStop,
	}
	return disp
}

// Dispatch routes one event and returns the reply text, or "" when no reply
// is warranted. Every authorized interaction counts as activity; denied
// callers touch nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) string {
	if ev.UserID != d.allowedID {
		return msgPrivate
	}

	d.state.Touch()

	if ev.Document != nil {
		return d.handleDocument(ctx, ev.Document)
	}
	if handler, ok := d.commands[ev.Command]; ok {
		return handler()
	}
	return ""
}

func (d *Dispatcher) handleStart() string {
	return msgIntro
}

func (d *Dispatcher) handleKindle() string {
	d.state.Activate()
	return msgActivated
}

func (d *Dispatcher) handleStop() string {
	snap, ok := d.state.Deactivate()
	if !ok {
		return msgAlreadyResting
	}
	return stopSummary(snap)
}

// handleDocument runs the upload flow. Download and delivery happen outside
// the state lock; only the counter updates re-enter it.
func (d *Dispatcher) handleDocument(ctx context.Context, doc *Document) string {
	if !d.state.Active() {
		return msgUseKindleFirst
	}

	filename := doc.FileName
	if filename == "" {
		filename = fallbackFilename
	}
	if !strings.HasSuffix(strings.ToLower(filename), epubExt) {
		return msgWrongFormat
	}

	d.state.RecordReceived()

	content, err := d.documents.Fetch(ctx, doc.FileID)
	if err != nil {
		d.state.RecordFailure(fmt.Sprintf("%s: download failed (%v)", filename, err))
		return fmt.Sprintf(msgDownloadFailed, filename)
	}

	if err := d.mailer.Send(ctx, filename, content); err != nil {
		d.state.RecordFailure(fmt.Sprintf("%s: mail delivery failed (%v)", filename, err))
		return fmt.Sprintf(msgDeliveryFailed, filename)
	}

	d.state.RecordSuccess()
	return fmt.Sprintf(msgDelivered, prettifyTitle(filename))
}
