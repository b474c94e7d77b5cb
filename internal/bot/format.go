package bot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/avieira/kindlepost/internal/session"
)

const epubExt = ".epub"

// maxSummaryErrors caps how many error-log lines a summary shows.
const maxSummaryErrors = 10

// Fixed replies. HTML parse mode throughout.
const (
	msgPrivate        = "🚫 This bot is private."
	msgIntro          = "Hi! I'm <b>kindlepost</b> 📚\nI forward EPUBs to your Kindle.\nWhenever you want to start, use <b>/kindle</b>."
	msgActivated      = "Kindle mode is on ✅\nSend me your EPUBs (as many as you like)."
	msgAlreadyResting = "I was already resting 🫶"
	msgUseKindleFirst = "Use <b>/kindle</b> first so I can start forwarding 📚"
	msgWrongFormat    = "That file isn't an EPUB 😅\nSend a <b>.epub</b> and I'll handle the rest."
	msgDownloadFailed = "❌ Could not download: <b>%s</b>"
	msgDeliveryFailed = "❌ Could not send to your Kindle: <b>%s</b>"
	msgDelivered      = "✅ <b>%s</b> is on its way to your Kindle 🫶"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// prettifyTitle derives a display title from an EPUB filename: drop the
// extension, turn underscores and hyphens into spaces, collapse whitespace.
func prettifyTitle(filename string) string {
	name := filename
	if strings.HasSuffix(strings.ToLower(name), epubExt) {
		name = name[:len(name)-len(epubExt)]
	}
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	name = whitespaceRun.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// counterLines renders the received/delivered/failed block plus up to
// maxSummaryErrors error-log lines.
func counterLines(snap session.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📥 Received: <b>%d</b>\n", snap.Received)
	fmt.Fprintf(&sb, "✅ Delivered: <b>%d</b>\n", snap.Delivered)
	fmt.Fprintf(&sb, "❌ Failed: <b>%d</b>\n", snap.Failed)

	if len(snap.Errors) > 0 {
		sb.WriteString("\n⚠️ Errors:\n")
		shown := snap.Errors
		if len(shown) > maxSummaryErrors {
			shown = shown[:maxSummaryErrors]
		}
		for _, e := range shown {
			fmt.Fprintf(&sb, "• %s\n", e)
		}
	}
	return sb.String()
}

// stopSummary is the reply to a manual /stop of an active session.
func stopSummary(snap session.Snapshot) string {
	return "Kindle mode is off 🫶\n\n" + counterLines(snap) + "\nSee you soon 📚✨"
}

// IdleSummary is the notification sent when the watchdog shuts the session
// off for inactivity.
func IdleSummary(snap session.Snapshot) string {
	return "😴 No activity for a while, auto-deactivating.\nKindle mode is off 🫶\n\n" + counterLines(snap)
}
