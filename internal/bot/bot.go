package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/avieira/kindlepost/internal/config"
	"github.com/avieira/kindlepost/internal/mailer"
	"github.com/avieira/kindlepost/internal/session"
)

// Bot wraps the Telegram transport and feeds inbound updates through the
// dispatcher. It also implements session.Notifier for the idle watchdog.
type Bot struct {
	tg        *bot.Bot
	dispatch  *Dispatcher
	allowedID int64
}

// New creates a Telegram bot wired to the shared session state and mailer.
func New(cfg config.TelegramConfig, state *session.State, m mailer.Mailer) (*Bot, error) {
	b := &Bot{allowedID: cfg.AllowedUserID}

	tgBot, err := bot.New(cfg.BotToken, bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	b.tg = tgBot
	b.dispatch = NewDispatcher(state, m, &telegramFiles{tg: tgBot}, cfg.AllowedUserID)
	return b, nil
}

// Start begins long polling. Blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	slog.Info("telegram bot starting long poll")
	b.tg.Start(ctx)
}

// StartWebhook registers url with Telegram and consumes updates pushed to
// WebhookHandler. Blocks until ctx is cancelled.
func (b *Bot) StartWebhook(ctx context.Context, url string) error {
	if _, err := b.tg.SetWebhook(ctx, &bot.SetWebhookParams{URL: url}); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	slog.Info("telegram bot serving webhook", "url", url)
	b.tg.StartWebhook(ctx)
	return nil
}

// WebhookHandler is the HTTP endpoint Telegram pushes updates to.
func (b *Bot) WebhookHandler() http.Handler {
	return b.tg.WebhookHandler()
}

// DeleteWebhook clears any registered webhook so long polling can take over.
func (b *Bot) DeleteWebhook(ctx context.Context) error {
	if _, err := b.tg.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// NotifyOwner sends text directly to the authorized user's chat.
func (b *Bot) NotifyOwner(ctx context.Context, text string) error {
	_, err := b.tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    b.allowedID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	return err
}

// handleUpdate converts a Telegram update into a dispatch event and sends
// the resulting reply, if any.
func (b *Bot) handleUpdate(ctx context.Context, tg *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	ev := Event{UserID: msg.From.ID}
	switch {
	case msg.Document != nil:
		ev.Document = &Document{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
		}
		tg.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: msg.Chat.ID,
			Action: models.ChatActionTyping,
		})
	case msg.Text != "":
		ev.Command = commandOf(msg.Text)
	default:
		return
	}

	reply := b.dispatch.Dispatch(ctx, ev)
	if reply == "" {
		return
	}
	b.reply(ctx, msg, reply)
}

func (b *Bot) reply(ctx context.Context, msg *models.Message, text string) {
	_, err := b.tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    msg.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		ReplyParameters: &models.ReplyParameters{
			MessageID: msg.ID,
		},
	})
	if err != nil {
		slog.Error("send reply failed", "chat_id", msg.Chat.ID, "error", err)
	}
}

// commandOf extracts the leading bot command from a message text, dropping
// any @botname suffix. Returns "" for plain text.
func commandOf(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(cmd)
}

// telegramFiles fetches uploaded documents through the Bot API.
type telegramFiles struct {
	tg *bot.Bot
}

func (t *telegramFiles) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	f, err := t.tg.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.tg.FileDownloadLink(f), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %s", resp.Status)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file body: %w", err)
	}
	return content, nil
}
