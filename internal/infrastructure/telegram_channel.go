package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"promptbot/internal/entities"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// InboundHandler receives messages from a polling channel.
type InboundHandler func(ctx context.Context, msg entities.IncomingMessage)

// TelegramChannel polls a bot for updates and delivers replies through it.
type TelegramChannel struct {
	bot     *tgbotapi.BotAPI
	Handler InboundHandler

	mu      sync.Mutex
	running bool
}

func NewTelegramChannel(token string) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &TelegramChannel{bot: bot}, nil
}

// NewTelegramChannelWithEndpoint points the bot at a custom Bot API server.
// endpoint is a format string like tgbotapi.APIEndpoint.
func NewTelegramChannelWithEndpoint(token, endpoint string) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &TelegramChannel{bot: bot}, nil
}

func (t *TelegramChannel) BotName() string {
	return t.bot.Self.UserName
}

// Run polls for updates until ctx is done. Each text message is handed to Handler
// in its own goroutine.
func (t *TelegramChannel) Run(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.mu.Unlock()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	log.Info().Str("bot", t.bot.Self.UserName).Msg("telegram polling started")
	defer func() {
		t.bot.StopReceivingUpdates()
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
		log.Info().Str("bot", t.bot.Self.UserName).Msg("telegram polling stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg, ok := telegramIncoming(update)
			if !ok || t.Handler == nil {
				continue
			}
			go t.Handler(ctx, msg)
		}
	}
}

// telegramIncoming maps a text update to an IncomingMessage. Commands and non-text
// updates are skipped.
func telegramIncoming(update tgbotapi.Update) (entities.IncomingMessage, bool) {
	m := update.Message
	if m == nil || m.Text == "" || m.IsCommand() {
		return entities.IncomingMessage{}, false
	}
	return entities.IncomingMessage{
		From:      strconv.FormatInt(m.Chat.ID, 10),
		Text:      m.Text,
		Timestamp: int64(m.Date) * 1000,
		MessageID: fmt.Sprintf("tg:%d:%d", m.Chat.ID, m.MessageID),
	}, true
}

// Send delivers msg to the chat id in msg.To.
func (t *TelegramChannel) Send(_ context.Context, msg entities.OutgoingMessage) error {
	chatID, err := strconv.ParseInt(msg.To, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", msg.To, err)
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, msg.Text)); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
