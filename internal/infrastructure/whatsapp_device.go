package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"promptbot/internal/entities"

	"github.com/rs/zerolog/log"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// WhatsAppDevice is a linked WhatsApp device. Inbound text messages go to Handler;
// Send delivers replies from the same number.
type WhatsAppDevice struct {
	client  *whatsmeow.Client
	Handler InboundHandler

	qrCode string
	qrLock sync.RWMutex
}

// NewWhatsAppDevice opens (or creates) the device store at dbPath.
func NewWhatsAppDevice(ctx context.Context, dbPath string) (*WhatsAppDevice, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create device directory: %w", err)
		}
	}

	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", waLog.Zerolog(log.With().Str("module", "whatsmeow-db").Logger()))
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	d := &WhatsAppDevice{
		client: whatsmeow.NewClient(deviceStore, waLog.Zerolog(log.With().Str("module", "whatsmeow").Logger())),
	}
	d.client.AddEventHandler(d.handleEvent)
	return d, nil
}

// Connect opens the websocket. An unpaired device starts publishing pairing codes,
// readable through QR.
func (d *WhatsAppDevice) Connect(ctx context.Context) error {
	if d.client.Store.ID != nil {
		if err := d.client.Connect(); err != nil {
			return err
		}
		log.Info().Str("phone", d.client.Store.ID.User).Msg("whatsapp device connected")
		return nil
	}

	qrChan, err := d.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("get qr channel: %w", err)
	}
	if err := d.client.Connect(); err != nil {
		return err
	}
	go d.watchQR(qrChan)
	return nil
}

func (d *WhatsAppDevice) watchQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		if evt.Event == "code" {
			d.setQR(evt.Code)
			log.Info().Msg("whatsapp pairing code refreshed")
			continue
		}
		d.setQR("")
		log.Info().Str("event", evt.Event).Msg("whatsapp login event")
	}
}

func (d *WhatsAppDevice) setQR(code string) {
	d.qrLock.Lock()
	d.qrCode = code
	d.qrLock.Unlock()
}

// QR returns the current pairing code, or "" when none is pending.
func (d *WhatsAppDevice) QR() string {
	d.qrLock.RLock()
	defer d.qrLock.RUnlock()
	return d.qrCode
}

func (d *WhatsAppDevice) IsLoggedIn() bool {
	return d.client.Store.ID != nil
}

// PhoneNumber returns the paired number, or "" before pairing.
func (d *WhatsAppDevice) PhoneNumber() string {
	if d.client.Store.ID == nil {
		return ""
	}
	return d.client.Store.ID.User
}

func (d *WhatsAppDevice) Disconnect() {
	d.client.Disconnect()
}

// Send delivers a text message. msg.To is a phone number or a full JID.
func (d *WhatsAppDevice) Send(ctx context.Context, msg entities.OutgoingMessage) error {
	jid, err := recipientJID(msg.To)
	if err != nil {
		return err
	}
	text := msg.Text
	if _, err := d.client.SendMessage(ctx, jid, &waProto.Message{Conversation: &text}); err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	return nil
}

func recipientJID(to string) (types.JID, error) {
	if !strings.Contains(to, "@") {
		to += "@" + types.DefaultUserServer
	}
	jid, err := types.ParseJID(to)
	if err != nil {
		return types.JID{}, fmt.Errorf("invalid number format: %w", err)
	}
	return jid, nil
}

func (d *WhatsAppDevice) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		msg, ok := deviceIncoming(v)
		if !ok || d.Handler == nil {
			return
		}
		go d.Handler(context.Background(), msg)
	case *events.LoggedOut:
		log.Warn().Msg("whatsapp device logged out")
	}
}

// deviceIncoming maps a direct text message to an IncomingMessage. Own messages,
// group messages and non-text content are skipped.
func deviceIncoming(evt *events.Message) (entities.IncomingMessage, bool) {
	if evt.Info.IsFromMe || evt.Info.IsGroup || evt.Message == nil {
		return entities.IncomingMessage{}, false
	}
	text := evt.Message.GetConversation()
	if text == "" {
		text = evt.Message.GetExtendedTextMessage().GetText()
	}
	if text == "" {
		return entities.IncomingMessage{}, false
	}
	return entities.IncomingMessage{
		From:      evt.Info.Sender.User,
		Text:      text,
		Timestamp: evt.Info.Timestamp.UnixMilli(),
		MessageID: evt.Info.ID,
	}, true
}
