package infrastructure

import (
	"testing"
	"time"

	"promptbot/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

func deviceEvent(text string, fromMe, group bool) *events.Message {
	var msg waProto.Message
	if text != "" {
		msg.Conversation = &text
	}
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Sender:   types.NewJID("393331234567", types.DefaultUserServer),
				IsFromMe: fromMe,
				IsGroup:  group,
			},
			ID:        "3EB0ABC",
			Timestamp: time.UnixMilli(1700000000123),
		},
		Message: &msg,
	}
}

func TestDeviceIncoming(t *testing.T) {
	msg, ok := deviceIncoming(deviceEvent("ciao", false, false))
	require.True(t, ok)
	assert.Equal(t, entities.IncomingMessage{
		From:      "393331234567",
		Text:      "ciao",
		Timestamp: 1700000000123,
		MessageID: "3EB0ABC",
	}, msg)

	extended := deviceEvent("", false, false)
	body := "quoted reply"
	extended.Message.ExtendedTextMessage = &waProto.ExtendedTextMessage{Text: &body}
	msg, ok = deviceIncoming(extended)
	require.True(t, ok)
	assert.Equal(t, "quoted reply", msg.Text)

	for name, evt := range map[string]*events.Message{
		"from me": deviceEvent("x", true, false),
		"group":   deviceEvent("x", false, true),
		"no text": deviceEvent("", false, false),
	} {
		_, ok := deviceIncoming(evt)
		assert.False(t, ok, name)
	}
}

func TestRecipientJID(t *testing.T) {
	jid, err := recipientJID("393331234567")
	require.NoError(t, err)
	assert.Equal(t, "393331234567@s.whatsapp.net", jid.String())

	jid, err = recipientJID("393331234567@s.whatsapp.net")
	require.NoError(t, err)
	assert.Equal(t, "393331234567", jid.User)
}
