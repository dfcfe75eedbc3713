package Whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upsertBody = `{
	"event": "messages.upsert",
	"instance": "fuelbot",
	"data": {
		"key": {
			"id": "3EB0A1B2C3",
			"fromMe": false,
			"remoteJid": "120363041234567890@g.us",
			"participant": "254700000001@s.whatsapp.net"
		},
		"pushName": "John",
		"messageType": "conversation",
		"message": {"conversation": "FUEL UPDATE\nDRIVER: John\nCAR: KCA 542Q"},
		"messageTimestamp": 1766217600
	}
}`

func TestParseWebhookEventUpsert(t *testing.T) {
	event, msg, err := ParseWebhookEvent([]byte(upsertBody))
	require.NoError(t, err)
	assert.Equal(t, "messages.upsert", event)
	require.NotNil(t, msg)
	assert.Equal(t, "3EB0A1B2C3", msg.MessageID)
	assert.False(t, msg.FromMe)
	assert.True(t, msg.IsGroup)
	assert.Equal(t, "John", msg.PushName)
	assert.Equal(t, int64(1766217600), msg.Timestamp)
	assert.Contains(t, msg.Text, "FUEL UPDATE")
	assert.Equal(t, "254700000001", msg.SenderPhone())
}

func TestParseWebhookEventOtherTypes(t *testing.T) {
	event, msg, err := ParseWebhookEvent([]byte(`{"event": "connection.update", "data": {}}`))
	require.NoError(t, err)
	assert.Equal(t, "connection.update", event)
	assert.Nil(t, msg)
}

func TestParseWebhookEventInvalidJSON(t *testing.T) {
	_, _, err := ParseWebhookEvent([]byte("not json"))
	assert.Error(t, err)
}

func TestExtractMessageTextVariants(t *testing.T) {
	cases := map[string]string{
		`{"conversation": "plain text"}`:                       "plain text",
		`{"extendedTextMessage": {"text": "extended"}}`:        "extended",
		`{"imageMessage": {"caption": "image caption"}}`:       "image caption",
		`{"videoMessage": {"caption": "video caption"}}`:       "video caption",
		`{"documentMessage": {"caption": "doc caption"}}`:      "doc caption",
		`{"buttonsResponseMessage": {"selectedButtonId": "approve_1"}}`: "approve_1",
		`{"listResponseMessage": {"title": "option a"}}`:       "option a",
		`{"stickerMessage": {}}`:                               "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, ExtractMessageText(json.RawMessage(raw)), "payload %s", raw)
	}
	assert.Equal(t, "", ExtractMessageText(nil))
}

func TestIsFuelReport(t *testing.T) {
	assert.True(t, IsFuelReport("FUEL UPDATE\nDRIVER: John\nCAR: KCA 542Q"))
	assert.True(t, IsFuelReport("  fuel update liters 40 amount 6000"))

	// Missing the prefix
	assert.False(t, IsFuelReport("DRIVER: John CAR: KCA 542Q LITERS: 40"))
	// Prefix but fewer than two keywords
	assert.False(t, IsFuelReport("FUEL UPDATE hello"))
	assert.False(t, IsFuelReport(""))
}

func TestIsAdminCommand(t *testing.T) {
	assert.True(t, IsAdminCommand("!status"))
	assert.True(t, IsAdminCommand("  !approve abc123"))
	assert.False(t, IsAdminCommand("status"))
	assert.False(t, IsAdminCommand(""))
}
