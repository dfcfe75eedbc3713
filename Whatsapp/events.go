package Whatsapp

import (
	"encoding/json"
	"strings"
)

// MessageEvent is a normalized messages.upsert payload.
type MessageEvent struct {
	MessageID   string `json:"message_id"`
	FromMe      bool   `json:"from_me"`
	RemoteJID   string `json:"remote_jid"`
	Participant string `json:"participant"`
	PushName    string `json:"push_name"`
	MessageType string `json:"message_type"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
	IsGroup     bool   `json:"is_group"`
}

// SenderPhone returns the bare phone number of the sender. In groups
// the participant JID carries it, in direct chats the remote JID does.
func (m *MessageEvent) SenderPhone() string {
	jid := m.Participant
	if jid == "" {
		jid = m.RemoteJID
	}
	if i := strings.IndexByte(jid, '@'); i > 0 {
		return jid[:i]
	}
	return jid
}

type webhookPayload struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			ID          string `json:"id"`
			FromMe      bool   `json:"fromMe"`
			RemoteJID   string `json:"remoteJid"`
			Participant string `json:"participant"`
		} `json:"key"`
		PushName         string          `json:"pushName"`
		MessageType      string          `json:"messageType"`
		Message          json.RawMessage `json:"message"`
		MessageTimestamp int64           `json:"messageTimestamp"`
	} `json:"data"`
}

// ParseWebhookEvent decodes an Evolution webhook body. Returns a nil
// event for event types other than messages.upsert.
func ParseWebhookEvent(body []byte) (string, *MessageEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil, err
	}
	if payload.Event != "messages.upsert" {
		return payload.Event, nil, nil
	}
	event := &MessageEvent{
		MessageID:   payload.Data.Key.ID,
		FromMe:      payload.Data.Key.FromMe,
		RemoteJID:   payload.Data.Key.RemoteJID,
		Participant: payload.Data.Key.Participant,
		PushName:    payload.Data.PushName,
		MessageType: payload.Data.MessageType,
		Text:        ExtractMessageText(payload.Data.Message),
		Timestamp:   payload.Data.MessageTimestamp,
		IsGroup:     strings.Contains(payload.Data.Key.RemoteJID, "@g.us"),
	}
	return payload.Event, event, nil
}

// ExtractMessageText pulls the text out of the message variants
// Evolution delivers: plain, extended, media captions and interactive
// replies.
func ExtractMessageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var message struct {
		Conversation        string `json:"conversation"`
		ExtendedTextMessage struct {
			Text string `json:"text"`
		} `json:"extendedTextMessage"`
		ImageMessage struct {
			Caption string `json:"caption"`
		} `json:"imageMessage"`
		VideoMessage struct {
			Caption string `json:"caption"`
		} `json:"videoMessage"`
		DocumentMessage struct {
			Caption string `json:"caption"`
		} `json:"documentMessage"`
		ButtonsResponseMessage struct {
			SelectedButtonID string `json:"selectedButtonId"`
		} `json:"buttonsResponseMessage"`
		ListResponseMessage struct {
			Title string `json:"title"`
		} `json:"listResponseMessage"`
	}
	if err := json.Unmarshal(raw, &message); err != nil {
		return ""
	}
	switch {
	case message.Conversation != "":
		return message.Conversation
	case message.ExtendedTextMessage.Text != "":
		return message.ExtendedTextMessage.Text
	case message.ImageMessage.Caption != "":
		return message.ImageMessage.Caption
	case message.VideoMessage.Caption != "":
		return message.VideoMessage.Caption
	case message.DocumentMessage.Caption != "":
		return message.DocumentMessage.Caption
	case message.ButtonsResponseMessage.SelectedButtonID != "":
		return message.ButtonsResponseMessage.SelectedButtonID
	case message.ListResponseMessage.Title != "":
		return message.ListResponseMessage.Title
	}
	return ""
}

var fuelKeywords = []string{"DRIVER", "CAR", "LITERS", "LITRES", "AMOUNT", "TYPE", "ODOMETER", "KSH", "DIESEL", "PETROL"}

// IsFuelReport reports whether a message should enter the extraction
// pipeline: it must start with FUEL UPDATE and mention at least two
// fuel keywords.
func IsFuelReport(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	if !strings.HasPrefix(upper, "FUEL UPDATE") {
		return false
	}
	matches := 0
	for _, kw := range fuelKeywords {
		if strings.Contains(upper, kw) {
			matches++
		}
	}
	return matches >= 2
}

// IsAdminCommand reports whether a message is a bot command.
func IsAdminCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "!")
}
