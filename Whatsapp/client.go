package Whatsapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"FuelBot/Constants"
)

// Client talks to an Evolution API instance. All sends go through
// here so the rest of the pipeline never touches HTTP directly.
type Client struct {
	baseURL  string
	apiKey   string
	instance string
	http     *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL:  Constants.EvolutionBaseURL,
		apiKey:   Constants.EvolutionAPIKey,
		instance: Constants.EvolutionInstance,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWith is used by tests to point at a stub server.
func NewClientWith(baseURL, apiKey, instance string) *Client {
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		instance: instance,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) request(method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("apikey", c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("evolution api %s %s: %d %s", method, path, res.StatusCode, data)
	}
	return data, nil
}

// SendText sends a text message to a JID. mentions holds bare phone
// numbers to tag in a group message.
func (c *Client) SendText(to, text string, mentions []string) error {
	payload := map[string]interface{}{
		"number": to,
		"text":   text,
	}
	if len(mentions) > 0 {
		jids := make([]string, 0, len(mentions))
		for _, m := range mentions {
			jids = append(jids, m+"@s.whatsapp.net")
		}
		payload["mentionsEveryOne"] = false
		payload["mentioned"] = jids
	}
	_, err := c.request(http.MethodPost, "/message/sendText/"+c.instance, payload)
	if err != nil {
		log.Printf("[WHATSAPP] Failed to send message: %v", err)
		return err
	}
	return nil
}

type participant struct {
	ID    string `json:"id"`
	Admin string `json:"admin"`
}

// GroupAdmins returns the bare phone numbers of a group's admins.
func (c *Client) GroupAdmins(groupJID string) ([]string, error) {
	data, err := c.request(http.MethodGet, "/group/participants/"+c.instance+"?groupJid="+groupJID, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Participants []participant `json:"participants"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	var admins []string
	for _, p := range out.Participants {
		if p.Admin != "admin" && p.Admin != "superadmin" {
			continue
		}
		if i := bytes.IndexByte([]byte(p.ID), '@'); i > 0 {
			admins = append(admins, p.ID[:i])
		}
	}
	return admins, nil
}

// ConnectionState returns the instance state string ("open" when the
// WhatsApp session is connected).
func (c *Client) ConnectionState() (string, error) {
	data, err := c.request(http.MethodGet, "/instance/connectionState/"+c.instance, nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Instance struct {
			State string `json:"state"`
		} `json:"instance"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", err
	}
	if out.Instance.State != "" {
		return out.Instance.State, nil
	}
	return out.State, nil
}

// HealthCheck verifies the Evolution API answers at all.
func (c *Client) HealthCheck() error {
	_, err := c.request(http.MethodGet, "/instance/fetchInstances", nil)
	return err
}

// FetchMessages pulls recent message history from a chat, used to
// recover messages missed while the receiver was down.
func (c *Client) FetchMessages(chatID string, count int) ([]json.RawMessage, error) {
	payload := map[string]interface{}{
		"where": map[string]interface{}{
			"key": map[string]interface{}{
				"remoteJid": chatID,
			},
		},
		"limit": count,
	}
	data, err := c.request(http.MethodPost, "/chat/fetchMessages/"+c.instance, payload)
	if err != nil {
		return nil, err
	}

	var asList []json.RawMessage
	if err := json.Unmarshal(data, &asList); err == nil {
		log.Printf("[HISTORY] Fetched %d messages from %s", len(asList), chatID)
		return asList, nil
	}
	var wrapped struct {
		Messages []json.RawMessage `json:"messages"`
		Data     []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	messages := wrapped.Messages
	if messages == nil {
		messages = wrapped.Data
	}
	log.Printf("[HISTORY] Fetched %d messages from %s", len(messages), chatID)
	return messages, nil
}

// SetWebhook points the instance's event delivery at url.
func (c *Client) SetWebhook(url string, events []string) error {
	if len(events) == 0 {
		events = []string{"MESSAGES_UPSERT", "MESSAGES_UPDATE", "CONNECTION_UPDATE"}
	}
	payload := map[string]interface{}{
		"webhook": map[string]interface{}{
			"enabled":         true,
			"url":             url,
			"webhookByEvents": true,
			"webhookBase64":   false,
			"events":          events,
		},
	}
	_, err := c.request(http.MethodPut, "/webhook/set/"+c.instance, payload)
	return err
}
