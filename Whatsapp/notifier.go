package Whatsapp

import (
	"log"
	"strings"
	"sync"
	"time"

	"FuelBot/Constants"
)

const maxAdminTags = 3

// Notifier sends pipeline notifications into the fuel group. Admin
// lookups are cached briefly so a burst of approvals doesn't hammer
// the participants endpoint.
type Notifier struct {
	client   *Client
	groupJID string

	mu           sync.Mutex
	admins       []string
	adminsAsOf   time.Time
	adminsMaxTTL time.Duration
}

func NewNotifier(client *Client) *Notifier {
	return &Notifier{
		client:       client,
		groupJID:     Constants.FuelGroupJID,
		adminsMaxTTL: 10 * time.Minute,
	}
}

func (n *Notifier) groupAdmins() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.admins != nil && time.Since(n.adminsAsOf) < n.adminsMaxTTL {
		return n.admins
	}
	admins, err := n.client.GroupAdmins(n.groupJID)
	if err != nil {
		log.Printf("Failed to get group admins: %v", err)
		return n.admins
	}
	n.admins = admins
	n.adminsAsOf = time.Now()
	return admins
}

// IsAdmin reports whether a phone belongs to a group admin.
func (n *Notifier) IsAdmin(phone string) bool {
	for _, admin := range n.groupAdmins() {
		if admin == phone {
			return true
		}
	}
	return false
}

// NotifySender posts to the group tagging the original sender.
func (n *Notifier) NotifySender(senderPhone, message string) error {
	var mentions []string
	if senderPhone != "" {
		mentions = []string{senderPhone}
	}
	return n.client.SendText(n.groupJID, message, mentions)
}

// NotifyAdmins posts to the group tagging up to three group admins.
func (n *Notifier) NotifyAdmins(message string) error {
	admins := n.groupAdmins()
	if len(admins) > maxAdminTags {
		admins = admins[:maxAdminTags]
	}
	if len(admins) > 0 {
		tags := make([]string, 0, len(admins))
		for _, phone := range admins {
			tags = append(tags, "@"+phone)
		}
		message = strings.Join(tags, " ") + "\n\n" + message
	}
	return n.client.SendText(n.groupJID, message, admins)
}

// NotifyGroup posts a plain message with no tags.
func (n *Notifier) NotifyGroup(message string) error {
	return n.client.SendText(n.groupJID, message, nil)
}
