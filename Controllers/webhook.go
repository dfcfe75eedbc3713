package Controllers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"FuelBot/Constants"
	"FuelBot/Whatsapp"
)

// EvolutionWebhook receives push events from the Evolution API. Fuel
// reports are queued to disk for the scanner, admin commands are
// handled immediately in the background.
func EvolutionWebhook(c *fiber.Ctx) error {
	event, msg, err := Whatsapp.ParseWebhookEvent(c.Body())
	if err != nil {
		log.Printf("[WEBHOOK] Invalid payload: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid webhook payload",
		})
	}

	switch event {
	case "messages.upsert":
		// handled below
	case "connection.update":
		log.Printf("[WEBHOOK] Connection update received")
		return c.JSON(fiber.Map{"status": "ok"})
	case "qrcode.updated":
		log.Printf("[WEBHOOK] QR code updated, instance needs pairing")
		return c.JSON(fiber.Map{"status": "ok"})
	default:
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	if msg == nil || msg.FromMe || !msg.IsGroup || msg.Text == "" {
		return c.JSON(fiber.Map{"status": "ignored"})
	}
	if Constants.FuelGroupJID != "" && msg.RemoteJID != Constants.FuelGroupJID {
		return c.JSON(fiber.Map{"status": "ignored"})
	}
	if syncManager.IsProcessed(msg.MessageID) {
		return c.JSON(fiber.Map{"status": "duplicate"})
	}

	switch {
	case Whatsapp.IsAdminCommand(msg.Text):
		text, phone, name := msg.Text, msg.SenderPhone(), msg.PushName
		syncManager.MarkProcessed(msg.MessageID, map[string]interface{}{
			"text":         text,
			"type":         "admin_command",
			"processed_at": time.Now().Format(time.RFC3339),
		}, "processed")
		go HandleAdminCommand(text, phone, name, notifier.IsAdmin(phone))
		return c.JSON(fiber.Map{"status": "command"})

	case Whatsapp.IsFuelReport(msg.Text):
		if err := syncManager.EnqueueMessage(msg.MessageID, msg.Text, msg.PushName, msg.SenderPhone(), msg.Timestamp); err != nil {
			log.Printf("[WEBHOOK] Failed to queue message %s: %v", msg.MessageID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not queue message",
			})
		}
		syncManager.UpdateLastProcessedTime()
		log.Printf("[WEBHOOK] Queued fuel report %s from %s", msg.MessageID, msg.PushName)
		return c.JSON(fiber.Map{"status": "queued"})

	default:
		return c.JSON(fiber.Map{"status": "ignored"})
	}
}

// WebhookHealth reports receiver liveness.
func WebhookHealth(c *fiber.Ctx) error {
	status := "ok"
	if err := waClient.HealthCheck(); err != nil {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}

// TriggerSync runs a manual history recovery pass.
func TriggerSync(c *fiber.Ctx) error {
	stats := syncManager.FetchMissed(waClient, Constants.FuelGroupJID, 100, 24, func(event *Whatsapp.MessageEvent) error {
		return syncManager.EnqueueMessage(event.MessageID, event.Text, event.PushName, event.SenderPhone(), event.Timestamp)
	})
	return c.JSON(fiber.Map{
		"message": "Sync completed",
		"stats":   stats,
	})
}
