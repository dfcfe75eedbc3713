package Controllers

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"FuelBot/Fleet"
	"FuelBot/Models"
	"FuelBot/Pipeline"
	"FuelBot/State"
)

// HandleAdminCommand dispatches a "!" command from the group. !how is
// public, everything else requires group-admin status.
func HandleAdminCommand(commandText, senderPhone, senderName string, isAdmin bool) {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(commandText)))
	if len(parts) == 0 {
		return
	}
	command := parts[0]

	if command == "!how" {
		notifier.NotifyGroup(FuelUpdateGuide())
		return
	}

	if !isAdmin {
		notifier.NotifyGroup("[DENIED] *Access Denied*\n\nOnly group admins can use admin commands.")
		return
	}

	var response string
	switch command {
	case "!status":
		response = systemStatus()
	case "!pending":
		response = pendingApprovalsMessage()
	case "!approve":
		if len(parts) < 2 {
			response = "[USAGE] Usage: !approve <ID>\n\nUse !pending to see pending approvals."
		} else {
			response = approveCommand(parts[1])
		}
	case "!reject":
		if len(parts) < 2 {
			response = "[USAGE] Usage: !reject <ID>\n\nUse !pending to see pending approvals."
		} else {
			response = rejectCommand(parts[1])
		}
	case "!list":
		response = fleetListMessage()
	case "!add":
		if len(parts) < 2 {
			response = "[USAGE] Usage: !add KXX 123Y"
		} else {
			response = addVehicleCommand(strings.Join(parts[1:], ""))
		}
	case "!remove":
		if len(parts) < 2 {
			response = "[USAGE] Usage: !remove KXX123Y"
		} else {
			response = removeVehicleCommand(strings.Join(parts[1:], ""))
		}
	case "!help":
		response = adminHelpMessage()
	default:
		return
	}

	if response != "" {
		notifier.NotifyGroup(response)
	}
	log.Printf("[COMMAND] %s by %s (%s)", command, senderName, senderPhone)
}

func approveCommand(id string) string {
	approval, err := stateStore.Approve(id)
	if err != nil {
		if errors.Is(err, State.ErrAlreadyProcessed) {
			return fmt.Sprintf("[ERROR] Approval %s already processed", id)
		}
		if errors.Is(err, State.ErrApprovalNotFound) {
			return fmt.Sprintf("[ERROR] Approval %s not found", id)
		}
		return fmt.Sprintf("[ERROR] %v", err)
	}

	result := pipeline.ProcessApproved(approval)
	if result.Status != Pipeline.StatusAccepted {
		return fmt.Sprintf("[ERROR] Approved %s but processing failed: %s", id, result.Reason)
	}
	return fmt.Sprintf("[APPROVED] Approved: *%s*\n\nThe record has been processed.", id)
}

func rejectCommand(id string) string {
	approval, err := stateStore.Reject(id)
	if err != nil {
		if errors.Is(err, State.ErrAlreadyProcessed) {
			return fmt.Sprintf("[ERROR] Approval %s already processed", id)
		}
		if errors.Is(err, State.ErrApprovalNotFound) {
			return fmt.Sprintf("[ERROR] Approval %s not found", id)
		}
		return fmt.Sprintf("[ERROR] %v", err)
	}
	return fmt.Sprintf("[REJECTED] Approval %s rejected\n\nOriginal reason: %s", id, approval.Reason)
}

func addVehicleCommand(plate string) string {
	normalized := Fleet.NormalizePlate(plate)
	if err := Fleet.Add(normalized); err != nil {
		if strings.Contains(err.Error(), "already in the fleet") {
			return fmt.Sprintf("[WARN] Vehicle *%s* is already in the fleet list", normalized)
		}
		return fmt.Sprintf("[ERROR] %v", err)
	}
	return fmt.Sprintf("[ADDED] Vehicle *%s* added to fleet list", normalized)
}

func removeVehicleCommand(plate string) string {
	normalized := Fleet.NormalizePlate(plate)
	if err := Fleet.Remove(normalized); err != nil {
		if strings.Contains(err.Error(), "not in the fleet") {
			return fmt.Sprintf("[WARN] Vehicle *%s* is not in the fleet list", normalized)
		}
		return fmt.Sprintf("[ERROR] %v", err)
	}
	return fmt.Sprintf("[REMOVED] Vehicle *%s* removed from fleet list", normalized)
}

// FuelUpdateGuide is the public !how response.
func FuelUpdateGuide() string {
	var b strings.Builder
	b.WriteString("[GUIDE] *HOW TO SEND A FUEL UPDATE*\n")
	b.WriteString("------------------------------------\n\n")
	b.WriteString("Your message *MUST* start with:\n*FUEL UPDATE*\n\n")
	b.WriteString("Then include *ALL* these fields:\n\n")
	b.WriteString("[1] *DEPARTMENT:* Your department\n   _(e.g., LOGISTICS, SALES, OPERATIONS)_\n\n")
	b.WriteString("[2] *DRIVER:* Your name\n   _(e.g., John Kamau)_\n\n")
	b.WriteString("[3] *CAR:* Vehicle registration plate\n   _(e.g., KCA 542Q)_\n\n")
	b.WriteString("[4] *LITERS:* Fuel amount in liters\n   _(e.g., 45.5)_\n\n")
	b.WriteString("[5] *AMOUNT:* Cost in KSH\n   _(e.g., 7,500)_\n\n")
	b.WriteString("[6] *TYPE:* Fuel type\n   _(DIESEL, PETROL, SUPER, V-POWER, or UNLEADED)_\n\n")
	b.WriteString("[7] *ODOMETER:* Current odometer reading\n   _(e.g., 125,430)_\n\n")
	b.WriteString("------------------------------------\n")
	b.WriteString("[OK] *EXAMPLE MESSAGE:*\n")
	b.WriteString("------------------------------------\n\n")
	b.WriteString("FUEL UPDATE\n")
	b.WriteString("DEPARTMENT: LOGISTICS\n")
	b.WriteString("DRIVER: John Kamau\n")
	b.WriteString("CAR: KCA 542Q\n")
	b.WriteString("LITERS: 45.5\n")
	b.WriteString("AMOUNT: 7,500\n")
	b.WriteString("TYPE: DIESEL\n")
	b.WriteString("ODOMETER: 125,430\n\n")
	b.WriteString("_Type !how anytime to see this guide again._")
	return b.String()
}

func systemStatus() string {
	var b strings.Builder
	b.WriteString("[STATUS] *SYSTEM STATUS*\n")
	b.WriteString("----------------------------\n\n")

	if err := waClient.HealthCheck(); err == nil {
		b.WriteString("[OK] *Evolution API:* Connected\n")
		state, stateErr := waClient.ConnectionState()
		if stateErr != nil {
			state = "unknown"
		}
		fmt.Fprintf(&b, "[WHATSAPP] *WhatsApp:* %s\n", strings.ToUpper(state))
	} else {
		b.WriteString("[ERROR] *Evolution API:* Disconnected\n")
		fmt.Fprintf(&b, "Error: %v\n", err)
	}

	approvals, _ := stateStore.PendingApprovals()
	fmt.Fprintf(&b, "\n[PENDING] *Pending Approvals:* %d\n", len(approvals))

	var count int64
	if err := Models.DB.Model(&Models.FuelRecord{}).Count(&count).Error; err == nil {
		fmt.Fprintf(&b, "[DB] *Database Records:* %d\n", count)
	} else {
		b.WriteString("[DB] *Database:* Not connected\n")
	}

	fmt.Fprintf(&b, "\n[TIME] %s", time.Now().Format("2006-01-02 15:04:05"))
	return b.String()
}

func pendingApprovalsMessage() string {
	approvals, err := stateStore.PendingApprovals()
	if err != nil || len(approvals) == 0 {
		return "[OK] No pending approvals"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[PENDING] *PENDING APPROVALS* (%d)\n", len(approvals))
	b.WriteString("----------------------------\n\n")

	limit := len(approvals)
	if limit > 10 {
		limit = 10
	}
	for _, approval := range approvals[:limit] {
		fmt.Fprintf(&b, "*ID:* %s\n", approval.ID)
		fmt.Fprintf(&b, "*Type:* %s\n", approval.Type)
		fmt.Fprintf(&b, "*Car:* %s\n", approval.Record.Car)
		fmt.Fprintf(&b, "*Driver:* %s\n", approval.Record.Driver)
		fmt.Fprintf(&b, "*Reason:* %s\n", approval.Reason)
		fmt.Fprintf(&b, "\n_!approve %s or !reject %s_\n", approval.ID, approval.ID)
		b.WriteString("-----------------------\n")
	}
	return b.String()
}

func fleetListMessage() string {
	plates, err := Fleet.List()
	if err != nil {
		return fmt.Sprintf("[ERROR] Could not load fleet list: %v", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[FLEET] *FLEET VEHICLES* (%d)\n", len(plates))
	b.WriteString("----------------------------\n\n")
	for i := 0; i < len(plates); i += 3 {
		end := i + 3
		if end > len(plates) {
			end = len(plates)
		}
		b.WriteString(strings.Join(plates[i:end], "  -  ") + "\n")
	}
	return b.String()
}

func adminHelpMessage() string {
	var b strings.Builder
	b.WriteString("[HELP] *ADMIN COMMANDS*\n")
	b.WriteString("----------------------------\n\n")
	b.WriteString("*!status* - System health check\n")
	b.WriteString("*!pending* - View pending approvals\n")
	b.WriteString("*!approve ID* - Approve pending record\n")
	b.WriteString("*!reject ID* - Reject pending record\n")
	b.WriteString("*!add KXX123Y* - Add vehicle to fleet\n")
	b.WriteString("*!remove KXX123Y* - Remove vehicle\n")
	b.WriteString("*!list* - List all fleet vehicles\n")
	b.WriteString("*!help* - Show this help\n\n")
	b.WriteString("_Only group admins can use these commands._\n\n")
	b.WriteString("----------------------------\n")
	b.WriteString("[PUBLIC] *PUBLIC COMMANDS*\n")
	b.WriteString("----------------------------\n\n")
	b.WriteString("*!how* - Guide on sending fuel updates\n")
	b.WriteString("_Available to everyone._")
	return b.String()
}
