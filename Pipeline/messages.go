package Pipeline

import (
	"fmt"
	"strings"

	"FuelBot/Constants"
	"FuelBot/Models"
	"FuelBot/State"
)

// commaInt renders 1234567 as "1,234,567".
func commaInt(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

// commaAmount renders a monetary value with thousands separators and
// no decimals, e.g. 7500 -> "7,500".
func commaAmount(f float64) string {
	return commaInt(int(f + 0.5))
}

// ConfirmationMessage builds the sender-facing acceptance message.
// efficiency and distance are nil when this is the plate's first
// record.
func ConfirmationMessage(record Models.FuelReport, sender string, efficiency *float64, distance *int) string {
	var b strings.Builder
	b.WriteString("[LOGGED] *FUEL REPORT LOGGED*\n\n")

	if record.Department != "" {
		fmt.Fprintf(&b, "Department: %s\n", record.Department)
	}
	if record.Driver != "" {
		fmt.Fprintf(&b, "Driver: %s\n", record.Driver)
	}
	if record.Car != "" {
		fmt.Fprintf(&b, "Vehicle: %s\n", record.Car)
	}
	if record.Liters > 0 {
		fmt.Fprintf(&b, "Fuel: %.2f L", record.Liters)
		if record.FuelType != "" {
			fmt.Fprintf(&b, " (%s)", record.FuelType)
		}
		b.WriteString("\n")
	}
	if record.Amount > 0 {
		fmt.Fprintf(&b, "Amount: KSH %s\n", commaAmount(record.Amount))
	}
	if record.Odometer > 0 {
		fmt.Fprintf(&b, "Odometer: %s km\n", commaInt(record.Odometer))
	}

	if efficiency != nil && distance != nil {
		b.WriteString("\n[STATS] *Fuel Efficiency*\n")
		fmt.Fprintf(&b, "Distance since last fill: %s km\n", commaInt(*distance))
		fmt.Fprintf(&b, "Efficiency: *%.1f km/L*\n", *efficiency)
		switch {
		case *efficiency >= Constants.EfficiencyGoodMin && *efficiency <= Constants.EfficiencyGoodMax:
			b.WriteString("Rating: Good\n")
		case *efficiency < Constants.EfficiencyAlertLow:
			b.WriteString("Rating: Poor (check vehicle)\n")
		case *efficiency > Constants.EfficiencyAlertHigh:
			b.WriteString("Rating: Unusually high\n")
		default:
			b.WriteString("Rating: Normal\n")
		}
	}

	fmt.Fprintf(&b, "\n_%s | %s_", record.Datetime, sender)
	return b.String()
}

// CooldownMessage builds the admin-directed comparison for a report
// that arrived inside the cooldown window.
func CooldownMessage(plate string, previous *State.CarLastUpdate, record Models.FuelReport, timeInterval string, hoursRemaining float64, approvalID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[!] *DUPLICATE FUEL REPORT - %s*\n", plate)
	b.WriteString("----------------------------\n\n")

	fmt.Fprintf(&b, "[TIME] *TIME SINCE LAST FUELING:* %s\n", timeInterval)
	fmt.Fprintf(&b, "[WAIT] Cooldown remaining: %.1f hours\n\n", hoursRemaining)

	b.WriteString("[DRIVER] *DRIVER COMPARISON*\n")
	fmt.Fprintf(&b, "- Previous: %s\n", previous.Driver)
	fmt.Fprintf(&b, "- Current: %s\n", record.Driver)
	if !strings.EqualFold(strings.TrimSpace(previous.Driver), strings.TrimSpace(record.Driver)) {
		b.WriteString("[!] _Driver changed!_\n")
	}
	b.WriteString("\n")

	distance := 0
	if record.Odometer > previous.Odometer {
		distance = record.Odometer - previous.Odometer
	}
	b.WriteString("[ODO] *ODOMETER / DISTANCE*\n")
	fmt.Fprintf(&b, "- Previous: %s km\n", commaInt(previous.Odometer))
	fmt.Fprintf(&b, "- Current: %s km\n", commaInt(record.Odometer))
	if distance > 0 {
		fmt.Fprintf(&b, "- Distance traveled: *%s km*\n", commaInt(distance))
	} else if record.Odometer <= previous.Odometer && record.Odometer > 0 {
		b.WriteString("[!] _Odometer hasn't increased!_\n")
	}
	b.WriteString("\n")

	b.WriteString("[FUEL] *FUEL COMPARISON*\n")
	fmt.Fprintf(&b, "- Previous: %.1f L (KSH %s)\n", previous.Liters, commaAmount(previous.Amount))
	fmt.Fprintf(&b, "- Current: %.1f L (KSH %s)\n", record.Liters, commaAmount(record.Amount))
	if distance > 0 && previous.Liters > 0 {
		fmt.Fprintf(&b, "- Efficiency since last: %.1f km/L\n", float64(distance)/previous.Liters)
	}
	b.WriteString("\n")

	b.WriteString("----------------------------\n")
	fmt.Fprintf(&b, "[ID] Approval ID: *%s*\n\n", approvalID)
	fmt.Fprintf(&b, "[OK] *!approve %s* - Log as new record\n", approvalID)
	fmt.Fprintf(&b, "[X] *!reject %s* - Discard", approvalID)
	return b.String()
}

// EfficiencyAlertMessage builds the admin-directed anomaly notice.
func EfficiencyAlertMessage(plate, driver string, alert *EfficiencyAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[!] *FUEL EFFICIENCY ALERT - %s*\n", plate)
	b.WriteString("----------------------------\n\n")
	fmt.Fprintf(&b, "Driver: %s\n", driver)
	fmt.Fprintf(&b, "Efficiency: *%.1f km/L*\n", alert.Efficiency)
	fmt.Fprintf(&b, "Distance: %s km\n", commaInt(alert.Distance))
	fmt.Fprintf(&b, "Fuel Used: %.1f L\n\n", alert.Liters)

	if alert.Type == AlertLowEfficiency {
		b.WriteString("[!] *LOW EFFICIENCY WARNING*\n")
		fmt.Fprintf(&b, "Expected range: %v-%v km/L\n", Constants.EfficiencyGoodMin, Constants.EfficiencyGoodMax)
		b.WriteString("Possible causes:\n")
		b.WriteString("- Fuel siphoning/theft\n")
		b.WriteString("- Vehicle mechanical issues\n")
		b.WriteString("- Incorrect odometer reading\n")
	} else {
		b.WriteString("[?] *UNUSUALLY HIGH EFFICIENCY*\n")
		b.WriteString("This may indicate:\n")
		b.WriteString("- Odometer tampering\n")
		b.WriteString("- Data entry error\n")
	}

	b.WriteString("\n_Please investigate_")
	return b.String()
}
