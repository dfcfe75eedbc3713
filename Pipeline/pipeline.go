package Pipeline

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"FuelBot/Constants"
	"FuelBot/Fleet"
	"FuelBot/Models"
	"FuelBot/Parser"
	"FuelBot/State"
)

// Notifier delivers outbound messages. All three send to the fuel
// group; they differ in who gets tagged.
type Notifier interface {
	NotifySender(senderPhone, message string) error
	NotifyAdmins(message string) error
	NotifyGroup(message string) error
}

// Whitelist is the fleet membership check. Injected so tests can use
// a fixture instead of the database-backed store.
type Whitelist interface {
	IsAllowed(plate string) bool
}

// WhitelistFunc adapts a plain function to the Whitelist interface.
type WhitelistFunc func(plate string) bool

func (f WhitelistFunc) IsAllowed(plate string) bool { return f(plate) }

// Mailer sends anomaly alerts to the operations inbox. Optional.
type Mailer interface {
	SendAlert(subject, body string) error
}

type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusPending  Status = "pending_approval"
	StatusFailed   Status = "failed"
)

// Result describes what happened to one message.
type Result struct {
	Status     Status
	Reason     string
	ApprovalID string
	Record     Models.FuelReport
	Efficiency *float64
	Distance   *int
	SavedTo    []string
}

// IncomingMessage is the transport-agnostic input: a webhook push and
// a polled inbox file both reduce to this.
type IncomingMessage struct {
	Body               string
	SenderPhone        string
	SenderName         string
	Timestamp          int64
	IsApproved         bool
	ApprovalType       string
	OriginalApprovalID string
}

// EfficiencyAlert flags a suspicious km/L figure.
type EfficiencyAlert struct {
	Type       string
	Efficiency float64
	Distance   int
	Liters     float64
	Message    string
}

const (
	AlertLowEfficiency  = "low_efficiency"
	AlertHighEfficiency = "high_efficiency"
)

// Pipeline runs a message through extraction, validation, the
// consistency checks and persistence.
type Pipeline struct {
	Parser    *Parser.FuelReportParser
	State     *State.Store
	Persister *Persister
	Notifier  Notifier
	Whitelist Whitelist
	Mailer    Mailer

	// mu serializes the cooldown/odometer check against persistence so
	// a webhook push and the inbox drain cannot both accept the same
	// plate inside one window.
	mu  sync.Mutex
	now func() time.Time
}

func New(parser *Parser.FuelReportParser, state *State.Store, persister *Persister, notifier Notifier) *Pipeline {
	return &Pipeline{
		Parser:    parser,
		State:     state,
		Persister: persister,
		Notifier:  notifier,
		Whitelist: WhitelistFunc(Fleet.IsAllowed),
		now:       time.Now,
	}
}

// SetClock is used by tests to control cooldown timing.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// deliverError sends a queued validation notice. On success only that
// queue entry is flagged delivered; on failure it stays for the cron
// retry. Earlier undelivered entries are never touched here.
func (p *Pipeline) deliverError(id string, send func() error) {
	if err := send(); err != nil {
		log.Printf("Notification failed, left queued for retry: %v", err)
		return
	}
	if id == "" {
		return
	}
	if err := p.State.MarkErrorNotified(id); err != nil {
		log.Printf("Error flagging notification %s delivered: %v", id, err)
	}
}

// FormatDatetime renders a message timestamp as the record key form.
func FormatDatetime(ts int64) string {
	t := time.Unix(ts, 0)
	if ts <= 0 {
		t = time.Now()
	}
	return t.Format("2006-01-02-15-04")
}

// Process runs one inbound message to a terminal state. Every outcome
// is reported back to the group; nothing here panics on bad input.
func (p *Pipeline) Process(msg IncomingMessage) Result {
	parsed, parseErrors := p.Parser.Parse(msg.Body)

	if parsed == nil || len(parsed) < 3 {
		reason := "Could not extract required fields from message"
		if len(parseErrors) > 0 {
			n := len(parseErrors)
			if n > 3 {
				n = 3
			}
			reason = strings.Join(parseErrors[:n], "; ")
		}
		p.Notifier.NotifySender(msg.SenderPhone, fmt.Sprintf(
			"[ERROR] *FUEL REPORT ERROR*\n\n@%s\nIssue: %s\n\nPlease check your message format.\nType *!how* for guidance.",
			msg.SenderPhone, reason))
		log.Printf("[DENIED] Parse failed (%d fields): %s", len(parsed), reason)
		return Result{Status: StatusRejected, Reason: reason}
	}

	record := Models.FuelReport{
		Datetime:    FormatDatetime(msg.Timestamp),
		Department:  parsed[Parser.FieldDepartment],
		Driver:      parsed[Parser.FieldDriver],
		Car:         parsed[Parser.FieldCar],
		Liters:      Parser.ParseFloat(parsed[Parser.FieldLiters]),
		Amount:      Parser.ParseFloat(parsed[Parser.FieldAmount]),
		FuelType:    parsed[Parser.FieldType],
		Odometer:    Parser.ParseInt(parsed[Parser.FieldOdometer]),
		Sender:      msg.SenderName,
		SenderPhone: msg.SenderPhone,
		RawMessage:  msg.Body,
	}

	if missing := record.MissingFields(); len(missing) > 0 {
		issue := fmt.Sprintf("Missing required field(s): %s", strings.Join(missing, ", "))
		errID, _ := p.State.SaveValidationError(record.Car, record.Driver, issue, msg.SenderPhone, false)
		p.deliverError(errID, func() error {
			return p.Notifier.NotifySender(msg.SenderPhone, fmt.Sprintf(
				"[ERROR] *MISSING REQUIRED FIELDS*\n\n@%s\nMissing: %s\n\nAll 7 fields are required.\nType *!how* for guidance.",
				msg.SenderPhone, strings.Join(missing, ", ")))
		})
		log.Printf("[DENIED] %s", issue)
		return Result{Status: StatusRejected, Reason: issue, Record: record}
	}

	normalized := Fleet.NormalizePlate(record.Car)
	if !p.Whitelist.IsAllowed(normalized) {
		issue := fmt.Sprintf("Vehicle %s is not in the approved fleet list. Please check the registration number.", record.Car)
		errID, _ := p.State.SaveValidationError(record.Car, record.Driver, issue, msg.SenderPhone, false)
		p.deliverError(errID, func() error {
			return p.Notifier.NotifySender(msg.SenderPhone, fmt.Sprintf(
				"[ERROR] *VEHICLE NOT IN FLEET*\n\n@%s\nVehicle %s is not in the approved fleet list.\nPlease check the registration number.",
				msg.SenderPhone, record.Car))
		})
		log.Printf("[DENIED] Unauthorized plate: %s (normalized: %s)", record.Car, normalized)
		return Result{Status: StatusRejected, Reason: issue, Record: record}
	}
	record.Car = normalized

	// Hold the lock from the cooldown read through persistence so a
	// concurrent report for the same plate sees this one's update.
	p.mu.Lock()
	defer p.mu.Unlock()

	if !msg.IsApproved {
		if result, blocked := p.checkCooldown(record); blocked {
			return result
		}
	} else {
		log.Printf("[OK] Admin-approved record - skipping cooldown check")
	}

	var edit *editTarget
	if msg.ApprovalType == string(State.ApprovalEdit) && msg.OriginalApprovalID != "" {
		if approval, err := p.State.GetApproval(msg.OriginalApprovalID); err == nil && approval.OriginalRecord != nil {
			edit = &editTarget{
				datetime: approval.OriginalRecord.Datetime,
				car:      approval.OriginalRecord.Car,
			}
		} else {
			log.Printf("Original record for edit approval %s not found, will append", msg.OriginalApprovalID)
		}
	}

	return p.accept(record, edit)
}

// ProcessApproved re-injects a decided approval into the acceptance
// path. The cooldown gate is skipped; whitelist and odometer checks
// still apply.
func (p *Pipeline) ProcessApproved(approval *State.PendingApproval) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	record := approval.Record

	normalized := Fleet.NormalizePlate(record.Car)
	if !p.Whitelist.IsAllowed(normalized) {
		reason := fmt.Sprintf("Vehicle %s is not in the approved fleet list.", record.Car)
		log.Printf("[DENIED] Approved record rejected: %s", reason)
		return Result{Status: StatusRejected, Reason: reason, Record: record}
	}
	record.Car = normalized

	var edit *editTarget
	if approval.Type == State.ApprovalEdit && approval.OriginalRecord != nil {
		edit = &editTarget{
			datetime: approval.OriginalRecord.Datetime,
			car:      approval.OriginalRecord.Car,
		}
	}
	return p.accept(record, edit)
}

type editTarget struct {
	datetime string
	car      string
}

// checkCooldown blocks a report that arrives inside the cooldown
// window and parks it for adjudication.
func (p *Pipeline) checkCooldown(record Models.FuelReport) (Result, bool) {
	previous, err := p.State.CarLastUpdate(record.Car)
	if err != nil {
		log.Printf("Error checking car cooldown: %v", err)
		return Result{}, false
	}
	if previous == nil {
		return Result{}, false
	}

	elapsed := p.now().Sub(previous.Timestamp)
	hoursSince := elapsed.Hours()
	if hoursSince >= Constants.CarCooldownHours {
		return Result{}, false
	}

	hoursRemaining := Constants.CarCooldownHours - hoursSince
	timeInterval := fmt.Sprintf("%.1f hours", hoursSince)
	if hoursSince < 1 {
		timeInterval = fmt.Sprintf("%d minutes", int(elapsed.Minutes()))
	}

	reason := fmt.Sprintf("Same car %s fueled %s ago (cooldown: %dh)", record.Car, timeInterval, Constants.CarCooldownHours)
	original := previousAsReport(record.Car, previous)
	approvalID, err := p.State.SavePendingApproval(State.ApprovalCarCooldown, record, &original, reason)
	if err != nil {
		log.Printf("Error saving cooldown approval: %v", err)
		return Result{}, false
	}

	msg := CooldownMessage(record.Car, previous, record, timeInterval, hoursRemaining, approvalID)
	errID, _ := p.State.SaveValidationError(record.Car, record.Driver, msg, record.SenderPhone, true)
	p.deliverError(errID, func() error { return p.Notifier.NotifyAdmins(msg) })
	log.Printf("[PENDING] Car cooldown violation for %s - Approval ID: %s", record.Car, approvalID)

	return Result{Status: StatusPending, Reason: reason, ApprovalID: approvalID, Record: record}, true
}

func previousAsReport(plate string, previous *State.CarLastUpdate) Models.FuelReport {
	return Models.FuelReport{
		Datetime:   previous.Timestamp.Format("2006-01-02-15-04"),
		Department: previous.Department,
		Driver:     previous.Driver,
		Car:        plate,
		Liters:     previous.Liters,
		Amount:     previous.Amount,
		FuelType:   previous.FuelType,
		Odometer:   previous.Odometer,
	}
}

// lastOdometer returns the authoritative previous reading for a
// plate. The workbook history survives restarts, so it wins, then the
// database; the last-update cache covers both being unavailable.
func (p *Pipeline) lastOdometer(plate string) (int, bool) {
	if p.Persister != nil && p.Persister.Exporter != nil {
		if odo, ok := p.Persister.Exporter.LastOdometerFor(plate); ok {
			return odo, true
		}
	}
	if p.Persister != nil && p.Persister.UseDatabase {
		if odo := Models.LastOdometer(plate); odo != nil {
			return *odo, true
		}
	}
	if previous, err := p.State.CarLastUpdate(plate); err == nil && previous != nil && previous.Odometer > 0 {
		return previous.Odometer, true
	}
	return 0, false
}

// accept runs the odometer check, persists the record everywhere and
// emits the confirmation. Shared by the direct path and the
// admin-approved path.
func (p *Pipeline) accept(record Models.FuelReport, edit *editTarget) Result {
	if record.Odometer > 0 {
		if last, ok := p.lastOdometer(record.Car); ok && record.Odometer <= last {
			issue := fmt.Sprintf("Odometer reading %s km is less than or equal to previous reading %s km. Please verify and resend.",
				commaInt(record.Odometer), commaInt(last))
			errID, _ := p.State.SaveValidationError(record.Car, record.Driver, issue, record.SenderPhone, false)
			p.deliverError(errID, func() error {
				return p.Notifier.NotifySender(record.SenderPhone, fmt.Sprintf(
					"[ERROR] *ODOMETER ERROR*\n\n@%s\nNew reading (%s km) must be greater than previous (%s km).\nPlease verify and resend.",
					record.SenderPhone, commaInt(record.Odometer), commaInt(last)))
			})
			log.Printf("[ERROR] Odometer validation failed for %s: %d <= %d", record.Car, record.Odometer, last)
			return Result{Status: StatusRejected, Reason: issue, Record: record}
		}
	}

	efficiency, distance, alert := p.calculateEfficiency(record)

	var savedTo []string
	if edit != nil {
		savedTo = p.Persister.Update(edit.datetime, edit.car, record)
	} else {
		savedTo = p.Persister.Insert(record)
	}
	if len(savedTo) == 0 {
		p.Notifier.NotifySender(record.SenderPhone, fmt.Sprintf(
			"[ERROR] *FAILED TO SAVE RECORD*\n\n@%s\nError: All save methods failed\nPlease try again or contact admin.",
			record.SenderPhone))
		return Result{Status: StatusFailed, Reason: "all persistence destinations failed", Record: record}
	}
	log.Printf("[SAVE] Saved record for %s to: %s", record.Car, strings.Join(savedTo, ", "))

	if efficiency != nil && distance != nil {
		previous, _ := p.State.CarLastUpdate(record.Car)
		prevLiters := 0.0
		if previous != nil {
			prevLiters = previous.Liters
		}
		if err := p.State.SaveEfficiencyRecord(record.Car, record.Driver, *efficiency, *distance, prevLiters); err != nil {
			log.Printf("Error saving efficiency record: %v", err)
		}
		log.Printf("[EFFICIENCY] %s: %.1f km/L over %s km", record.Car, *efficiency, commaInt(*distance))
	}
	if alert != nil {
		p.raiseEfficiencyAlert(record, alert)
	}

	if err := p.State.SetCarLastUpdate(record.Car, record, efficiency); err != nil {
		log.Printf("Error updating car last update: %v", err)
	}

	confirmation := ConfirmationMessage(record, record.Sender, efficiency, distance)
	confID, err := p.State.SaveConfirmation(confirmation)
	if err != nil {
		log.Printf("Error saving confirmation: %v", err)
	}
	if err := p.Notifier.NotifyGroup(confirmation); err != nil {
		log.Printf("Confirmation send failed, left queued for retry: %v", err)
	} else if confID != "" {
		if err := p.State.MarkConfirmationNotified(confID); err != nil {
			log.Printf("Error flagging confirmation %s delivered: %v", confID, err)
		}
	}
	log.Printf("[OK] Processed fuel report for %s from %s", record.Car, record.Sender)

	return Result{
		Status:     StatusAccepted,
		Record:     record,
		Efficiency: efficiency,
		Distance:   distance,
		SavedTo:    savedTo,
	}
}

// calculateEfficiency derives km/L from the previous fill-up. The
// divisor is the previous liters figure, since that fuel powered the
// distance driven since then.
func (p *Pipeline) calculateEfficiency(record Models.FuelReport) (*float64, *int, *EfficiencyAlert) {
	if record.Odometer <= 0 || record.Liters <= 0 {
		return nil, nil, nil
	}
	previous, err := p.State.CarLastUpdate(record.Car)
	if err != nil || previous == nil {
		return nil, nil, nil
	}
	if previous.Odometer <= 0 || record.Odometer <= previous.Odometer || previous.Liters <= 0 {
		return nil, nil, nil
	}

	distance := record.Odometer - previous.Odometer
	efficiency := float64(distance) / previous.Liters

	var alert *EfficiencyAlert
	if efficiency < Constants.EfficiencyAlertLow {
		alert = &EfficiencyAlert{
			Type:       AlertLowEfficiency,
			Efficiency: efficiency,
			Distance:   distance,
			Liters:     previous.Liters,
			Message: fmt.Sprintf("Low fuel efficiency: %.1f km/L (expected: %v-%v km/L). Possible fuel theft or vehicle issue.",
				efficiency, Constants.EfficiencyGoodMin, Constants.EfficiencyGoodMax),
		}
	} else if efficiency > Constants.EfficiencyAlertHigh {
		alert = &EfficiencyAlert{
			Type:       AlertHighEfficiency,
			Efficiency: efficiency,
			Distance:   distance,
			Liters:     previous.Liters,
			Message:    fmt.Sprintf("Unusually high efficiency: %.1f km/L. Possible odometer discrepancy.", efficiency),
		}
	}
	return &efficiency, &distance, alert
}

func (p *Pipeline) raiseEfficiencyAlert(record Models.FuelReport, alert *EfficiencyAlert) {
	msg := EfficiencyAlertMessage(record.Car, record.Driver, alert)
	errID, _ := p.State.SaveValidationError(record.Car, record.Driver, msg, "", true)
	p.deliverError(errID, func() error { return p.Notifier.NotifyAdmins(msg) })
	log.Printf("[ALERT] Efficiency alert for %s: %s", record.Car, alert.Type)

	if p.Mailer != nil {
		subject := fmt.Sprintf("Fuel efficiency alert: %s (%.1f km/L)", record.Car, alert.Efficiency)
		if err := p.Mailer.SendAlert(subject, alert.Message); err != nil {
			log.Printf("Error sending alert email: %v", err)
		}
	}
}
