package Controllers

import (
	"github.com/go-playground/validator/v10"

	"FuelBot/Exporter"
	"FuelBot/Inbox"
	"FuelBot/Pipeline"
	"FuelBot/Sheets"
	"FuelBot/State"
	"FuelBot/Whatsapp"
)

var validate = validator.New()

// Shared handler dependencies, wired once from main. sheetsClient is
// nil when Google Sheets is disabled.
var (
	pipeline     *Pipeline.Pipeline
	stateStore   *State.Store
	exporter     *Exporter.Exporter
	waClient     *Whatsapp.Client
	notifier     *Whatsapp.Notifier
	syncManager  *Inbox.SyncManager
	sheetsClient *Sheets.Client
)

func Setup(p *Pipeline.Pipeline, s *State.Store, e *Exporter.Exporter, c *Whatsapp.Client, n *Whatsapp.Notifier, m *Inbox.SyncManager, sh *Sheets.Client) {
	pipeline = p
	stateStore = s
	exporter = e
	waClient = c
	notifier = n
	syncManager = m
	sheetsClient = sh
}
