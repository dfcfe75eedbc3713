package main

import (
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/go-sql-driver/mysql"

	"FuelBot/Constants"
	"FuelBot/Controllers"
	"FuelBot/CronJobs"
	"FuelBot/Exporter"
	"FuelBot/FiberConfig"
	"FuelBot/Fleet"
	"FuelBot/Inbox"
	"FuelBot/Models"
	"FuelBot/Parser"
	"FuelBot/Pipeline"
	"FuelBot/Sheets"
	"FuelBot/State"
	"FuelBot/Whatsapp"
	"FuelBot/email"
)

func main() {
	setupLogging()

	Models.Connect()
	// FLEET_IMPORT_FILE replaces the whole whitelist from an Excel
	// sheet; otherwise an empty table gets the built-in defaults.
	if file := os.Getenv("FLEET_IMPORT_FILE"); file != "" {
		if n, err := Fleet.ImportFromExcel(file); err != nil {
			log.Printf("Error importing fleet list from %s: %v", file, err)
		} else {
			log.Printf("Imported %d vehicles from %s", n, file)
		}
	} else if err := Fleet.Seed(); err != nil {
		log.Printf("Error seeding fleet list: %v", err)
	}

	stateStore := State.NewStore(Constants.DataDir)
	exporter := Exporter.New(Constants.DataDir, "fuel_records.xlsx")

	sheetsClient, err := Sheets.NewFromEnv()
	if err != nil {
		log.Printf("Google Sheets disabled: %v", err)
	} else if err := sheetsClient.EnsureHeaders(); err != nil {
		log.Printf("Google Sheets header check failed: %v", err)
	}

	waClient := Whatsapp.NewClient()
	notifier := Whatsapp.NewNotifier(waClient)

	persister := &Pipeline.Persister{
		Exporter:    exporter,
		Sheets:      sheetsClient,
		FallbackDir: filepath.Join(Constants.DataDir, "fallback"),
		UseDatabase: true,
	}

	parser := Parser.NewFuelReportParser(false, nil)
	pipe := Pipeline.New(parser, stateStore, persister, notifier)
	if mailer := (email.AlertMailer{}); mailer.Enabled() {
		pipe.Mailer = mailer
	}

	syncManager := Inbox.NewSyncManager(Constants.DataDir)
	scanner := Inbox.NewScanner(Constants.DataDir, pipe)

	Controllers.Setup(pipe, stateStore, exporter, waClient, notifier, syncManager, sheetsClient)

	// Startup checks and history recovery run in the background so a
	// down Evolution server cannot block the HTTP listener.
	go func() {
		if err := waClient.HealthCheck(); err != nil {
			log.Printf("Evolution API not reachable: %v", err)
			return
		}
		state, err := waClient.ConnectionState()
		if err != nil {
			log.Printf("Could not read WhatsApp connection state: %v", err)
		} else {
			log.Printf("WhatsApp connection state: %s", state)
		}

		if url := os.Getenv("WEBHOOK_URL"); url != "" {
			events := []string{"messages.upsert", "connection.update", "qrcode.updated"}
			if err := waClient.SetWebhook(url, events); err != nil {
				log.Printf("Error registering webhook: %v", err)
			}
		}

		stats := syncManager.FetchMissed(waClient, Constants.FuelGroupJID, 100, 24, func(event *Whatsapp.MessageEvent) error {
			return syncManager.EnqueueMessage(event.MessageID, event.Text, event.PushName, event.SenderPhone(), event.Timestamp)
		})
		if stats.NewlyProcessed > 0 {
			log.Printf("Recovered %d missed message(s) from history", stats.NewlyProcessed)
		}
	}()

	scheduler := CronJobs.NewScheduler(scanner, stateStore, exporter, notifier)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Stamp the sync high-water mark on shutdown so the next start can
	// tell how long it was offline.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Println("Shutting down")
		syncManager.UpdateLastProcessedTime()
		scheduler.Stop()
		os.Exit(0)
	}()

	FiberConfig.FiberConfig()
}

func setupLogging() {
	// Create logs directory if it doesn't exist
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Error creating logs directory: %v\n", err)
		return
	}

	logFile, err := os.OpenFile("logs/application.log",
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Error opening log file: %v\n", err)
		return
	}

	// Log to both console and file
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	log.SetFlags(log.Ldate | log.Ltime)
}
