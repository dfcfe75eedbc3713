package CronJobs

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"FuelBot/Exporter"
	"FuelBot/Inbox"
	"FuelBot/State"
	"FuelBot/Summary"
	"FuelBot/Whatsapp"
)

// Scheduler runs the recurring background jobs: draining the message
// inbox, retrying undelivered notifications and posting the daily and
// weekly summary reports to the group.
type Scheduler struct {
	cronScheduler *cron.Cron

	scanner  *Inbox.Scanner
	state    *State.Store
	exporter *Exporter.Exporter
	notifier *Whatsapp.Notifier
}

func NewScheduler(scanner *Inbox.Scanner, state *State.Store, exporter *Exporter.Exporter, notifier *Whatsapp.Notifier) *Scheduler {
	return &Scheduler{
		// Skip a tick when the previous run is still going, so a slow
		// inbox drain never overlaps itself.
		cronScheduler: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		scanner:       scanner,
		state:         state,
		exporter:      exporter,
		notifier:      notifier,
	}
}

// Start registers and launches all jobs.
func (s *Scheduler) Start() error {
	// Drain the inbox every 10 seconds
	if _, err := s.cronScheduler.AddFunc("*/10 * * * * *", s.drainInbox); err != nil {
		return fmt.Errorf("error scheduling inbox drain: %w", err)
	}

	// Retry undelivered notifications every minute
	if _, err := s.cronScheduler.AddFunc("0 * * * * *", s.retryNotifications); err != nil {
		return fmt.Errorf("error scheduling notification retry: %w", err)
	}

	// Daily summary at 18:00
	if _, err := s.cronScheduler.AddFunc("0 0 18 * * *", s.postDailySummary); err != nil {
		return fmt.Errorf("error scheduling daily summary: %w", err)
	}

	// Weekly summary on Sunday at 18:30
	if _, err := s.cronScheduler.AddFunc("0 30 18 * * 0", s.postWeeklySummary); err != nil {
		return fmt.Errorf("error scheduling weekly summary: %w", err)
	}

	s.cronScheduler.Start()
	log.Println("Background scheduler started")
	return nil
}

// Stop terminates all scheduled jobs.
func (s *Scheduler) Stop() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
		log.Println("Background scheduler stopped")
	}
}

func (s *Scheduler) drainInbox() {
	s.scanner.ProcessAll()
}

// retryNotifications re-sends queue entries whose direct delivery
// failed, most often because the Evolution instance was briefly down.
func (s *Scheduler) retryNotifications() {
	errs, err := s.state.UnnotifiedErrors()
	if err != nil {
		log.Printf("Error reading notification queue: %v", err)
	} else if len(errs) > 0 {
		log.Printf("[RETRY] Redelivering %d queued notification(s)", len(errs))
		for _, e := range errs {
			var sendErr error
			if e.ApprovalRequest || e.SenderPhone == "" {
				sendErr = s.notifier.NotifyAdmins(e.Issue)
			} else {
				sendErr = s.notifier.NotifySender(e.SenderPhone, e.Issue)
			}
			if sendErr != nil {
				log.Printf("[RETRY] Delivery still failing: %v", sendErr)
				break
			}
			// Flag each entry as it goes out so a later failure does
			// not resend the ones already delivered.
			if err := s.state.MarkErrorNotified(e.ID); err != nil {
				log.Printf("[RETRY] Error flagging notification %s delivered: %v", e.ID, err)
			}
		}
	}

	confirmations, err := s.state.UnnotifiedConfirmations()
	if err != nil {
		log.Printf("Error reading confirmation queue: %v", err)
		return
	}
	if len(confirmations) == 0 {
		return
	}
	for _, c := range confirmations {
		if err := s.notifier.NotifyGroup(c.Message); err != nil {
			log.Printf("[RETRY] Confirmation delivery still failing: %v", err)
			return
		}
		if err := s.state.MarkConfirmationNotified(c.ID); err != nil {
			log.Printf("[RETRY] Error flagging confirmation %s delivered: %v", c.ID, err)
		}
	}
}

func (s *Scheduler) postDailySummary() {
	log.Println("Running scheduled daily summary")
	stats, err := Summary.FromWorkbook(s.exporter, 1)
	if err != nil {
		log.Printf("Error building daily summary: %v", err)
		return
	}
	if err := s.notifier.NotifyGroup(Summary.FormatDaily(stats)); err != nil {
		log.Printf("Error posting daily summary: %v", err)
	}
}

func (s *Scheduler) postWeeklySummary() {
	log.Println("Running scheduled weekly summary")
	stats, err := Summary.FromWorkbook(s.exporter, 7)
	if err != nil {
		log.Printf("Error building weekly summary: %v", err)
		return
	}
	if err := s.notifier.NotifyGroup(Summary.FormatWeekly(stats)); err != nil {
		log.Printf("Error posting weekly summary: %v", err)
	}
}
