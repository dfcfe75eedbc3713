package Pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FuelBot/Exporter"
	"FuelBot/Parser"
	"FuelBot/State"
)

type stubNotifier struct {
	mu     sync.Mutex
	sender []string
	admins []string
	group  []string

	// err, when set, makes every send fail
	err error
}

func (n *stubNotifier) NotifySender(phone, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sender = append(n.sender, message)
	return nil
}

func (n *stubNotifier) NotifyAdmins(message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.admins = append(n.admins, message)
	return nil
}

func (n *stubNotifier) NotifyGroup(message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.group = append(n.group, message)
	return nil
}

func (n *stubNotifier) setErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

type stubMailer struct {
	subjects []string
}

func (m *stubMailer) SendAlert(subject, body string) error {
	m.subjects = append(m.subjects, subject)
	return nil
}

type testEnv struct {
	pipeline *Pipeline
	state    *State.Store
	notifier *stubNotifier
	clock    *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	env := &testEnv{clock: &now}
	clock := func() time.Time { return *env.clock }

	env.state = State.NewStoreWithClock(dir, clock)
	env.notifier = &stubNotifier{}

	persister := &Persister{
		Exporter:    Exporter.New(dir, "fuel_records.xlsx"),
		FallbackDir: filepath.Join(dir, "fallback"),
	}

	env.pipeline = New(Parser.NewFuelReportParser(false, nil), env.state, persister, env.notifier)
	env.pipeline.Whitelist = WhitelistFunc(func(plate string) bool {
		return plate == "KCA542Q" || plate == "KBZ123A"
	})
	env.pipeline.SetClock(clock)
	return env
}

func (e *testEnv) advance(d time.Duration) {
	*e.clock = e.clock.Add(d)
}

func fuelMessage(plate string, liters float64, amount float64, odometer int) string {
	return fmt.Sprintf(`FUEL UPDATE
DEPARTMENT: LOGISTICS
DRIVER: John Kamau
CAR: %s
LITERS: %.2f
AMOUNT: %.0f
TYPE: DIESEL
ODOMETER: %d`, plate, liters, amount, odometer)
}

func (e *testEnv) incoming(body string) IncomingMessage {
	return IncomingMessage{
		Body:        body,
		SenderPhone: "254700000001",
		SenderName:  "John",
		Timestamp:   e.clock.Unix(),
	}
}

func TestProcessAcceptsValidReport(t *testing.T) {
	env := newTestEnv(t)

	result := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 45.50, 7500, 125430)))

	assert.Equal(t, StatusAccepted, result.Status)
	assert.Equal(t, "KCA542Q", result.Record.Car)
	assert.Equal(t, 45.5, result.Record.Liters)
	assert.Equal(t, 7500.0, result.Record.Amount)
	assert.Equal(t, 125430, result.Record.Odometer)
	assert.Contains(t, result.SavedTo, "Workbook")
	assert.Contains(t, result.SavedTo, "Local JSON")

	// First fill-up has no baseline, so no efficiency yet
	assert.Nil(t, result.Efficiency)

	require.Len(t, env.notifier.group, 1)
	assert.Contains(t, env.notifier.group[0], "FUEL REPORT LOGGED")
	assert.Contains(t, env.notifier.group[0], "45.50 L")
	assert.Contains(t, env.notifier.group[0], "KSH 7,500")

	last, err := env.state.CarLastUpdate("KCA542Q")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 125430, last.Odometer)
}

func TestProcessRejectsUnknownVehicle(t *testing.T) {
	env := newTestEnv(t)

	result := env.pipeline.Process(env.incoming(fuelMessage("ZZZ 999Z", 40, 6000, 50000)))

	assert.Equal(t, StatusRejected, result.Status)
	assert.Contains(t, result.Reason, "not in the approved fleet list")
	require.Len(t, env.notifier.sender, 1)
	assert.Contains(t, env.notifier.sender[0], "VEHICLE NOT IN FLEET")
	assert.Empty(t, env.notifier.group)
}

func TestProcessRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)

	result := env.pipeline.Process(env.incoming("hello, anyone seen the keys?"))

	assert.Equal(t, StatusRejected, result.Status)
	require.Len(t, env.notifier.sender, 1)
	assert.Contains(t, env.notifier.sender[0], "FUEL REPORT ERROR")
}

func TestCooldownParksSecondReport(t *testing.T) {
	env := newTestEnv(t)

	first := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 45.5, 7500, 125430)))
	require.Equal(t, StatusAccepted, first.Status)

	env.advance(2 * time.Hour)
	second := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 30, 5000, 125800)))

	assert.Equal(t, StatusPending, second.Status)
	assert.Len(t, second.ApprovalID, 8)
	assert.Contains(t, second.Reason, "cooldown")

	pending, err := env.state.PendingApprovals()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, State.ApprovalCarCooldown, pending[0].Type)

	// Admins are tagged with the comparison and remaining hours
	require.NotEmpty(t, env.notifier.admins)
	assert.Contains(t, env.notifier.admins[0], "DUPLICATE FUEL REPORT")
	assert.Contains(t, env.notifier.admins[0], second.ApprovalID)

	// Nothing was persisted for the parked record
	last, err := env.state.CarLastUpdate("KCA542Q")
	require.NoError(t, err)
	assert.Equal(t, 125430, last.Odometer)
}

func TestApprovedRecordSkipsCooldownOnly(t *testing.T) {
	env := newTestEnv(t)

	first := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 45.5, 7500, 125430)))
	require.Equal(t, StatusAccepted, first.Status)

	env.advance(2 * time.Hour)
	second := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 30, 5000, 125830)))
	require.Equal(t, StatusPending, second.Status)

	approval, err := env.state.Approve(second.ApprovalID)
	require.NoError(t, err)

	result := env.pipeline.ProcessApproved(approval)
	assert.Equal(t, StatusAccepted, result.Status)

	// Efficiency from the previous fill-up: 400 km on 45.5 L
	require.NotNil(t, result.Efficiency)
	assert.InDelta(t, 400.0/45.5, *result.Efficiency, 0.001)

	last, err := env.state.CarLastUpdate("KCA542Q")
	require.NoError(t, err)
	assert.Equal(t, 125830, last.Odometer)
}

func TestApprovedRecordStillChecksOdometer(t *testing.T) {
	env := newTestEnv(t)

	first := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 45.5, 7500, 125430)))
	require.Equal(t, StatusAccepted, first.Status)

	env.advance(2 * time.Hour)
	second := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 30, 5000, 125000)))
	require.Equal(t, StatusPending, second.Status)

	approval, err := env.state.Approve(second.ApprovalID)
	require.NoError(t, err)

	result := env.pipeline.ProcessApproved(approval)
	assert.Equal(t, StatusRejected, result.Status)
	assert.Contains(t, result.Reason, "Odometer")
}

func TestOdometerRegressionRejectedWithoutApproval(t *testing.T) {
	env := newTestEnv(t)

	first := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 45.5, 7500, 125430)))
	require.Equal(t, StatusAccepted, first.Status)

	// Past the cooldown window, so only the odometer check can reject
	env.advance(13 * time.Hour)
	second := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 30, 5000, 125430)))

	assert.Equal(t, StatusRejected, second.Status)
	assert.Contains(t, second.Reason, "Odometer")

	pending, err := env.state.PendingApprovals()
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NotEmpty(t, env.notifier.sender)
	assert.Contains(t, env.notifier.sender[len(env.notifier.sender)-1], "ODOMETER ERROR")
}

func TestEfficiencyBoundaryDoesNotAlert(t *testing.T) {
	env := newTestEnv(t)

	first := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 20, 3000, 100000)))
	require.Equal(t, StatusAccepted, first.Status)

	// 400 km on 20 L is exactly 20.0 km/L, the threshold is strict
	env.advance(13 * time.Hour)
	second := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 25, 4000, 100400)))
	require.Equal(t, StatusAccepted, second.Status)
	require.NotNil(t, second.Efficiency)
	assert.Equal(t, 20.0, *second.Efficiency)
	assert.Empty(t, env.notifier.admins)
}

func TestHighEfficiencyAlert(t *testing.T) {
	env := newTestEnv(t)

	first := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 20, 3000, 100000)))
	require.Equal(t, StatusAccepted, first.Status)

	env.advance(13 * time.Hour)
	second := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 25, 4000, 100410)))
	require.Equal(t, StatusAccepted, second.Status)

	require.NotEmpty(t, env.notifier.admins)
	assert.Contains(t, env.notifier.admins[0], "EFFICIENCY")
}

func TestLowEfficiencyAlertEmailsOps(t *testing.T) {
	env := newTestEnv(t)
	mailer := &stubMailer{}
	env.pipeline.Mailer = mailer

	first := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 45.5, 7500, 125430)))
	require.Equal(t, StatusAccepted, first.Status)

	// 100 km on 45.5 L is 2.2 km/L, below the low threshold
	env.advance(13 * time.Hour)
	second := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 30, 5000, 125530)))
	require.Equal(t, StatusAccepted, second.Status)

	require.NotEmpty(t, env.notifier.admins)
	require.Len(t, mailer.subjects, 1)
	assert.Contains(t, mailer.subjects[0], "KCA542Q")
}

func TestMissingFieldsRejected(t *testing.T) {
	env := newTestEnv(t)

	msg := "FUEL UPDATE\nDRIVER: John Kamau\nCAR: KCA 542Q\nLITERS: 30\nAMOUNT: 5000"
	result := env.pipeline.Process(env.incoming(msg))

	assert.Equal(t, StatusRejected, result.Status)
	assert.Contains(t, result.Reason, "Missing required field(s)")
	require.NotEmpty(t, env.notifier.sender)
	assert.Contains(t, env.notifier.sender[0], "MISSING REQUIRED FIELDS")
}

func TestFailedNotificationStaysQueuedAfterLaterDelivery(t *testing.T) {
	env := newTestEnv(t)

	// First message is rejected while the notifier is down, so its
	// notice stays queued
	env.notifier.setErr(errors.New("evolution api unreachable"))
	first := env.pipeline.Process(env.incoming(fuelMessage("ZZZ 999Z", 40, 6000, 50000)))
	require.Equal(t, StatusRejected, first.Status)

	queued, err := env.state.UnnotifiedErrors()
	require.NoError(t, err)
	require.Len(t, queued, 1)

	// Delivery comes back and an unrelated report goes through. Its own
	// sends succeeding must not flag the older undelivered entry.
	env.notifier.setErr(nil)
	second := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 45.5, 7500, 125430)))
	require.Equal(t, StatusAccepted, second.Status)

	queued, err = env.state.UnnotifiedErrors()
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Contains(t, queued[0].Issue, "not in the approved fleet list")
}

func TestFailedConfirmationStaysQueuedAfterLaterDelivery(t *testing.T) {
	env := newTestEnv(t)

	env.notifier.setErr(errors.New("evolution api unreachable"))
	first := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 45.5, 7500, 125430)))
	require.Equal(t, StatusAccepted, first.Status)

	queued, err := env.state.UnnotifiedConfirmations()
	require.NoError(t, err)
	require.Len(t, queued, 1)

	env.notifier.setErr(nil)
	second := env.pipeline.Process(env.incoming(fuelMessage("KBZ 123A", 30, 5000, 80000)))
	require.Equal(t, StatusAccepted, second.Status)

	// The first confirmation is still awaiting the cron retry
	queued, err = env.state.UnnotifiedConfirmations()
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Contains(t, queued[0].Message, "KCA542Q")
}

func TestConcurrentReportsForSamePlateSerialize(t *testing.T) {
	env := newTestEnv(t)

	// Two reports for one plate race in from the webhook and the inbox
	// drain. Exactly one may be accepted; the other must hit the
	// cooldown gate.
	var wg sync.WaitGroup
	results := make([]Result, 2)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = env.pipeline.Process(env.incoming(
				fuelMessage("KCA 542Q", 40+float64(i), 6000, 125430+i*400)))
		}(i)
	}
	close(start)
	wg.Wait()

	statuses := map[Status]int{}
	for _, r := range results {
		statuses[r.Status]++
	}
	assert.Equal(t, 1, statuses[StatusAccepted])
	assert.Equal(t, 1, statuses[StatusPending])

	pending, err := env.state.PendingApprovals()
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestEfficiencyHistoryWrittenOnAcceptance(t *testing.T) {
	env := newTestEnv(t)

	first := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 40, 6000, 100000)))
	require.Equal(t, StatusAccepted, first.Status)

	env.advance(13 * time.Hour)
	second := env.pipeline.Process(env.incoming(fuelMessage("KCA 542Q", 35, 5500, 100360)))
	require.Equal(t, StatusAccepted, second.Status)

	stats, err := env.state.VehicleEfficiencyStats("KCA542Q", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, 360, stats.TotalDistance)
	assert.Equal(t, 40.0, stats.TotalLiters)
	assert.Equal(t, 9.0, stats.AvgEfficiency)
}
