package Exporter

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"FuelBot/Fleet"
	"FuelBot/Models"

	"github.com/xuri/excelize/v2"
)

const (
	sheetName             = "Fuel Records"
	backupIntervalRecords = 50
	backupsToKeep         = 10
	rawMessageMaxLen      = 500
)

// Columns is the workbook header, in order. The workbook doubles as
// the authoritative odometer history, so the column layout is part of
// the data contract.
var Columns = []string{"DATETIME", "DEPARTMENT", "DRIVER", "CAR", "LITERS", "AMOUNT", "TYPE", "ODOMETER", "SENDER", "RAW_MESSAGE"}

// Exporter appends fuel records to a single xlsx workbook, keeping
// timestamped backups every backupIntervalRecords appends.
type Exporter struct {
	mu                 sync.Mutex
	dir                string
	filename           string
	recordsSinceBackup int
}

func New(dir, filename string) *Exporter {
	return &Exporter{dir: dir, filename: filename}
}

func (e *Exporter) path() string {
	return filepath.Join(e.dir, e.filename)
}

func (e *Exporter) backupDir() string {
	return filepath.Join(e.dir, "backups")
}

// Path returns the workbook location on disk.
func (e *Exporter) Path() string {
	return e.path()
}

func (e *Exporter) open() (*excelize.File, error) {
	if _, err := os.Stat(e.path()); os.IsNotExist(err) {
		f := excelize.NewFile()
		f.SetSheetName("Sheet1", sheetName)
		for i, col := range Columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheetName, cell, col)
		}
		widths := map[string]float64{
			"A": 18, "B": 15, "C": 15, "D": 12, "E": 10,
			"F": 12, "G": 10, "H": 12, "I": 15, "J": 50,
		}
		for col, width := range widths {
			f.SetColWidth(sheetName, col, col, width)
		}
		return f, nil
	}
	return excelize.OpenFile(e.path())
}

func rowValues(record Models.FuelReport) []interface{} {
	raw := record.RawMessage
	if len(raw) > rawMessageMaxLen {
		raw = raw[:rawMessageMaxLen]
	}
	return []interface{}{
		record.Datetime,
		record.Department,
		record.Driver,
		record.Car,
		record.Liters,
		record.Amount,
		record.FuelType,
		record.Odometer,
		record.Sender,
		raw,
	}
}

// AppendRecord adds one record below the last row and backs the file
// up when the interval is due.
func (e *Exporter) AppendRecord(record Models.FuelReport) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := e.open()
	if err != nil {
		return fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return err
	}
	for i, v := range rowValues(record) {
		cell, _ := excelize.CoordinatesToCellName(i+1, len(rows)+1)
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return err
	}
	if err := f.SaveAs(e.path()); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	log.Printf("Appended record to %s", e.path())

	e.recordsSinceBackup++
	if e.recordsSinceBackup >= backupIntervalRecords {
		e.createBackup()
		e.recordsSinceBackup = 0
	}
	return nil
}

// UpdateRecord rewrites the row matched by the original datetime and
// plate. Used when an admin approves an edited resubmission. If the
// original row is gone, the new record is appended instead so the
// approval is never lost.
func (e *Exporter) UpdateRecord(originalDatetime, originalCar string, record Models.FuelReport) error {
	e.mu.Lock()

	f, err := e.open()
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("opening workbook: %w", err)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		f.Close()
		e.mu.Unlock()
		return err
	}

	normalized := Fleet.NormalizePlate(originalCar)
	target := 0
	for i, row := range rows {
		if i == 0 || len(row) < 4 {
			continue
		}
		if row[0] == originalDatetime && Fleet.NormalizePlate(row[3]) == normalized {
			target = i + 1
			break
		}
	}

	if target == 0 {
		f.Close()
		e.mu.Unlock()
		log.Printf("Record not found for update (%s / %s), appending instead", originalDatetime, originalCar)
		return e.AppendRecord(record)
	}

	for i, v := range rowValues(record) {
		cell, _ := excelize.CoordinatesToCellName(i+1, target)
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			f.Close()
			e.mu.Unlock()
			return err
		}
	}
	err = f.SaveAs(e.path())
	f.Close()
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	log.Printf("Updated record in workbook: %s / %s", originalDatetime, originalCar)
	return nil
}

// LastOdometerFor scans the workbook for the most recent odometer
// reading of a plate. Returns false when the car has no rows yet.
func (e *Exporter) LastOdometerFor(plate string) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := os.Stat(e.path()); os.IsNotExist(err) {
		return 0, false
	}
	f, err := excelize.OpenFile(e.path())
	if err != nil {
		log.Printf("Error reading last odometer: %v", err)
		return 0, false
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		log.Printf("Error reading last odometer: %v", err)
		return 0, false
	}

	normalized := Fleet.NormalizePlate(plate)
	last := 0
	found := false
	for i, row := range rows {
		if i == 0 || len(row) < 8 {
			continue
		}
		if Fleet.NormalizePlate(row[3]) != normalized {
			continue
		}
		odo, err := parseOdometer(row[7])
		if err != nil {
			continue
		}
		last = odo
		found = true
	}
	return last, found
}

// Rows returns all data rows as reports, for summaries and the
// dashboard. Header row excluded.
func (e *Exporter) Rows() ([]Models.FuelReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := os.Stat(e.path()); os.IsNotExist(err) {
		return nil, nil
	}
	f, err := excelize.OpenFile(e.path())
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	var records []Models.FuelReport
	for i, row := range rows {
		if i == 0 {
			continue
		}
		records = append(records, reportFromRow(row))
	}
	return records, nil
}

func reportFromRow(row []string) Models.FuelReport {
	get := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	liters, _ := strconv.ParseFloat(strings.ReplaceAll(get(4), ",", ""), 64)
	amount, _ := strconv.ParseFloat(strings.ReplaceAll(get(5), ",", ""), 64)
	odometer, _ := parseOdometer(get(7))
	return Models.FuelReport{
		Datetime:   get(0),
		Department: get(1),
		Driver:     get(2),
		Car:        get(3),
		Liters:     liters,
		Amount:     amount,
		FuelType:   get(6),
		Odometer:   odometer,
		Sender:     get(8),
		RawMessage: get(9),
	}
}

func parseOdometer(raw string) (int, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty odometer cell")
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func (e *Exporter) createBackup() {
	if _, err := os.Stat(e.path()); os.IsNotExist(err) {
		return
	}
	if err := os.MkdirAll(e.backupDir(), 0755); err != nil {
		log.Printf("Backup failed: %v", err)
		return
	}
	base := strings.TrimSuffix(e.filename, ".xlsx")
	name := fmt.Sprintf("%s_%s.xlsx", base, time.Now().Format("20060102_150405"))
	if err := copyFile(e.path(), filepath.Join(e.backupDir(), name)); err != nil {
		log.Printf("Backup failed: %v", err)
		return
	}
	log.Printf("[BACKUP] Created backup: %s", name)

	backups, err := filepath.Glob(filepath.Join(e.backupDir(), base+"_*.xlsx"))
	if err != nil {
		return
	}
	sort.Strings(backups)
	for len(backups) > backupsToKeep {
		os.Remove(backups[0])
		backups = backups[1:]
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
