package Pipeline

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"FuelBot/Exporter"
	"FuelBot/Models"
	"FuelBot/Sheets"

	"gorm.io/datatypes"
)

// Persister fans an accepted record out to every configured store.
// Failures are independent: one store being down never blocks the
// others, and the save counts as long as at least one destination
// took the record.
type Persister struct {
	Exporter *Exporter.Exporter
	Sheets   *Sheets.Client
	// FallbackDir receives a per-record JSON file as the last-resort
	// local store.
	FallbackDir string
	// UseDatabase gates the GORM sink so tests can run without a
	// database handle.
	UseDatabase bool
}

func dbRecord(report Models.FuelReport) Models.FuelRecord {
	payload, _ := json.Marshal(report)
	return Models.FuelRecord{
		Datetime:   report.Datetime,
		Department: report.Department,
		Driver:     report.Driver,
		Car:        report.Car,
		Liters:     report.Liters,
		Amount:     report.Amount,
		FuelType:   report.FuelType,
		Odometer:   report.Odometer,
		Sender:     report.Sender,
		RawMessage: report.RawMessage,
		Payload:    datatypes.JSON(payload),
	}
}

// Insert saves a new record everywhere. Returns the destinations that
// succeeded; an empty slice means total failure.
func (p *Persister) Insert(report Models.FuelReport) []string {
	var savedTo []string

	if p.UseDatabase {
		record := dbRecord(report)
		if err := Models.DB.Create(&record).Error; err != nil {
			log.Printf("[FALLBACK] Database save failed: %v", err)
		} else {
			savedTo = append(savedTo, "Database")
		}
	}

	if p.Sheets != nil {
		err := p.Sheets.EnsureHeaders()
		if err == nil {
			err = p.Sheets.AppendRecord(report)
		}
		if err != nil {
			log.Printf("[FALLBACK] Google Sheets save failed: %v", err)
		} else {
			savedTo = append(savedTo, "Google Sheets")
		}
	}

	if p.Exporter != nil {
		if err := p.Exporter.AppendRecord(report); err != nil {
			log.Printf("[FALLBACK] Workbook save failed: %v", err)
		} else {
			savedTo = append(savedTo, "Workbook")
		}
	}

	if name, err := p.saveLocalJSON(report); err != nil {
		log.Printf("[FALLBACK] Local JSON save failed: %v", err)
	} else {
		savedTo = append(savedTo, "Local JSON")
		log.Printf("[FALLBACK] Saved to local JSON: %s", name)
	}

	if len(savedTo) == 0 {
		log.Printf("[FALLBACK] All save methods failed!")
	}
	return savedTo
}

// Update rewrites the record matched by the original datetime and
// plate in every store, appending where the original is gone.
func (p *Persister) Update(originalDatetime, originalCar string, report Models.FuelReport) []string {
	var savedTo []string

	if p.UseDatabase {
		record := dbRecord(report)
		res := Models.DB.Model(&Models.FuelRecord{}).
			Where("datetime = ? AND car = ?", originalDatetime, originalCar).
			Updates(map[string]interface{}{
				"datetime":    record.Datetime,
				"department":  record.Department,
				"driver":      record.Driver,
				"car":         record.Car,
				"liters":      record.Liters,
				"amount":      record.Amount,
				"type":        record.FuelType,
				"odometer":    record.Odometer,
				"sender":      record.Sender,
				"raw_message": record.RawMessage,
				"payload":     record.Payload,
			})
		if res.Error != nil {
			log.Printf("[FALLBACK] Database update failed: %v", res.Error)
		} else if res.RowsAffected == 0 {
			if err := Models.DB.Create(&record).Error; err != nil {
				log.Printf("[FALLBACK] Database insert failed: %v", err)
			} else {
				log.Printf("[DB] Inserted record into database (update not found)")
				savedTo = append(savedTo, "Database")
			}
		} else {
			savedTo = append(savedTo, "Database")
		}
	}

	if p.Sheets != nil {
		updated, err := p.Sheets.UpdateRecord(originalDatetime, originalCar, report)
		if err == nil && !updated {
			err = p.Sheets.AppendRecord(report)
		}
		if err != nil {
			log.Printf("[FALLBACK] Google Sheets update failed: %v", err)
		} else {
			savedTo = append(savedTo, "Google Sheets")
		}
	}

	if p.Exporter != nil {
		if err := p.Exporter.UpdateRecord(originalDatetime, originalCar, report); err != nil {
			log.Printf("[FALLBACK] Workbook update failed: %v", err)
		} else {
			savedTo = append(savedTo, "Workbook")
		}
	}

	if name, err := p.saveLocalJSON(report); err != nil {
		log.Printf("[FALLBACK] Local JSON save failed: %v", err)
	} else {
		savedTo = append(savedTo, "Local JSON")
		log.Printf("[FALLBACK] Saved to local JSON: %s", name)
	}

	return savedTo
}

func (p *Persister) saveLocalJSON(report Models.FuelReport) (string, error) {
	if p.FallbackDir == "" {
		return "", fmt.Errorf("no fallback dir configured")
	}
	if err := os.MkdirAll(p.FallbackDir, 0755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.json", time.Now().Format("20060102_150405.000"), report.Car)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(p.FallbackDir, name), data, 0644); err != nil {
		return "", err
	}
	return name, nil
}
