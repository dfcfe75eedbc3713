package State

import (
	"math"
	"path/filepath"
	"time"

	"FuelBot/Constants"
	"FuelBot/Fleet"
)

// EfficiencyRecord is an append-only history entry, one per fill-up
// pair that produced a computable km/L figure.
type EfficiencyRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Car        string    `json:"car"`
	Driver     string    `json:"driver"`
	Efficiency float64   `json:"efficiency"`
	Distance   int       `json:"distance"`
	Liters     float64   `json:"liters"`
}

// EfficiencyStats summarizes a vehicle's recent history.
type EfficiencyStats struct {
	Car           string  `json:"car"`
	Records       int     `json:"records"`
	AvgEfficiency float64 `json:"avg_efficiency"`
	MinEfficiency float64 `json:"min_efficiency"`
	MaxEfficiency float64 `json:"max_efficiency"`
	TotalDistance int     `json:"total_distance"`
	TotalLiters   float64 `json:"total_liters"`
	Days          int     `json:"days"`
}

func (s *Store) efficiencyPath() string {
	return filepath.Join(s.dir, "efficiency_history.json")
}

// SaveEfficiencyRecord appends a history entry, keeping the most
// recent entries under the retention cap.
func (s *Store) SaveEfficiencyRecord(plate, driver string, efficiency float64, distance int, liters float64) error {
	path := s.efficiencyPath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	var history []EfficiencyRecord
	if err := loadJSON(path, &history); err != nil {
		return err
	}
	history = append(history, EfficiencyRecord{
		Timestamp:  s.now(),
		Car:        Fleet.NormalizePlate(plate),
		Driver:     driver,
		Efficiency: round2(efficiency),
		Distance:   distance,
		Liters:     round2(liters),
	})
	if len(history) > Constants.MaxEfficiencyHistory {
		history = history[len(history)-Constants.MaxEfficiencyHistory:]
	}
	return saveJSON(path, history)
}

// VehicleEfficiencyStats aggregates a plate's history over a window.
func (s *Store) VehicleEfficiencyStats(plate string, days int) (EfficiencyStats, error) {
	path := s.efficiencyPath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	normalized := Fleet.NormalizePlate(plate)
	stats := EfficiencyStats{Car: normalized, Days: days}

	var history []EfficiencyRecord
	if err := loadJSON(path, &history); err != nil {
		return stats, err
	}

	cutoff := s.now().AddDate(0, 0, -days)
	var sum float64
	for _, r := range history {
		if r.Car != normalized || r.Timestamp.Before(cutoff) {
			continue
		}
		if stats.Records == 0 {
			stats.MinEfficiency = r.Efficiency
			stats.MaxEfficiency = r.Efficiency
		}
		stats.Records++
		sum += r.Efficiency
		stats.MinEfficiency = math.Min(stats.MinEfficiency, r.Efficiency)
		stats.MaxEfficiency = math.Max(stats.MaxEfficiency, r.Efficiency)
		stats.TotalDistance += r.Distance
		stats.TotalLiters += r.Liters
	}
	if stats.Records > 0 {
		stats.AvgEfficiency = round2(sum / float64(stats.Records))
		stats.TotalLiters = round2(stats.TotalLiters)
	}
	return stats, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
