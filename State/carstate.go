package State

import (
	"path/filepath"
	"time"

	"FuelBot/Fleet"
	"FuelBot/Models"
)

// CarLastUpdate is the last accepted fill-up per plate. It is
// overwritten on every acceptance and drives the cooldown check and
// the efficiency calculation.
type CarLastUpdate struct {
	Timestamp  time.Time `json:"timestamp"`
	Driver     string    `json:"driver"`
	Liters     float64   `json:"liters"`
	Amount     float64   `json:"amount"`
	Odometer   int       `json:"odometer"`
	FuelType   string    `json:"type"`
	Department string    `json:"department"`
	Efficiency *float64  `json:"efficiency"`
}

// Store owns the JSON-backed state files under a data directory. It is
// passed into the pipeline explicitly so tests can point it at a
// temp dir.
type Store struct {
	dir string

	now func() time.Time
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// NewStoreWithClock allows tests to control timestamps.
func NewStoreWithClock(dir string, now func() time.Time) *Store {
	return &Store{dir: dir, now: now}
}

func (s *Store) carLastUpdatePath() string {
	return filepath.Join(s.dir, "car_last_update.json")
}

// CarLastUpdate returns the last accepted record state for a plate, or
// nil when the car has none yet.
func (s *Store) CarLastUpdate(plate string) (*CarLastUpdate, error) {
	path := s.carLastUpdatePath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	updates := map[string]CarLastUpdate{}
	if err := loadJSON(path, &updates); err != nil {
		return nil, err
	}
	if u, ok := updates[Fleet.NormalizePlate(plate)]; ok {
		return &u, nil
	}
	return nil, nil
}

// SetCarLastUpdate overwrites the per-plate state after an acceptance.
func (s *Store) SetCarLastUpdate(plate string, record Models.FuelReport, efficiency *float64) error {
	path := s.carLastUpdatePath()
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	updates := map[string]CarLastUpdate{}
	if err := loadJSON(path, &updates); err != nil {
		return err
	}
	updates[Fleet.NormalizePlate(plate)] = CarLastUpdate{
		Timestamp:  s.now(),
		Driver:     record.Driver,
		Liters:     record.Liters,
		Amount:     record.Amount,
		Odometer:   record.Odometer,
		FuelType:   record.FuelType,
		Department: record.Department,
		Efficiency: efficiency,
	}
	return saveJSON(path, updates)
}
