package State

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// fileLocks serializes read-modify-write cycles per state file so two
// concurrent webhook deliveries can't both pass the cooldown or
// odometer check for the same plate.
var (
	fileLocksMu sync.Mutex
	fileLocks   = map[string]*sync.Mutex{}
)

func lockFor(path string) *sync.Mutex {
	fileLocksMu.Lock()
	defer fileLocksMu.Unlock()
	if mu, ok := fileLocks[path]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	fileLocks[path] = mu
	return mu
}

// loadJSON reads a state file into out. A missing or empty file leaves
// out untouched; a corrupted file is backed up aside and treated as
// empty so one bad write never wedges the pipeline.
func loadJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("JSON decode error in %s: %v", path, err)
		backup := path + ".corrupted"
		if copyErr := os.WriteFile(backup, data, 0644); copyErr == nil {
			log.Printf("Created backup at %s", backup)
		}
		return nil
	}
	return nil
}

// saveJSON writes atomically: temp file in the same directory, then
// rename. A crash mid-write never leaves a truncated state file.
func saveJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
