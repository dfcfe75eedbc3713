package Fleet

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"FuelBot/Models"

	"github.com/360EntSecGroup-Skylar/excelize"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizePlate strips all whitespace and uppercases, so "kca 542q",
// "KCA542Q" and "KCA 542 Q" all key the same vehicle.
func NormalizePlate(plate string) string {
	return whitespace.ReplaceAllString(strings.ToUpper(plate), "")
}

// defaultPlates seeds the whitelist on a fresh database.
var defaultPlates = []string{
	"KCA542Q", "KCB711C", "KCE090R", "KCE690F", "KCE699F", "KCG668W", "KCH167M",
	"KCQ215F", "KCQ581M", "KCQ618K", "KCU938R", "KCU729C", "KCY076X", "KCY080X",
	"KCY084X", "KCY090X", "KCY838X", "KCZ154S", "KCZ155P", "KCZ181P", "KCZ199P",
	"KCZ223P", "KCZ476E", "KCZ751V", "KDA609E", "KDA717B", "KDB323M", "KDB585E",
	"KDC207R", "KDC490Q", "KDC739F", "KDD684Y", "KDD689Y", "KDE264M", "KDE638J",
	"KDK728K", "KDK732K", "KDK780K", "KDK815R", "KDM306S", "KDM308S", "KDM309S",
	"KDM794R", "KDM840V", "KDR592N", "KDR594N", "KDS453Y", "KDS525D", "KDS919Y",
	"KDT728R", "KDT916R", "KDT923R", "KMDG902Z", "KMEL225X", "KMFF099Z", "KMFF113Z",
	"KMFF162Z", "KMGK596V", "KMGS239H", "KCG669W", "KDP655F", "KDS949Y", "KDT724R",
	"KCK201X", "KCK686A", "KCL502T", "KCN496A", "KCU237Z", "KCY930Y", "KDD655F",
	"KDN753G", "KDN759G", "KDU613B", "UA234BJ", "KDT794R", "KCP337X", "KDM402L",
	"KDV064S", "KDV072L", "KDV438W", "KDV439W", "KDV437W",
}

// Seed inserts the default fleet on an empty table. Existing rows win.
func Seed() error {
	var count int64
	if err := Models.DB.Model(&Models.FleetVehicle{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	vehicles := make([]Models.FleetVehicle, 0, len(defaultPlates))
	for _, plate := range defaultPlates {
		vehicles = append(vehicles, Models.FleetVehicle{Plate: plate})
	}
	if err := Models.DB.Create(&vehicles).Error; err != nil {
		return err
	}
	log.Printf("[FLEET] Seeded %d vehicles", len(vehicles))
	return nil
}

// IsAllowed reports whether a plate is in the approved fleet. The
// match is strict on the normalized form.
func IsAllowed(plate string) bool {
	var count int64
	err := Models.DB.Model(&Models.FleetVehicle{}).
		Where("plate = ?", NormalizePlate(plate)).
		Count(&count).Error
	if err != nil {
		log.Printf("[FLEET] Whitelist lookup failed for %s: %v", plate, err)
		return false
	}
	return count > 0
}

// Add whitelists a plate. Adding an existing plate is an error so the
// admin reply can say so.
func Add(plate string) error {
	normalized := NormalizePlate(plate)
	if normalized == "" {
		return fmt.Errorf("empty plate")
	}
	if IsAllowed(normalized) {
		return fmt.Errorf("vehicle %s is already in the fleet list", normalized)
	}
	return Models.DB.Create(&Models.FleetVehicle{Plate: normalized}).Error
}

// Remove deletes a plate from the whitelist.
func Remove(plate string) error {
	normalized := NormalizePlate(plate)
	if !IsAllowed(normalized) {
		return fmt.Errorf("vehicle %s is not in the fleet list", normalized)
	}
	return Models.DB.Unscoped().Where("plate = ?", normalized).Delete(&Models.FleetVehicle{}).Error
}

// List returns the whitelist sorted by plate.
func List() ([]string, error) {
	var vehicles []Models.FleetVehicle
	if err := Models.DB.Find(&vehicles).Error; err != nil {
		return nil, err
	}
	plates := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		plates = append(plates, v.Plate)
	}
	sort.Strings(plates)
	return plates, nil
}

// ImportFromExcel replaces the whitelist with plates from column A of
// Sheet1. Used for bulk onboarding of a new fleet file.
func ImportFromExcel(path string) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, err
	}
	rows := f.GetRows("Sheet1")
	var vehicles []Models.FleetVehicle
	seen := map[string]bool{}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		plate := NormalizePlate(row[0])
		if plate == "" || plate == "PLATE" || seen[plate] {
			continue
		}
		seen[plate] = true
		vehicles = append(vehicles, Models.FleetVehicle{Plate: plate})
	}
	if len(vehicles) == 0 {
		return 0, fmt.Errorf("no plates found in %s", path)
	}
	if err := Models.DB.Unscoped().Where("1 = 1").Delete(&Models.FleetVehicle{}).Error; err != nil {
		return 0, err
	}
	if err := Models.DB.Create(&vehicles).Error; err != nil {
		return 0, err
	}
	log.Printf("[FLEET] Imported %d vehicles from %s", len(vehicles), path)
	return len(vehicles), nil
}
