package Summary

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"FuelBot/Exporter"
	"FuelBot/Models"
)

// Stats aggregates fuel records over a reporting window.
type Stats struct {
	Days         int
	RecordsCount int
	TotalLiters  float64
	TotalAmount  float64

	CarsFueled  int
	Drivers     int
	Departments int

	FuelTypeLiters   map[string]float64
	DeptLiters       map[string]float64
	TotalDistance    int
	AvgPricePerLiter float64

	TopCar        string
	TopCarLiters  float64
	TopDriver     string
	TopDriverLit  float64
	TopDept       string
	TopDeptLiters float64

	FleetEfficiency float64
	BestCar         string
	BestCarKmPerL   float64
	WorstCar        string
	WorstCarKmPerL  float64
}

// recordDay extracts the YYYY-MM-DD prefix of a record datetime.
func recordDay(datetime string) string {
	if len(datetime) >= 10 {
		return datetime[:10]
	}
	return ""
}

// parseRecordTime reads the record key form back into a time.
func parseRecordTime(datetime string) (time.Time, error) {
	return time.Parse("2006-01-02-15-04", datetime)
}

// Calculate aggregates records from the last N days. Returns nil when
// the window holds no records.
func Calculate(records []Models.FuelReport, days int) *Stats {
	cutoff := time.Now().AddDate(0, 0, -days)

	stats := &Stats{
		Days:           days,
		FuelTypeLiters: map[string]float64{},
		DeptLiters:     map[string]float64{},
	}

	cars := map[string]bool{}
	drivers := map[string]bool{}
	departments := map[string]bool{}
	carLiters := map[string]float64{}
	driverLiters := map[string]float64{}
	type odoReading struct {
		datetime string
		odometer int
	}
	carOdo := map[string][]odoReading{}

	for _, r := range records {
		if t, err := parseRecordTime(r.Datetime); err == nil && t.Before(cutoff) {
			continue
		}
		car := strings.ToUpper(strings.TrimSpace(r.Car))
		if car == "" {
			continue
		}
		stats.RecordsCount++
		cars[car] = true

		if r.Driver != "" {
			drivers[r.Driver] = true
			driverLiters[r.Driver] += r.Liters
		}
		if r.Department != "" {
			departments[r.Department] = true
			stats.DeptLiters[r.Department] += r.Liters
		}

		stats.TotalLiters += r.Liters
		stats.TotalAmount += r.Amount
		carLiters[car] += r.Liters
		if r.FuelType != "" && r.Liters > 0 {
			stats.FuelTypeLiters[r.FuelType] += r.Liters
		}
		if r.Odometer > 0 {
			carOdo[car] = append(carOdo[car], odoReading{r.Datetime, r.Odometer})
		}
	}

	if stats.RecordsCount == 0 {
		return nil
	}

	stats.CarsFueled = len(cars)
	stats.Drivers = len(drivers)
	stats.Departments = len(departments)
	if stats.TotalLiters > 0 {
		stats.AvgPricePerLiter = stats.TotalAmount / stats.TotalLiters
	}

	for car, liters := range carLiters {
		if liters > stats.TopCarLiters {
			stats.TopCar, stats.TopCarLiters = car, liters
		}
	}
	for driver, liters := range driverLiters {
		if liters > stats.TopDriverLit {
			stats.TopDriver, stats.TopDriverLit = driver, liters
		}
	}
	for dept, liters := range stats.DeptLiters {
		if liters > stats.TopDeptLiters {
			stats.TopDept, stats.TopDeptLiters = dept, liters
		}
	}

	// Per-car distance from the odometer spread inside the window.
	var fleetDistance int
	var fleetLiters float64
	for car, readings := range carOdo {
		if len(readings) < 2 {
			continue
		}
		sort.Slice(readings, func(i, j int) bool { return readings[i].datetime < readings[j].datetime })
		distance := readings[len(readings)-1].odometer - readings[0].odometer
		if distance <= 0 {
			continue
		}
		stats.TotalDistance += distance
		fleetDistance += distance
		fleetLiters += carLiters[car]

		if liters := carLiters[car]; liters > 0 {
			kmPerL := float64(distance) / liters
			if stats.BestCar == "" || kmPerL > stats.BestCarKmPerL {
				stats.BestCar, stats.BestCarKmPerL = car, kmPerL
			}
			if stats.WorstCar == "" || kmPerL < stats.WorstCarKmPerL {
				stats.WorstCar, stats.WorstCarKmPerL = car, kmPerL
			}
		}
	}
	if fleetLiters > 0 {
		stats.FleetEfficiency = float64(fleetDistance) / fleetLiters
	}

	return stats
}

// FromWorkbook reads the output workbook and aggregates the window.
func FromWorkbook(exporter *Exporter.Exporter, days int) (*Stats, error) {
	records, err := exporter.Rows()
	if err != nil {
		return nil, err
	}
	return Calculate(records, days), nil
}

func commaFloat0(f float64) string {
	return commaGroup(fmt.Sprintf("%.0f", f))
}

func commaFloat2(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return commaGroup(s[:i]) + s[i:]
	}
	return commaGroup(s)
}

func commaGroup(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FormatDaily renders the daily report message.
func FormatDaily(stats *Stats) string {
	now := time.Now()
	var b strings.Builder
	b.WriteString("[SUN] *DAILY FUEL REPORT*\n")
	b.WriteString("-------------------------\n")
	fmt.Fprintf(&b, "[DATE] %s\n\n", now.Format("Monday, 02 January 2006"))

	if stats == nil || stats.RecordsCount == 0 {
		b.WriteString("No fuel reports today.\n")
		return b.String()
	}

	b.WriteString("[TOTALS] *TODAY'S TOTALS*\n")
	fmt.Fprintf(&b, "   Fuel: *%s L*\n", commaFloat2(stats.TotalLiters))
	fmt.Fprintf(&b, "   Spent: *KSH %s*\n", commaFloat0(stats.TotalAmount))
	fmt.Fprintf(&b, "   Reports: *%d*\n", stats.RecordsCount)
	fmt.Fprintf(&b, "   Vehicles: *%d*\n\n", stats.CarsFueled)

	if stats.AvgPricePerLiter > 0 {
		fmt.Fprintf(&b, "[AVG] Avg Price: *KSH %.2f/L*\n\n", stats.AvgPricePerLiter)
	}

	if len(stats.FuelTypeLiters) > 0 {
		b.WriteString("[FUEL] *BY FUEL TYPE*\n")
		for _, ftype := range sortedKeys(stats.FuelTypeLiters) {
			fmt.Fprintf(&b, "   - %s: %s L\n", ftype, commaFloat2(stats.FuelTypeLiters[ftype]))
		}
		b.WriteString("\n")
	}

	if stats.TopCar != "" {
		b.WriteString("[TOP] *TOP VEHICLE*\n")
		fmt.Fprintf(&b, "   %s (%s L)\n\n", stats.TopCar, commaFloat2(stats.TopCarLiters))
	}

	if len(stats.DeptLiters) > 0 {
		b.WriteString("[DEPT] *DEPARTMENTS*\n")
		for _, dept := range sortedKeys(stats.DeptLiters) {
			fmt.Fprintf(&b, "   - %s: %s L\n", dept, commaFloat2(stats.DeptLiters[dept]))
		}
		b.WriteString("\n")
	}

	b.WriteString("-------------------------\n")
	fmt.Fprintf(&b, "_Report generated at %s_", now.Format("15:04"))
	return b.String()
}

// FormatWeekly renders the weekly summary message.
func FormatWeekly(stats *Stats) string {
	now := time.Now()
	weekStart := now.AddDate(0, 0, -7)
	var b strings.Builder
	b.WriteString("[STATS] *WEEKLY FUEL SUMMARY*\n")
	b.WriteString("-------------------------\n")
	fmt.Fprintf(&b, "[DATE] %s - %s\n\n", weekStart.Format("02 Jan"), now.Format("02 Jan 2006"))

	if stats == nil || stats.RecordsCount == 0 {
		b.WriteString("No fuel reports this week.\n")
		return b.String()
	}

	b.WriteString("[TOTALS] *WEEK TOTALS*\n")
	fmt.Fprintf(&b, "   Total Fuel: *%s L*\n", commaFloat2(stats.TotalLiters))
	fmt.Fprintf(&b, "   Total Spent: *KSH %s*\n", commaFloat0(stats.TotalAmount))
	fmt.Fprintf(&b, "   Distance: *%s km*\n", commaGroup(fmt.Sprintf("%d", stats.TotalDistance)))
	fmt.Fprintf(&b, "   Reports: *%d*\n\n", stats.RecordsCount)

	days := stats.Days
	if days <= 0 {
		days = 7
	}
	b.WriteString("[AVG] *DAILY AVERAGES*\n")
	fmt.Fprintf(&b, "   %s L/day\n", commaFloat2(stats.TotalLiters/float64(days)))
	fmt.Fprintf(&b, "   KSH %s/day\n\n", commaFloat0(stats.TotalAmount/float64(days)))

	b.WriteString("-------------------------\n")
	b.WriteString("[TOP] *TOP PERFORMERS*\n\n")
	if stats.TopCar != "" {
		b.WriteString("[CAR] *Top Vehicle:*\n")
		fmt.Fprintf(&b, "   %s - %s L\n\n", stats.TopCar, commaFloat2(stats.TopCarLiters))
	}
	if stats.TopDriver != "" {
		b.WriteString("[DRIVER] *Top Driver:*\n")
		fmt.Fprintf(&b, "   %s - %s L\n\n", stats.TopDriver, commaFloat2(stats.TopDriverLit))
	}
	if stats.TopDept != "" {
		b.WriteString("[DEPT] *Top Department:*\n")
		fmt.Fprintf(&b, "   %s - %s L\n\n", stats.TopDept, commaFloat2(stats.TopDeptLiters))
	}

	b.WriteString("-------------------------\n")
	b.WriteString("[STATS] *EFFICIENCY STATS*\n\n")
	if stats.FleetEfficiency > 0 {
		fmt.Fprintf(&b, "[FLEET] *Fleet Average:* %.2f km/L\n\n", stats.FleetEfficiency)
	}
	if stats.BestCar != "" {
		b.WriteString("[OK] *Most Efficient:*\n")
		fmt.Fprintf(&b, "   %s (%.2f km/L)\n\n", stats.BestCar, stats.BestCarKmPerL)
	}
	if stats.WorstCar != "" && stats.WorstCar != stats.BestCar {
		b.WriteString("[!] *Least Efficient:*\n")
		fmt.Fprintf(&b, "   %s (%.2f km/L)\n\n", stats.WorstCar, stats.WorstCarKmPerL)
	}

	b.WriteString("-------------------------\n")
	fmt.Fprintf(&b, "_Generated %s_", now.Format("02 Jan 2006 15:04"))
	return b.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
