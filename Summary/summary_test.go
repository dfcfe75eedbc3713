package Summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FuelBot/Models"
)

func record(daysAgo int, car, driver, dept string, liters, amount float64, odometer int) Models.FuelReport {
	return Models.FuelReport{
		Datetime:   time.Now().AddDate(0, 0, -daysAgo).Format("2006-01-02-15-04"),
		Department: dept,
		Driver:     driver,
		Car:        car,
		Liters:     liters,
		Amount:     amount,
		FuelType:   "DIESEL",
		Odometer:   odometer,
	}
}

func TestCalculateEmpty(t *testing.T) {
	assert.Nil(t, Calculate(nil, 7))
	assert.Nil(t, Calculate([]Models.FuelReport{}, 7))
}

func TestCalculateExcludesOldRecords(t *testing.T) {
	records := []Models.FuelReport{
		record(1, "KCA542Q", "John", "LOGISTICS", 40, 6000, 100000),
		record(30, "KCA542Q", "John", "LOGISTICS", 50, 7000, 95000),
	}
	stats := Calculate(records, 7)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.RecordsCount)
	assert.Equal(t, 40.0, stats.TotalLiters)
}

func TestCalculateTotalsAndTops(t *testing.T) {
	records := []Models.FuelReport{
		record(3, "KCA542Q", "John", "LOGISTICS", 40, 6000, 100000),
		record(1, "KCA542Q", "John", "LOGISTICS", 50, 7500, 100450),
		record(2, "KBZ123A", "Mary", "SALES", 30, 4500, 50000),
	}
	stats := Calculate(records, 7)
	require.NotNil(t, stats)

	assert.Equal(t, 3, stats.RecordsCount)
	assert.Equal(t, 120.0, stats.TotalLiters)
	assert.Equal(t, 18000.0, stats.TotalAmount)
	assert.Equal(t, 2, stats.CarsFueled)
	assert.Equal(t, 2, stats.Drivers)
	assert.Equal(t, 2, stats.Departments)
	assert.Equal(t, 150.0, stats.AvgPricePerLiter)

	assert.Equal(t, "KCA542Q", stats.TopCar)
	assert.Equal(t, 90.0, stats.TopCarLiters)
	assert.Equal(t, "John", stats.TopDriver)
	assert.Equal(t, "LOGISTICS", stats.TopDept)

	// Distance comes from the odometer spread of cars with 2+ readings
	assert.Equal(t, 450, stats.TotalDistance)
	assert.InDelta(t, 5.0, stats.FleetEfficiency, 0.001)
	assert.Equal(t, "KCA542Q", stats.BestCar)
}

func TestFormatDailyRendersTotals(t *testing.T) {
	records := []Models.FuelReport{
		record(0, "KCA542Q", "John", "LOGISTICS", 40, 6000, 100000),
	}
	msg := FormatDaily(Calculate(records, 1))
	assert.Contains(t, msg, "DAILY FUEL REPORT")
	assert.Contains(t, msg, "40.00 L")
	assert.Contains(t, msg, "KSH 6,000")
}

func TestFormatWeeklyHandlesEmptyWeek(t *testing.T) {
	msg := FormatWeekly(nil)
	assert.Contains(t, msg, "WEEKLY FUEL SUMMARY")
	assert.Contains(t, msg, "No fuel reports this week.")
}
