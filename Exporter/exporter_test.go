package Exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FuelBot/Models"
)

func testRecord(datetime, plate string, odometer int) Models.FuelReport {
	return Models.FuelReport{
		Datetime:   datetime,
		Department: "LOGISTICS",
		Driver:     "John Kamau",
		Car:        plate,
		Liters:     45.5,
		Amount:     7500,
		FuelType:   "DIESEL",
		Odometer:   odometer,
		Sender:     "John",
		RawMessage: "FUEL UPDATE ...",
	}
}

func TestAppendAndReadBack(t *testing.T) {
	e := New(t.TempDir(), "fuel_records.xlsx")

	require.NoError(t, e.AppendRecord(testRecord("2026-08-20-09-30", "KCA542Q", 125430)))
	require.NoError(t, e.AppendRecord(testRecord("2026-08-20-10-15", "KBZ123A", 88000)))

	rows, err := e.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "KCA542Q", rows[0].Car)
	assert.Equal(t, 45.5, rows[0].Liters)
	assert.Equal(t, 7500.0, rows[0].Amount)
	assert.Equal(t, 125430, rows[0].Odometer)
	assert.Equal(t, "KBZ123A", rows[1].Car)
}

func TestLastOdometerFor(t *testing.T) {
	e := New(t.TempDir(), "fuel_records.xlsx")

	_, found := e.LastOdometerFor("KCA542Q")
	assert.False(t, found)

	require.NoError(t, e.AppendRecord(testRecord("2026-08-18-09-00", "KCA542Q", 125000)))
	require.NoError(t, e.AppendRecord(testRecord("2026-08-19-09-00", "KBZ123A", 70000)))
	require.NoError(t, e.AppendRecord(testRecord("2026-08-20-09-30", "KCA 542Q", 125430)))

	// Latest row wins, plate matching is normalized
	odo, found := e.LastOdometerFor("kca 542q")
	assert.True(t, found)
	assert.Equal(t, 125430, odo)

	odo, found = e.LastOdometerFor("KBZ123A")
	assert.True(t, found)
	assert.Equal(t, 70000, odo)
}

func TestUpdateRecordRewritesRow(t *testing.T) {
	e := New(t.TempDir(), "fuel_records.xlsx")

	require.NoError(t, e.AppendRecord(testRecord("2026-08-20-09-30", "KCA542Q", 125430)))

	corrected := testRecord("2026-08-20-09-30", "KCA542Q", 125450)
	corrected.Liters = 50
	require.NoError(t, e.UpdateRecord("2026-08-20-09-30", "KCA542Q", corrected))

	rows, err := e.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 125450, rows[0].Odometer)
	assert.Equal(t, 50.0, rows[0].Liters)
}

func TestUpdateRecordAppendsWhenMissing(t *testing.T) {
	e := New(t.TempDir(), "fuel_records.xlsx")

	require.NoError(t, e.AppendRecord(testRecord("2026-08-20-09-30", "KCA542Q", 125430)))
	require.NoError(t, e.UpdateRecord("2026-01-01-00-00", "KBZ123A", testRecord("2026-08-21-08-00", "KBZ123A", 71000)))

	rows, err := e.Rows()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRawMessageTruncated(t *testing.T) {
	e := New(t.TempDir(), "fuel_records.xlsx")

	record := testRecord("2026-08-20-09-30", "KCA542Q", 125430)
	long := make([]byte, 800)
	for i := range long {
		long[i] = 'x'
	}
	record.RawMessage = string(long)
	require.NoError(t, e.AppendRecord(record))

	rows, err := e.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].RawMessage, 500)
}
