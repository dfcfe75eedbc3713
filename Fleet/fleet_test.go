package Fleet

import (
	"path/filepath"
	"testing"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"FuelBot/Models"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "fleet_test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Models.FleetVehicle{}))
	Models.DB = db
}

func TestNormalizePlate(t *testing.T) {
	cases := map[string]string{
		"KCA 542Q":    "KCA542Q",
		"kca 542q":    "KCA542Q",
		" KBZ  123A ": "KBZ123A",
		"KDV437W":     "KDV437W",
		"ua 234 bj":   "UA234BJ",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePlate(in))
	}
}

func TestNormalizePlateEmpty(t *testing.T) {
	assert.Equal(t, "", NormalizePlate(""))
	assert.Equal(t, "", NormalizePlate("   "))
}

func TestDefaultPlatesAreNormalized(t *testing.T) {
	for _, plate := range defaultPlates {
		assert.Equal(t, plate, NormalizePlate(plate), "seed plate %s not in normalized form", plate)
	}
}

func TestSeedAndMembership(t *testing.T) {
	setupTestDB(t)
	require.NoError(t, Seed())

	assert.True(t, IsAllowed("kca 542q"))
	assert.False(t, IsAllowed("ZZZ999Z"))

	// Re-seeding an occupied table is a no-op
	require.NoError(t, Seed())
	plates, err := List()
	require.NoError(t, err)
	assert.Len(t, plates, len(defaultPlates))
}

func TestAddAndRemove(t *testing.T) {
	setupTestDB(t)

	require.NoError(t, Add("kzz 001a"))
	assert.True(t, IsAllowed("KZZ001A"))
	err := Add("KZZ 001A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in the fleet list")

	require.NoError(t, Remove("kzz 001a"))
	assert.False(t, IsAllowed("KZZ001A"))
	err = Remove("KZZ001A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the fleet list")
}

func TestImportFromExcelReplacesWhitelist(t *testing.T) {
	setupTestDB(t)
	require.NoError(t, Seed())

	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "PLATE")
	f.SetCellValue("Sheet1", "A2", "kca 542q")
	f.SetCellValue("Sheet1", "A3", "KZZ 310B")
	f.SetCellValue("Sheet1", "A4", "KZZ 310B") // duplicate rows collapse
	f.SetCellValue("Sheet1", "A5", "")
	path := filepath.Join(t.TempDir(), "fleet.xlsx")
	require.NoError(t, f.SaveAs(path))

	n, err := ImportFromExcel(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The import replaces the seeded list wholesale
	plates, err := List()
	require.NoError(t, err)
	assert.Equal(t, []string{"KCA542Q", "KZZ310B"}, plates)
	assert.True(t, IsAllowed("kzz 310b"))
	assert.False(t, IsAllowed("KDA717B"))
}

func TestImportFromExcelEmptySheet(t *testing.T) {
	setupTestDB(t)
	require.NoError(t, Seed())

	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "PLATE")
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, f.SaveAs(path))

	_, err := ImportFromExcel(path)
	require.Error(t, err)

	// A bad file must not wipe the existing whitelist
	assert.True(t, IsAllowed("KCA542Q"))
}
