package Parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullMessage = `FUEL UPDATE
DEPARTMENT: LOGISTICS
DRIVER: John Kamau
CAR: KCA 542Q
LITERS: 45.5
AMOUNT: 7,500
TYPE: DIESEL
ODOMETER: 125,430`

func TestParseFullMessage(t *testing.T) {
	parser := NewFuelReportParser(false, nil)
	data, errs := parser.Parse(fullMessage)
	require.NotNil(t, data)
	assert.Empty(t, errs)

	assert.Equal(t, "LOGISTICS", data[FieldDepartment])
	assert.Equal(t, "John Kamau", data[FieldDriver])
	assert.Equal(t, "KCA 542Q", data[FieldCar])
	assert.Equal(t, "45.5", data[FieldLiters])
	assert.Equal(t, "7500", data[FieldAmount])
	assert.Equal(t, "DIESEL", data[FieldType])
	assert.Equal(t, "125430", data[FieldOdometer])
}

func TestParseFlexibleSeparators(t *testing.T) {
	parser := NewFuelReportParser(false, nil)

	for _, sep := range []string{":", "-", "="} {
		msg := "FUEL UPDATE\nDRIVER " + sep + " Mary Wanjiku\nCAR " + sep + " KBZ 123A\nLITERS " + sep + " 30\nAMOUNT " + sep + " 5000\nTYPE " + sep + " PETROL\nODOMETER " + sep + " 88000"
		data, _ := parser.Parse(msg)
		require.NotNil(t, data, "separator %q", sep)
		assert.Equal(t, "Mary Wanjiku", data[FieldDriver], "separator %q", sep)
		assert.Equal(t, "KBZ 123A", data[FieldCar], "separator %q", sep)
		assert.Equal(t, "PETROL", data[FieldType], "separator %q", sep)
	}
}

func TestParseSwahiliSynonyms(t *testing.T) {
	parser := NewFuelReportParser(false, nil)
	msg := `FUEL UPDATE
JINA: Peter Otieno
GARI: KDA 881C
LITERS: 40
PESA: 6000
TYPE: DIESEL
ODOMETER: 45200`
	data, _ := parser.Parse(msg)
	require.NotNil(t, data)
	assert.Equal(t, "Peter Otieno", data[FieldDriver])
	assert.Equal(t, "KDA 881C", data[FieldCar])
	assert.Equal(t, "6000", data[FieldAmount])
}

func TestParseSingleLineMessage(t *testing.T) {
	parser := NewFuelReportParser(false, nil)
	msg := "FUEL UPDATE DRIVER: JAMES CAR: KCB 402L LITERS: 52 AMOUNT: 8000 TYPE: DIESEL ODOMETER: 230400"
	data, _ := parser.Parse(msg)
	require.NotNil(t, data)
	assert.Equal(t, "James", data[FieldDriver])
	assert.Equal(t, "KCB 402L", data[FieldCar])
	assert.Equal(t, "230400", data[FieldOdometer])
}

func TestAGOAliasesToDiesel(t *testing.T) {
	parser := NewFuelReportParser(false, nil)
	msg := "FUEL UPDATE\nDRIVER: Ali\nCAR: KCA 542Q\nLITERS: 20\nAMOUNT: 3000\nTYPE: AGO\nODOMETER: 50000"
	data, _ := parser.Parse(msg)
	require.NotNil(t, data)
	assert.Equal(t, "DIESEL", data[FieldType])
}

func TestVPowerNormalization(t *testing.T) {
	assert.Equal(t, "V-POWER", CleanValue(FieldType, "VPOWER"))
	assert.Equal(t, "V-POWER", CleanValue(FieldType, "V POWER"))
	assert.Equal(t, "V-POWER", CleanValue(FieldType, "V-POWER"))
}

func TestDriverNameKeepsAccentedLetters(t *testing.T) {
	assert.Equal(t, "José Álvarez", CleanValue(FieldDriver, "josé álvarez"))
	assert.Equal(t, "Éloise Ng'ang'a", CleanValue(FieldDriver, "ÉLOISE NG'ANG'A"))
}

func TestCleanValueIdempotent(t *testing.T) {
	cases := map[string]string{
		FieldDriver:     "john   KAMAU",
		FieldDepartment: "logistics",
		FieldCar:        "kca  542q",
		FieldLiters:     "1,250.50",
		FieldAmount:     "7,500",
		FieldType:       "ago",
		FieldOdometer:   "125,430",
	}
	for field, raw := range cases {
		once := CleanValue(field, raw)
		twice := CleanValue(field, once)
		assert.Equal(t, once, twice, "cleaning %s not idempotent", field)
	}
}

func TestParseUnusableMessage(t *testing.T) {
	parser := NewFuelReportParser(false, nil)
	data, errs := parser.Parse("hello everyone, meeting at 3pm")
	assert.Nil(t, data)
	assert.NotEmpty(t, errs)
}

func TestStrictModeRejectsOnAnyError(t *testing.T) {
	parser := NewFuelReportParser(true, nil)
	// Missing odometer
	msg := "FUEL UPDATE\nDRIVER: Jane\nCAR: KCA 542Q\nLITERS: 30\nAMOUNT: 4500\nTYPE: PETROL"
	data, errs := parser.Parse(msg)
	assert.Nil(t, data)
	assert.NotEmpty(t, errs)
}

func TestLenientModeReturnsPartialData(t *testing.T) {
	parser := NewFuelReportParser(false, nil)
	msg := "FUEL UPDATE\nDRIVER: Jane\nCAR: KCA 542Q\nLITERS: 30"
	data, errs := parser.Parse(msg)
	require.NotNil(t, data)
	assert.Equal(t, "Jane", data[FieldDriver])
	assert.NotEmpty(t, errs)
}

func TestValidateWarnsOnHighLiters(t *testing.T) {
	parser := NewFuelReportParser(false, nil)
	msg := "FUEL UPDATE\nDRIVER: Jane\nCAR: KCA 542Q\nLITERS: 600\nAMOUNT: 90000\nTYPE: DIESEL\nODOMETER: 90000"
	data, errs := parser.Parse(msg)
	require.NotNil(t, data)
	found := false
	for _, e := range errs {
		if len(e) >= 8 && e[:8] == "Warning:" {
			found = true
		}
	}
	assert.True(t, found, "expected a liters warning, got %v", errs)
}

func TestParseFloatAndInt(t *testing.T) {
	assert.Equal(t, 7500.0, ParseFloat("7,500"))
	assert.Equal(t, 45.5, ParseFloat("45.5"))
	assert.Equal(t, 125430, ParseInt("125,430"))
	assert.Equal(t, 0, ParseInt("garbage"))
}
