package Parser

import "regexp"

// Field names in extraction order.
const (
	FieldDriver     = "driver"
	FieldCar        = "car"
	FieldLiters     = "liters"
	FieldAmount     = "amount"
	FieldType       = "type"
	FieldOdometer   = "odometer"
	FieldDepartment = "department"
)

// fieldRule pairs a field name with its ordered pattern cascade. The
// first matching pattern wins, so patterns run from explicit
// keyword+separator forms down to bare-value fallbacks.
type fieldRule struct {
	field    string
	patterns []*regexp.Regexp
}

// Go's regexp has no lookahead, so the stop keywords that the field
// boundary relies on are matched as a consumed non-capturing group
// after the capture. Only group 1 is ever used.
var fieldRules = []fieldRule{
	{FieldDriver, []*regexp.Regexp{
		regexp.MustCompile(`(?im)DRIVER\s*[:\-=]\s*(.+?)(?:\n|CAR|LITERS|LITRES|AMOUNT|TYPE|ODOMETER|$)`),
		regexp.MustCompile(`(?im)JINA\s*[:\-=]\s*(.+?)(?:\n|CAR|LITERS|LITRES|AMOUNT|TYPE|ODOMETER|$)`), // Swahili
		regexp.MustCompile(`(?im)NAME\s*[:\-=]\s*(.+?)(?:\n|CAR|LITERS|LITRES|AMOUNT|TYPE|ODOMETER|$)`),
	}},
	{FieldCar, []*regexp.Regexp{
		// Kenyan plates: 2-4 letters, 2-4 digits, optional trailing letter
		regexp.MustCompile(`(?im)CAR\s*[:\-=]\s*([A-Z]{2,4}\s*\d{2,4}\s*[A-Z]?)(?:\s|$|\n|LITERS|LITRES|AMOUNT|TYPE|ODOMETER)`),
		regexp.MustCompile(`(?im)REG\s*(?:NO)?\.?\s*[:\-=]\s*([A-Z]{2,4}\s*\d{2,4}\s*[A-Z]?)(?:\s|$|\n)`),
		regexp.MustCompile(`(?im)VEHICLE\s*[:\-=]\s*([A-Z]{2,4}\s*\d{2,4}\s*[A-Z]?)(?:\s|$|\n)`),
		regexp.MustCompile(`(?im)PLATE\s*[:\-=]\s*([A-Z]{2,4}\s*\d{2,4}\s*[A-Z]?)(?:\s|$|\n)`),
		regexp.MustCompile(`(?im)GARI\s*[:\-=]\s*([A-Z]{2,4}\s*\d{2,4}\s*[A-Z]?)(?:\s|$|\n)`), // Swahili
		// Fallback: plate-shaped token anywhere in the text
		regexp.MustCompile(`(?im)\b([A-Z]{2,4}\s*\d{3,4}\s*[A-Z])\b`),
	}},
	{FieldLiters, []*regexp.Regexp{
		regexp.MustCompile(`(?im)LITERS?\s*[:\-=]\s*([\d,\.]+)`),
		regexp.MustCompile(`(?im)LITRES?\s*[:\-=]\s*([\d,\.]+)`),
		regexp.MustCompile(`(?im)LTR?S?\s*[:\-=]\s*([\d,\.]+)`),
		regexp.MustCompile(`(?im)FUEL\s*[:\-=]\s*([\d,\.]+)\s*(?:L|LTR)`),
		regexp.MustCompile(`(?im)([\d,\.]+)\s*(?:LITERS?|LITRES?|LTR?S?)\b`),
	}},
	{FieldAmount, []*regexp.Regexp{
		regexp.MustCompile(`(?im)AMOUNT\s*[:\-=]\s*(?:KSH?\.?\s*)?([\d,\.]+)`),
		regexp.MustCompile(`(?im)COST\s*[:\-=]\s*(?:KSH?\.?\s*)?([\d,\.]+)`),
		regexp.MustCompile(`(?im)PRICE\s*[:\-=]\s*(?:KSH?\.?\s*)?([\d,\.]+)`),
		regexp.MustCompile(`(?im)KSH?\.?\s*[:\-=]?\s*([\d,\.]+)`),
		regexp.MustCompile(`(?im)TOTAL\s*[:\-=]\s*(?:KSH?\.?\s*)?([\d,\.]+)`),
		regexp.MustCompile(`(?im)PESA\s*[:\-=]\s*([\d,\.]+)`), // Swahili
	}},
	{FieldType, []*regexp.Regexp{
		regexp.MustCompile(`(?im)TYPE\s*[:\-=]\s*(DIESEL|PETROL|SUPER|V-?POWER|UNLEADED|AGO)`),
		regexp.MustCompile(`(?im)FUEL\s*TYPE\s*[:\-=]\s*(DIESEL|PETROL|SUPER|V-?POWER|UNLEADED|AGO)`),
		regexp.MustCompile(`(?im)\b(DIESEL|PETROL|SUPER|V-?POWER|UNLEADED|AGO)\b`),
	}},
	{FieldOdometer, []*regexp.Regexp{
		regexp.MustCompile(`(?im)ODOMETER\s*[:\-=]\s*([\d,\.]+)`),
		regexp.MustCompile(`(?im)ODO\s*[:\-=]\s*([\d,\.]+)`),
		regexp.MustCompile(`(?im)KM\s*[:\-=]\s*([\d,\.]+)`),
		regexp.MustCompile(`(?im)MILEAGE\s*[:\-=]\s*([\d,\.]+)`),
		regexp.MustCompile(`(?im)READING\s*[:\-=]\s*([\d,\.]+)`),
	}},
	{FieldDepartment, []*regexp.Regexp{
		regexp.MustCompile(`(?im)DEPARTMENT\s*[:\-=]\s*(.+?)(?:\n|DRIVER|CAR|LITERS|LITRES|AMOUNT|TYPE|ODOMETER|$)`),
		regexp.MustCompile(`(?im)DEPT\s*[:\-=]\s*(.+?)(?:\n|DRIVER|CAR|LITERS|LITRES|AMOUNT|TYPE|ODOMETER|$)`),
		regexp.MustCompile(`(?im)SECTION\s*[:\-=]\s*(.+?)(?:\n|DRIVER|CAR|LITERS|LITRES|AMOUNT|TYPE|ODOMETER|$)`),
	}},
}

// ValidFuelTypes is the canonical set after normalization. AGO is
// aliased to DIESEL before this check.
var ValidFuelTypes = map[string]bool{
	"DIESEL":   true,
	"PETROL":   true,
	"SUPER":    true,
	"V-POWER":  true,
	"UNLEADED": true,
	"AGO":      true,
}

// platePattern is the loose Kenyan plate shape used for the
// warn-only format check.
var platePattern = regexp.MustCompile(`(?i)^[A-Z]{2,3}\s*\d{2,4}\s*[A-Z]{0,3}$`)
