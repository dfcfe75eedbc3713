package Parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"FuelBot/Constants"
)

// DefaultRequiredFields matches the parsing.requiredFields config
// default. Department is intentionally absent here, the full 7-field
// completeness check happens later in the pipeline.
var DefaultRequiredFields = []string{
	FieldDriver, FieldCar, FieldLiters, FieldAmount, FieldType, FieldOdometer,
}

// FuelReportParser extracts structured fields from free-text fuel
// report messages. Handles flexible field ordering, colon/dash/equals
// separators and English/Swahili keyword variants.
type FuelReportParser struct {
	strictMode     bool
	requiredFields []string
}

func NewFuelReportParser(strictMode bool, requiredFields []string) *FuelReportParser {
	if len(requiredFields) == 0 {
		requiredFields = DefaultRequiredFields
	}
	return &FuelReportParser{
		strictMode:     strictMode,
		requiredFields: requiredFields,
	}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Parse extracts fields from a message body.
//
// Returns the cleaned field map (string form, see CleanValue for the
// per-field normalization) and a list of errors/warnings. A nil map
// means the message is unusable: strict mode with any error, or no
// recognizable fields at all. In lenient mode a map with at least 2
// fields is returned even when required fields are missing, the
// caller owns the final completeness check.
func (p *FuelReportParser) Parse(body string) (map[string]string, []string) {
	var errors []string
	data := map[string]string{}

	// Normalized variant: uppercase, collapsed whitespace
	text := strings.ToUpper(strings.TrimSpace(body))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	flat := whitespaceRe.ReplaceAllString(text, " ")

	// The newline-preserved variant is tried first since the boundary
	// patterns key off line breaks.
	for _, rule := range fieldRules {
		value := extractField(text, rule.patterns)
		if value == "" {
			value = extractField(flat, rule.patterns)
		}

		if value != "" {
			data[rule.field] = CleanValue(rule.field, value)
		} else if p.isRequired(rule.field) {
			errors = append(errors, fmt.Sprintf("Missing required field: %s", rule.field))
		}
	}

	errors = append(errors, validate(data)...)

	switch {
	case p.strictMode && len(errors) > 0:
		return nil, errors
	case !p.strictMode && len(data) >= 2:
		// Lenient mode: accept partial data with at least 2 fields
		return data, errors
	case len(errors) >= len(p.requiredFields) && len(data) == 0:
		return nil, errors
	}
	return data, errors
}

func (p *FuelReportParser) isRequired(field string) bool {
	for _, f := range p.requiredFields {
		if f == field {
			return true
		}
	}
	return false
}

// extractField tries each pattern until one matches.
func extractField(text string, patterns []*regexp.Regexp) string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// CleanValue normalizes a raw extracted value for its field. Cleaning
// is idempotent: feeding a cleaned value back in returns it unchanged.
func CleanValue(field, value string) string {
	value = strings.TrimSpace(value)

	switch field {
	case FieldDriver:
		return titleCase(strings.Join(strings.Fields(value), " "))
	case FieldDepartment:
		return strings.ToUpper(strings.Join(strings.Fields(value), " "))
	case FieldCar:
		return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToUpper(value), " "))
	case FieldLiters, FieldAmount:
		if f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return value
	case FieldType:
		fuelType := strings.TrimSpace(strings.ToUpper(value))
		if fuelType == "VPOWER" || fuelType == "V POWER" {
			fuelType = "V-POWER"
		}
		if fuelType == "AGO" {
			fuelType = "DIESEL" // AGO is diesel
		}
		return fuelType
	case FieldOdometer:
		if f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64); err == nil {
			return strconv.Itoa(int(f))
		}
		return value
	}
	return value
}

// validate flags out-of-range values. Entries prefixed "Warning:" are
// soft, everything else is a hard error in strict mode.
func validate(data map[string]string) []string {
	var errors []string

	if v, ok := data[FieldLiters]; ok {
		if liters, err := strconv.ParseFloat(v, 64); err == nil {
			if liters <= 0 {
				errors = append(errors, fmt.Sprintf("Invalid liters value: %v (must be positive)", liters))
			} else if liters > Constants.LitersWarnThreshold {
				errors = append(errors, fmt.Sprintf("Warning: unusually high liters: %v", liters))
			}
		}
	}

	if v, ok := data[FieldAmount]; ok {
		if amount, err := strconv.ParseFloat(v, 64); err == nil && amount <= 0 {
			errors = append(errors, fmt.Sprintf("Invalid amount value: %v (must be positive)", amount))
		}
	}

	if v, ok := data[FieldType]; ok {
		if !ValidFuelTypes[v] {
			errors = append(errors, fmt.Sprintf("Unknown fuel type: %s", v))
		}
	}

	if v, ok := data[FieldOdometer]; ok {
		if odo, err := strconv.Atoi(v); err == nil && odo <= 0 {
			errors = append(errors, fmt.Sprintf("Invalid odometer value: %d (must be positive)", odo))
		}
	}

	// Plate shape deviations never block processing on their own
	if v, ok := data[FieldCar]; ok {
		if !platePattern.MatchString(v) {
			errors = append(errors, fmt.Sprintf("Warning: unusual plate format: %s", v))
		}
	}

	return errors
}

// ParseFloat reads a numeric field value, tolerating thousands
// separators left in raw input.
func ParseFloat(value string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(value), ",", ""), 64)
	return f
}

// ParseInt reads an integer field value the same way.
func ParseInt(value string) int {
	return int(ParseFloat(value))
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		// Rune-aware so accented names keep their first letter intact
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
