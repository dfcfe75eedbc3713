package Models

// FuelReport is the transient record built from one inbound message.
// JSON tags match the workbook/state-store field names so records
// round-trip between the pipeline, the approval store and the
// exporters without translation.
type FuelReport struct {
	Datetime    string  `json:"datetime"`
	Department  string  `json:"department"`
	Driver      string  `json:"driver"`
	Car         string  `json:"car"`
	Liters      float64 `json:"liters"`
	Amount      float64 `json:"amount"`
	FuelType    string  `json:"type"`
	Odometer    int     `json:"odometer"`
	Sender      string  `json:"sender"`
	SenderPhone string  `json:"sender_phone"`
	RawMessage  string  `json:"raw_message"`
}

// MissingFields lists the human-readable labels of required fields
// that are empty. All 7 must be present before a report is accepted.
func (r *FuelReport) MissingFields() []string {
	var missing []string
	if r.Department == "" {
		missing = append(missing, "DEPARTMENT")
	}
	if r.Driver == "" {
		missing = append(missing, "DRIVER")
	}
	if r.Car == "" {
		missing = append(missing, "CAR/VEHICLE")
	}
	if r.Liters == 0 {
		missing = append(missing, "LITERS")
	}
	if r.Amount == 0 {
		missing = append(missing, "AMOUNT")
	}
	if r.FuelType == "" {
		missing = append(missing, "TYPE (DIESEL/PETROL)")
	}
	if r.Odometer == 0 {
		missing = append(missing, "ODOMETER")
	}
	return missing
}
