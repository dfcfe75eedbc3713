package email

import (
	"errors"

	"FuelBot/Constants"
	"FuelBot/Models"
)

// AlertMailer sends efficiency anomaly alerts to the configured
// operations address.
type AlertMailer struct{}

// Enabled reports whether SMTP and a recipient are configured.
func (AlertMailer) Enabled() bool {
	return Constants.AlertEmail != "" && Constants.EmailConfig.SMTPServer != ""
}

func (m AlertMailer) SendAlert(subject, body string) error {
	if !m.Enabled() {
		return errors.New("email alerts not configured")
	}
	return SendEmail(Constants.EmailConfig, Models.EmailMessage{
		To:      []string{Constants.AlertEmail},
		Subject: subject,
		Body:    body,
	})
}
