package Constants

import (
	"encoding/json"
	"os"

	"FuelBot/Models"

	"github.com/joho/godotenv"
)

// Evolution API connection. The instance name identifies the WhatsApp
// session on the Evolution server.
var (
	EvolutionBaseURL  string
	EvolutionAPIKey   string
	EvolutionInstance string
)

// FuelGroupJID is the WhatsApp group where fuel reports arrive and
// confirmations/alerts are posted back.
var FuelGroupJID string

// DataDir holds the JSON state stores and the message inbox folders.
var DataDir string

// AlertEmail receives fuel efficiency anomaly emails.
var AlertEmail string

var EmailConfig Models.EmailConfig

// fileConfig mirrors the optional config.json, read before the
// environment so env vars always win.
type fileConfig struct {
	EvolutionAPIURL   string `json:"evolution_api_url"`
	EvolutionAPIKey   string `json:"evolution_api_key"`
	EvolutionInstance string `json:"evolution_instance"`
	FuelGroupJID      string `json:"fuel_group_jid"`
	DataDir           string `json:"data_dir"`
	AlertEmail        string `json:"alert_email"`
	SMTPServer        string `json:"smtp_server"`
	SMTPUsername      string `json:"smtp_username"`
	SMTPPassword      string `json:"smtp_password"`
	SMTPFrom          string `json:"smtp_from"`
}

func loadConfigFile() fileConfig {
	var cfg fileConfig
	path := getEnv("CONFIG_FILE", "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	json.Unmarshal(data, &cfg)
	return cfg
}

func init() {
	// .env is optional, real deployments set the environment directly
	godotenv.Load()
	cfg := loadConfigFile()

	EvolutionBaseURL = pick(os.Getenv("EVOLUTION_API_URL"), cfg.EvolutionAPIURL, "http://localhost:8080")
	EvolutionAPIKey = pick(os.Getenv("EVOLUTION_API_KEY"), cfg.EvolutionAPIKey, "")
	EvolutionInstance = pick(os.Getenv("EVOLUTION_INSTANCE"), cfg.EvolutionInstance, "fuelbot")
	FuelGroupJID = pick(os.Getenv("FUEL_GROUP_JID"), cfg.FuelGroupJID, "")
	DataDir = pick(os.Getenv("DATA_DIR"), cfg.DataDir, "data")
	AlertEmail = pick(os.Getenv("ALERT_EMAIL"), cfg.AlertEmail, "")

	EmailConfig = Models.EmailConfig{
		SMTPServer: pick(os.Getenv("SMTP_SERVER"), cfg.SMTPServer, ""),
		SMTPPort:   587,
		Username:   pick(os.Getenv("SMTP_USERNAME"), cfg.SMTPUsername, ""),
		Password:   pick(os.Getenv("SMTP_PASSWORD"), cfg.SMTPPassword, ""),
		FromEmail:  pick(os.Getenv("SMTP_FROM"), cfg.SMTPFrom, ""),
		FromName:   "FuelBot Alerts",
		TLSEnabled: true,
	}
}

// Validation thresholds.
const (
	CarCooldownHours = 12

	// Fuel efficiency thresholds in km per liter. The high threshold is
	// compared with a strict >, exactly 20.0 km/L does not alert.
	EfficiencyAlertLow  = 4.0
	EfficiencyAlertHigh = 20.0
	EfficiencyGoodMin   = 6.0
	EfficiencyGoodMax   = 12.0

	// Unusually large fill-ups get a warning but still go through.
	LitersWarnThreshold = 500.0
)

// Retention caps for the JSON state stores.
const (
	MaxValidationErrors  = 1000
	MaxPendingApprovals  = 500
	ApprovalKeepDecided  = 300
	MaxEfficiencyHistory = 5000
	MaxConfirmations     = 500
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
