package Sheets

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"FuelBot/Exporter"
	"FuelBot/Fleet"
	"FuelBot/Models"

	"github.com/golang-jwt/jwt/v4"
)

const (
	apiBase    = "https://sheets.googleapis.com/v4/spreadsheets"
	tokenScope = "https://www.googleapis.com/auth/spreadsheets"
)

// Client talks to the Google Sheets REST API with a service account.
// The access token is minted locally by signing a JWT with the service
// account key, so no SDK is needed.
type Client struct {
	http          *http.Client
	spreadsheetID string
	worksheet     string

	email    string
	key      *rsa.PrivateKey
	tokenURI string

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// NewFromEnv builds a client from GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_SERVICE_ACCOUNT_JSON plus SHEETS_SPREADSHEET_ID. Returns an
// error when credentials are absent; the caller treats that as
// "sheets disabled".
func NewFromEnv() (*Client, error) {
	var raw []byte
	if file := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading service account file: %w", err)
		}
		raw = data
	} else if inline := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"); inline != "" {
		raw = []byte(inline)
	} else {
		return nil, fmt.Errorf("google credentials not found, set GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON")
	}

	var sa serviceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("parsing service account: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	spreadsheetID := os.Getenv("SHEETS_SPREADSHEET_ID")
	if spreadsheetID == "" {
		return nil, fmt.Errorf("SHEETS_SPREADSHEET_ID not set")
	}
	worksheet := os.Getenv("SHEETS_WORKSHEET")
	if worksheet == "" {
		worksheet = "FUEL RECORDS"
	}
	tokenURI := sa.TokenURI
	if tokenURI == "" {
		tokenURI = "https://oauth2.googleapis.com/token"
	}

	return &Client{
		http:          &http.Client{Timeout: 30 * time.Second},
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
		email:         sa.ClientEmail,
		key:           key,
		tokenURI:      tokenURI,
	}, nil
}

func (c *Client) token() (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   c.email,
		"scope": tokenScope,
		"aud":   c.tokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("signing token assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	resp, err := c.http.PostForm(c.tokenURI, form)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange failed (%d): %s", resp.StatusCode, body)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	c.accessToken = out.AccessToken
	c.tokenExpiry = now.Add(time.Duration(out.ExpiresIn-60) * time.Second)
	return c.accessToken, nil
}

func (c *Client) rangeRef(a1 string) string {
	return url.PathEscape(fmt.Sprintf("'%s'!%s", c.worksheet, a1))
}

func (c *Client) do(method, endpoint string, payload interface{}, out interface{}) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sheets api %s %s: %d %s", method, endpoint, resp.StatusCode, data)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

type valueRange struct {
	Values [][]interface{} `json:"values"`
}

func (c *Client) getValues(a1 string) ([][]interface{}, error) {
	endpoint := fmt.Sprintf("%s/%s/values/%s", apiBase, c.spreadsheetID, c.rangeRef(a1))
	var out valueRange
	if err := c.do(http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Values, nil
}

// EnsureHeaders writes the column header row when it is missing or
// differs from the workbook layout.
func (c *Client) EnsureHeaders() error {
	existing, err := c.getValues("A1:Z1")
	if err != nil {
		return err
	}
	match := len(existing) > 0 && len(existing[0]) == len(Exporter.Columns)
	if match {
		for i, col := range Exporter.Columns {
			if !strings.EqualFold(fmt.Sprint(existing[0][i]), col) {
				match = false
				break
			}
		}
	}
	if match {
		return nil
	}
	row := make([]interface{}, len(Exporter.Columns))
	for i, col := range Exporter.Columns {
		row[i] = col
	}
	endpoint := fmt.Sprintf("%s/%s/values/%s?valueInputOption=USER_ENTERED", apiBase, c.spreadsheetID, c.rangeRef("A1"))
	return c.do(http.MethodPut, endpoint, valueRange{Values: [][]interface{}{row}}, nil)
}

func sheetRow(record Models.FuelReport) []interface{} {
	raw := record.RawMessage
	if len(raw) > 500 {
		raw = raw[:500]
	}
	return []interface{}{
		record.Datetime, record.Department, record.Driver, record.Car,
		record.Liters, record.Amount, record.FuelType, record.Odometer,
		record.Sender, raw,
	}
}

// AppendRecord appends one row after the current data.
func (c *Client) AppendRecord(record Models.FuelReport) error {
	endpoint := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=USER_ENTERED", apiBase, c.spreadsheetID, c.rangeRef("A1"))
	return c.do(http.MethodPost, endpoint, valueRange{Values: [][]interface{}{sheetRow(record)}}, nil)
}

// UpdateRecord rewrites the row matched by original datetime (col A)
// and plate (col D). Returns false when no row matches.
func (c *Client) UpdateRecord(originalDatetime, originalCar string, record Models.FuelReport) (bool, error) {
	values, err := c.getValues("A1:J")
	if err != nil {
		return false, err
	}
	normalized := Fleet.NormalizePlate(originalCar)
	target := 0
	for i, row := range values {
		if i == 0 || len(row) < 4 {
			continue
		}
		if fmt.Sprint(row[0]) == originalDatetime && Fleet.NormalizePlate(fmt.Sprint(row[3])) == normalized {
			target = i + 1
			break
		}
	}
	if target == 0 {
		return false, nil
	}
	a1 := fmt.Sprintf("A%d:J%d", target, target)
	endpoint := fmt.Sprintf("%s/%s/values/%s?valueInputOption=USER_ENTERED", apiBase, c.spreadsheetID, c.rangeRef(a1))
	if err := c.do(http.MethodPut, endpoint, valueRange{Values: [][]interface{}{sheetRow(record)}}, nil); err != nil {
		return false, err
	}
	return true, nil
}

// AllRecords fetches every data row, for the fallback read path.
func (c *Client) AllRecords() ([]Models.FuelReport, error) {
	values, err := c.getValues("A1:J")
	if err != nil {
		return nil, err
	}
	var records []Models.FuelReport
	for i, row := range values {
		if i == 0 {
			continue
		}
		cell := func(j int) string {
			if j < len(row) {
				return fmt.Sprint(row[j])
			}
			return ""
		}
		liters, _ := strconv.ParseFloat(strings.ReplaceAll(cell(4), ",", ""), 64)
		amount, _ := strconv.ParseFloat(strings.ReplaceAll(cell(5), ",", ""), 64)
		odoFloat, _ := strconv.ParseFloat(strings.ReplaceAll(cell(7), ",", ""), 64)
		records = append(records, Models.FuelReport{
			Datetime:   cell(0),
			Department: cell(1),
			Driver:     cell(2),
			Car:        cell(3),
			Liters:     liters,
			Amount:     amount,
			FuelType:   cell(6),
			Odometer:   int(odoFloat),
			Sender:     cell(8),
			RawMessage: cell(9),
		})
	}
	return records, nil
}
