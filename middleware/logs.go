package middleware

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"

	"FuelBot/Models"
)

// LogConfig controls the request logging middleware.
type LogConfig struct {
	// Console mirrors entries to the standard logger
	Console bool
	// File appends entries to LogFilePath
	File        bool
	LogFilePath string
	// Format is "json" or "text"
	Format string
	// IncludeBody captures non-GET request bodies
	IncludeBody bool
	// SkipPaths are not logged at all
	SkipPaths []string
}

// LogData is one request log entry.
type LogData struct {
	Timestamp     time.Time     `json:"timestamp"`
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	URL           string        `json:"url"`
	Status        int           `json:"status"`
	Latency       time.Duration `json:"latency"`
	IP            string        `json:"ip"`
	UserAgent     string        `json:"user_agent"`
	RequestID     string        `json:"request_id"`
	RequestBody   interface{}   `json:"request_body,omitempty"`
	Error         string        `json:"error,omitempty"`
	UserID        interface{}   `json:"user_id"`
	Username      string        `json:"username"`
	ContentLength int64         `json:"content_length"`
}

// DefaultLogConfig logs JSON to console and logs/requests.log, skipping
// the health endpoint the Evolution server polls.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Console:     true,
		File:        true,
		LogFilePath: "logs/requests.log",
		Format:      "json",
		SkipPaths:   []string{"/health", "/metrics"},
	}
}

// LoggingMiddleware logs every request per the given configuration.
func LoggingMiddleware(config ...LogConfig) fiber.Handler {
	cfg := DefaultLogConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.File {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0755); err != nil {
			log.Printf("Error creating logs directory: %v", err)
		}
	}

	return func(c *fiber.Ctx) error {
		for _, skip := range cfg.SkipPaths {
			if c.Path() == skip {
				return c.Next()
			}
		}

		start := time.Now()

		var requestBody interface{}
		if cfg.IncludeBody && c.Method() != fiber.MethodGet {
			if body := c.Body(); len(body) > 0 {
				var parsed interface{}
				if err := json.Unmarshal(body, &parsed); err == nil {
					requestBody = parsed
				} else {
					requestBody = string(body)
				}
			}
		}

		err := c.Next()

		userID, username := requestUser(c)
		entry := LogData{
			Timestamp:     start,
			Method:        c.Method(),
			Path:          c.Path(),
			URL:           c.OriginalURL(),
			Status:        c.Response().StatusCode(),
			Latency:       time.Since(start),
			IP:            c.IP(),
			UserAgent:     c.Get("User-Agent"),
			RequestID:     c.Get("X-Request-ID"),
			RequestBody:   requestBody,
			UserID:        userID,
			Username:      username,
			ContentLength: int64(len(c.Response().Body())),
		}
		if err != nil {
			entry.Error = err.Error()
		}

		writeEntry(cfg, entry)
		return err
	}
}

// RequestLogger is the standard middleware stack entry: JSON logs to
// console and file.
func RequestLogger() fiber.Handler {
	return LoggingMiddleware(LogConfig{
		Console:     true,
		File:        true,
		LogFilePath: "logs/requests.log",
		Format:      "json",
		SkipPaths:   []string{"/health", "/metrics", "/static"},
	})
}

// ErrorLogger writes failed requests (an error or status >= 400) to a
// dedicated errors file, on top of whatever RequestLogger records.
func ErrorLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		if err == nil && c.Response().StatusCode() < 400 {
			return nil
		}

		userID, username := requestUser(c)
		entry := LogData{
			Timestamp: start,
			Method:    c.Method(),
			Path:      c.Path(),
			URL:       c.OriginalURL(),
			Status:    c.Response().StatusCode(),
			Latency:   time.Since(start),
			IP:        c.IP(),
			UserAgent: c.Get("User-Agent"),
			UserID:    userID,
			Username:  username,
		}
		if err != nil {
			entry.Error = err.Error()
		}

		data, _ := json.Marshal(entry)
		appendLine("logs/errors.log", string(data))
		return err
	}
}

// requestUser pulls the authenticated identity that Verify stored on
// the context, if any.
func requestUser(c *fiber.Ctx) (interface{}, string) {
	user := c.Locals("user")
	if user == nil {
		return nil, ""
	}
	if u, ok := user.(Models.User); ok {
		return u.ID, u.Name
	}
	if m, ok := user.(map[string]interface{}); ok {
		return m["id"], fmt.Sprintf("%v", m["name"])
	}
	return nil, ""
}

func writeEntry(cfg LogConfig, entry LogData) {
	var line string
	if cfg.Format == "json" {
		data, _ := json.Marshal(entry)
		line = string(data)
	} else {
		line = formatTextLog(entry)
	}

	if cfg.Console {
		log.Println(line)
	}
	if cfg.File {
		appendLine(cfg.LogFilePath, line)
	}
}

func formatTextLog(entry LogData) string {
	user := ""
	if entry.UserID != nil {
		user = fmt.Sprintf(" user:%v", entry.UserID)
	}
	return fmt.Sprintf("[%s] %s %s %d %s %s%s",
		entry.Timestamp.Format("2006-01-02 15:04:05"),
		entry.Method,
		entry.Path,
		entry.Status,
		entry.Latency,
		entry.IP,
		user,
	)
}

func appendLine(path, line string) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Error opening log file: %v", err)
		return
	}
	defer file.Close()

	if _, err := file.WriteString(line + "\n"); err != nil {
		log.Printf("Error writing to log file: %v", err)
	}
}
