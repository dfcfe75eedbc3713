package middleware

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"FuelBot/Constants"
)

// CheckEvolutionMiddleware blocks endpoints that need a live WhatsApp
// session when the Evolution instance is not connected.
func CheckEvolutionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		client := &http.Client{}

		url := Constants.EvolutionBaseURL + "/instance/connectionState/" + Constants.EvolutionInstance
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create request",
			})
		}
		req.Header.Add("Content-Type", "application/json")
		req.Header.Add("apikey", Constants.EvolutionAPIKey)

		res, err := client.Do(req)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Failed to check connection status",
			})
		}
		defer res.Body.Close()

		body, err := io.ReadAll(res.Body)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to read response",
			})
		}

		var output struct {
			Instance struct {
				InstanceName string `json:"instanceName"`
				State        string `json:"state"`
			} `json:"instance"`
		}
		if err = json.Unmarshal(body, &output); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to parse response",
			})
		}

		if output.Instance.State != "open" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "WhatsApp instance is not connected",
			})
		}

		return c.Next()
	}
}
