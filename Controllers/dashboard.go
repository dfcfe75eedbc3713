package Controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"FuelBot/Fleet"
	"FuelBot/Models"
	"FuelBot/State"
	"FuelBot/Summary"
)

// GetFuelRecords returns stored records, newest first. Supports
// ?car=KCA542Q and ?limit=N.
func GetFuelRecords(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := Models.DB.Model(&Models.FuelRecord{}).Order("datetime DESC, id DESC")
	if car := c.Query("car"); car != "" {
		query = query.Where("car = ?", Fleet.NormalizePlate(car))
	}

	var records []Models.FuelRecord
	if err := query.Limit(limit).Find(&records).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error retrieving fuel records",
		})
	}
	return c.JSON(fiber.Map{
		"records": records,
		"count":   len(records),
	})
}

// GetStats aggregates the workbook over ?days=N (default 7). When the
// workbook is unreadable the Google Sheets copy serves as fallback.
func GetStats(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)
	if days <= 0 || days > 365 {
		days = 7
	}
	stats, err := Summary.FromWorkbook(exporter, days)
	if err != nil {
		if sheetsClient == nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Error reading fuel records workbook",
			})
		}
		records, sheetsErr := sheetsClient.AllRecords()
		if sheetsErr != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Error reading fuel records workbook",
			})
		}
		stats = Summary.Calculate(records, days)
	}
	if stats == nil {
		return c.JSON(fiber.Map{
			"days":    days,
			"records": 0,
		})
	}
	return c.JSON(stats)
}

// GetPendingApprovals lists undecided approval requests.
func GetPendingApprovals(c *fiber.Ctx) error {
	approvals, err := stateStore.PendingApprovals()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error reading approvals",
		})
	}
	return c.JSON(fiber.Map{
		"approvals": approvals,
		"count":     len(approvals),
	})
}

// ApproveRecord approves a pending record and pushes it through the
// pipeline, same as the !approve group command.
func ApproveRecord(c *fiber.Ctx) error {
	id := c.Params("id")
	approval, err := stateStore.Approve(id)
	if err != nil {
		return approvalError(c, id, err)
	}
	result := pipeline.ProcessApproved(approval)
	return c.JSON(fiber.Map{
		"message": "Approval processed",
		"id":      id,
		"status":  result.Status,
		"reason":  result.Reason,
	})
}

// RejectRecord rejects a pending record.
func RejectRecord(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := stateStore.Reject(id); err != nil {
		return approvalError(c, id, err)
	}
	return c.JSON(fiber.Map{
		"message": "Approval rejected",
		"id":      id,
	})
}

func approvalError(c *fiber.Ctx, id string, err error) error {
	if errors.Is(err, State.ErrApprovalNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Approval " + id + " not found",
		})
	}
	if errors.Is(err, State.ErrAlreadyProcessed) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Approval " + id + " already processed",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": err.Error(),
	})
}

// GetFleet lists whitelisted plates.
func GetFleet(c *fiber.Ctx) error {
	plates, err := Fleet.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error reading fleet list",
		})
	}
	return c.JSON(fiber.Map{
		"vehicles": plates,
		"count":    len(plates),
	})
}

type fleetInput struct {
	Plate string `json:"plate" validate:"required,min=5"`
}

// AddFleetVehicle whitelists a plate.
func AddFleetVehicle(c *fiber.Ctx) error {
	var input fleetInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Plate is required",
		})
	}
	plate := Fleet.NormalizePlate(input.Plate)
	if err := Fleet.Add(plate); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Vehicle added",
		"plate":   plate,
	})
}

// RemoveFleetVehicle removes a plate from the whitelist.
func RemoveFleetVehicle(c *fiber.Ctx) error {
	plate := Fleet.NormalizePlate(c.Params("plate"))
	if err := Fleet.Remove(plate); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Vehicle removed",
		"plate":   plate,
	})
}

// GetVehicleEfficiency returns efficiency stats for one plate over
// ?days=N (default 30).
func GetVehicleEfficiency(c *fiber.Ctx) error {
	plate := Fleet.NormalizePlate(c.Params("plate"))
	days := c.QueryInt("days", 30)
	if days <= 0 || days > 365 {
		days = 30
	}
	stats, err := stateStore.VehicleEfficiencyStats(plate, days)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error reading efficiency history",
		})
	}
	if stats.Records == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "No efficiency records for " + plate,
		})
	}
	return c.JSON(stats)
}

// GetValidationErrors returns recent validation failures.
func GetValidationErrors(c *fiber.Ctx) error {
	errs, err := stateStore.ValidationErrors()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error reading validation errors",
		})
	}
	limit := c.QueryInt("limit", 100)
	if limit > 0 && len(errs) > limit {
		errs = errs[len(errs)-limit:]
	}
	return c.JSON(fiber.Map{
		"errors": errs,
		"count":  len(errs),
	})
}
