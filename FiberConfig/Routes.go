package FiberConfig

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"

	"FuelBot/Controllers"
	"FuelBot/Models"
	"FuelBot/middleware"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Webhook endpoints are called by the Evolution server, no auth
	app.Post("/webhook/evolution", Controllers.EvolutionWebhook)
	app.Get("/health", Controllers.WebhookHealth)

	// Auth
	app.Post("/api/Login", Controllers.Login)
	app.Get("/api/validate-token", middleware.Verify(1), Controllers.ValidateToken)
	app.Get("/api/User", middleware.Verify(1), Controllers.CurrentUser)
	app.Use("/api/Logout", Controllers.Logout)

	// Dashboard API
	api := app.Group("/api", middleware.Verify(1))
	api.Get("/records", Controllers.GetFuelRecords)
	api.Get("/stats", Controllers.GetStats)
	api.Get("/errors", Controllers.GetValidationErrors)
	api.Get("/efficiency/:plate", Controllers.GetVehicleEfficiency)

	// Approval decisions need elevated permission, same as group admins
	api.Get("/approvals", Controllers.GetPendingApprovals)
	api.Post("/approvals/:id/approve", middleware.Verify(3), Controllers.ApproveRecord)
	api.Post("/approvals/:id/reject", middleware.Verify(3), Controllers.RejectRecord)

	// Fleet whitelist management
	api.Get("/fleet", Controllers.GetFleet)
	api.Post("/fleet", middleware.Verify(3), Controllers.AddFleetVehicle)
	api.Delete("/fleet/:plate", middleware.Verify(3), Controllers.RemoveFleetVehicle)

	// Manual history recovery, requires a live WhatsApp session
	api.Post("/sync", middleware.Verify(3), middleware.CheckEvolutionMiddleware(), Controllers.TriggerSync)
}

func FiberConfig() {
	fmt.Println("Server Up...")
	app := fiber.New()
	app.Use(middleware.RequestLogger())
	app.Use(middleware.ErrorLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression, // 2
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true, // Important for cookies
		MaxAge:           300,
	}))

	SetupRoutes(app, Models.DB)
	app.Listen(":3001")
}
