package Models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FuelRecord is an accepted fuel report persisted to the database.
// Datetime keeps the original message receipt time in the
// YYYY-MM-DD-HH-MM format used across the workbook and sheets so edit
// approvals can match rows between stores.
type FuelRecord struct {
	gorm.Model
	Datetime   string         `json:"datetime" gorm:"size:32;index"`
	Department string         `json:"department" gorm:"size:64"`
	Driver     string         `json:"driver" gorm:"size:128"`
	Car        string         `json:"car" gorm:"size:32;not null;index"`
	Liters     float64        `json:"liters"`
	Amount     float64        `json:"amount"`
	FuelType   string         `json:"type" gorm:"column:type;size:32"`
	Odometer   int            `json:"odometer"`
	Sender     string         `json:"sender" gorm:"size:128"`
	RawMessage string         `json:"raw_message" gorm:"type:text"`
	Payload    datatypes.JSON `json:"payload,omitempty"`
}

func (FuelRecord) TableName() string {
	return "fuel_records"
}

// FleetVehicle mirrors the whitelist in the database so admin tooling
// can manage the fleet through the dashboard API as well.
type FleetVehicle struct {
	gorm.Model
	Plate string `json:"plate" gorm:"size:16;uniqueIndex;not null"`
}

type User struct {
	gorm.Model
	Email      string `json:"email" gorm:"size:128;uniqueIndex"`
	Name       string `json:"name" gorm:"size:128"`
	Password   []byte `json:"-"`
	Permission int    `json:"permission"`
}
