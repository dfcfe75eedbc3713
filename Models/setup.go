package Models

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the database and runs migrations. SQLite is the
// default; set DB_DRIVER=mysql with the usual DB_* variables to run
// against MySQL instead.
func Connect() {
	var (
		connection *gorm.DB
		err        error
	)

	if os.Getenv("DB_DRIVER") == "mysql" {
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			envOr("DB_PORT", "3306"),
			os.Getenv("DB_NAME"),
		)
		connection, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	} else {
		connection, err = gorm.Open(sqlite.Open(envOr("DB_PATH", "database.db")), &gorm.Config{})
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	DB = connection

	if err := DB.AutoMigrate(
		&FuelRecord{},
		&FleetVehicle{},
		&User{},
	); err != nil {
		log.Println(err)
	}

	seedAdminUser()
}

// seedAdminUser creates the dashboard admin account on first boot.
func seedAdminUser() {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}

	var count int64
	DB.Model(&User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing admin password: %v", err)
		return
	}
	admin := User{
		Email:      email,
		Name:       "Admin",
		Password:   hash,
		Permission: 4,
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("Error creating admin user: %v", err)
	} else {
		log.Printf("Created admin user %s", email)
	}
}

// LastOdometer returns the highest-dated odometer reading recorded for
// a plate, or nil when the car has no accepted records yet. The
// database is the authoritative history for monotonicity checks.
func LastOdometer(plate string) *int {
	var record FuelRecord
	err := DB.Where("car = ?", plate).
		Order("datetime DESC, id DESC").
		First(&record).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("Database error getting last odometer for %s: %v", plate, err)
		}
		return nil
	}
	odo := record.Odometer
	return &odo
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
