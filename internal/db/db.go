package db

import (
	"log"
	"os"
	"uptree/internal/models"
	"uptree/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=uptree port=5432 sslmode=disable"
	}

	var err error
	// TranslateError turns driver duplicate-key errors into
	// gorm.ErrDuplicatedKey, which the tree store relies on.
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	// Auto Migrate
	err = DB.AutoMigrate(
		&models.User{},
		&models.Plan{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	seedPlans()
	seedAdmin()
}

func seedPlans() {
	var count int64
	DB.Model(&models.Plan{}).Count(&count)
	if count > 0 {
		return
	}

	plans := []models.Plan{
		{Name: "Silver", Description: "Entry plan, two direct slots", PriceCents: 9900, ReferralBonus: 500, PairBonus: 300},
		{Name: "Gold", Description: "Standard plan", PriceCents: 29900, ReferralBonus: 1500, PairBonus: 1000},
		{Name: "Diamond", Description: "Top tier plan", PriceCents: 99900, ReferralBonus: 5000, PairBonus: 3500},
	}

	for _, plan := range plans {
		if err := DB.Create(&plan).Error; err != nil {
			log.Printf("Failed to create plan %s: %v", plan.Name, err)
		}
	}
	log.Println("Default plans created")
}

// seedAdmin makes sure at least one administrator exists; the earliest admin
// doubles as the tree's placement anchor.
func seedAdmin() {
	var count int64
	DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count > 0 {
		return
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	admin := models.User{
		Username:     "admin",
		Password:     hash,
		FullName:     "Administrator",
		Role:         models.RoleAdmin,
		ReferralCode: utils.GenerateReferralCode(),
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.Printf("Admin user created (id=%d)", admin.ID)
}
