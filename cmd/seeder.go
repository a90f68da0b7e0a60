package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := initGorm(sqlDB)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		password := "admin123456"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), cfg.Security.BCryptCost)

		adminEmail := "admin@mail.com"
		adminName := "Platform Admin"
		var exists int
		row := db.Raw("SELECT 1 FROM admins WHERE email = ?", adminEmail).Row()
		if err := row.Scan(&exists); err == nil {
			fmt.Println("admin already exists:", adminEmail)
		} else {
			if err := db.Exec(
				"INSERT INTO admins (id, email, name, password_hash, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, true, now(), now())",
				uuid.NewString(), adminEmail, adminName, string(hash),
			).Error; err != nil {
				log.Fatalf("failed to insert admin: %v", err)
			}
			fmt.Println("Seeded admin:", adminEmail)
		}

		merchantName := "Demo Store"
		apiKey := "demo-" + uuid.NewString()
		webhookSecret := uuid.NewString()
		row = db.Raw("SELECT 1 FROM merchants WHERE business_name = ?", merchantName).Row()
		if err := row.Scan(&exists); err == nil {
			fmt.Println("demo merchant already exists:", merchantName)
		} else {
			upiDetails := `{"upi_id": "demostore@upi", "name": "Demo Store"}`
			bankDetails := `{"bank_name": "HDFC Bank", "account_name": "Demo Store Pvt Ltd", "account_number": "50100123456789", "ifsc_code": "HDFC0001234"}`
			if err := db.Exec(
				`INSERT INTO merchants
					(id, business_name, contact_phone, api_key, webhook_secret, callback_url,
					 is_active, upi_details, bank_details,
					 min_deposit, max_deposit, min_withdrawal, max_withdrawal,
					 created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, true, ?::jsonb, ?::jsonb, ?, ?, ?, ?, now(), now())`,
				uuid.NewString(), merchantName, "+919876543210",
				apiKey, webhookSecret, "http://localhost:9090/webhook",
				upiDetails, bankDetails,
				500, 300000, 1000, 1000000,
			).Error; err != nil {
				log.Fatalf("failed to insert demo merchant: %v", err)
			}
			fmt.Println("Seeded demo merchant:", merchantName)
			fmt.Println("  api_key:", apiKey)
			fmt.Println("  webhook_secret:", webhookSecret)
		}

		fmt.Println("Seed complete. Admin login:", adminEmail, "/", password)
	},
}
