package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample instrumentalists and service events for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			for _, table := range []string{"instrumentalist_payments", "service_events", "instrumentalists"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing payout data")
		}

		instrumentalists := []struct {
			Name, Instrument, Method string
			MomoNumber, MomoProvider string
			BankAccount, BankName    string
		}{
			{Name: "Kwame Mensah", Instrument: "keyboard", Method: "mobile_money", MomoNumber: "0241234567", MomoProvider: "MTN"},
			{Name: "Ama Owusu", Instrument: "bass guitar", Method: "bank", BankAccount: "1020304050", BankName: "GCB Bank"},
			{Name: "Kofi Boateng", Instrument: "drums", Method: "cash"},
			{Name: "Yaw Asante", Instrument: "saxophone", Method: "mobile_money"},
		}

		for _, in := range instrumentalists {
			var exists int
			if err := db.Raw("SELECT 1 FROM instrumentalists WHERE name = ?", in.Name).Row().Scan(&exists); err == nil {
				fmt.Println("instrumentalist already exists:", in.Name)
				continue
			}

			if err := db.Exec(`INSERT INTO instrumentalists
				(name, instrument, is_active, preferred_payout_method, mobile_money_number, mobile_money_provider,
				 mobile_money_name, bank_account_number, bank_name, bank_account_name, created_at, updated_at)
				VALUES (?, ?, true, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), now(), now())`,
				in.Name, in.Instrument, in.Method,
				in.MomoNumber, in.MomoProvider, momoName(in.MomoNumber, in.Name),
				in.BankAccount, in.BankName, bankName(in.BankAccount, in.Name),
			).Error; err != nil {
				log.Fatalf("failed to insert instrumentalist %s: %v", in.Name, err)
			}
			fmt.Println("Seeded instrumentalist:", in.Name)
		}

		services := []struct {
			Date, Type, Title string
		}{
			{"2025-01-05", "sunday_service", "First Sunday Service"},
			{"2025-01-12", "sunday_service", "Second Sunday Service"},
			{"2025-01-17", "special_event", "Youth Worship Night"},
		}

		for _, s := range services {
			var exists int
			if err := db.Raw("SELECT 1 FROM service_events WHERE service_date = ? AND service_type = ?", s.Date, s.Type).Row().Scan(&exists); err == nil {
				continue
			}
			if err := db.Exec("INSERT INTO service_events (service_date, service_type, title, created_at) VALUES (?, ?, ?, now())", s.Date, s.Type, s.Title).Error; err != nil {
				log.Fatalf("failed to insert service event %s: %v", s.Title, err)
			}
			fmt.Printf("Seeded service event: %s (%s)\n", s.Title, s.Date)
		}

		fmt.Println("Payout sample data seeded successfully")
	},
}

func momoName(number, name string) string {
	if number == "" {
		return ""
	}
	return name
}

func bankName(account, name string) string {
	if account == "" {
		return ""
	}
	return name
}
