package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"backoffice-chat/config"
	"backoffice-chat/pkg/database"
)

const usage = `
Backoffice Chat - Database CLI Tool

Usage:
  migrate [command]

Commands:
  up          Create chat tables and indexes
  status      Show database connection and table status

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch flag.Arg(0) {
	case "up":
		log.Println("Running migrations...")
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	case "status":
		if err := database.HealthCheck(); err != nil {
			log.Fatalf("Database connection failed: %v", err)
		}
		log.Println("Database connection: OK")

		tables := []string{"conversations", "participants", "messages", "review_pins", "review_pin_links"}
		for _, table := range tables {
			if db.Migrator().HasTable(table) {
				log.Printf("Table %-20s exists", table)
			} else {
				log.Printf("Table %-20s does not exist", table)
			}
		}
	default:
		fmt.Printf("Unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
}
