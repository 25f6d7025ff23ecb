// Command main runs the database seeder for Tastebook.
package main

import (
	"flag"
	"log"

	"tastebook/internal/config"
	"tastebook/internal/database"
	"tastebook/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numRecipes := flag.Int("recipes", 200, "Number of recipes to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d recipes, clean=%v\n", *numUsers, *numRecipes, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}
	if err := s.Seed(*numUsers, *numRecipes); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("All done. Seeded accounts use the password: %s", seed.DefaultPassword)
}
