// Command main inserts fake posts for local development.
package main

import (
	"context"
	"flag"
	"log"

	"postboard/internal/config"
	"postboard/internal/database"
	"postboard/internal/repository"
	"postboard/internal/seed"
	"postboard/internal/service"
)

func main() {
	count := flag.Int("count", 25, "Number of posts to create")
	seedValue := flag.Int64("seed", 0, "Random seed (0 uses the current time)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	svc := service.NewPostService(repository.NewPostRepository(db))
	posts, err := seed.Posts(context.Background(), svc, seed.NewFactory(*seedValue), *count)
	if err != nil {
		log.Fatalf("Seeding failed after %d posts: %v", len(posts), err)
	}

	log.Printf("Created %d posts", len(posts))
}
