// Command main runs the demo data seeder.
package main

import (
	"context"
	"flag"
	"log"

	"arcade/internal/bootstrap"
	"arcade/internal/config"
	"arcade/internal/middleware"
	"arcade/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 80, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible content (0 = time based)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	ctx := context.Background()
	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = stores.Close(ctx) }()

	sum, err := seed.NewSeeder(stores, seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
		DryRun:      *dryRun,
		BcryptCost:  cfg.BcryptCost,
		RandSeed:    *randSeed,
	}).Seed(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d favorites, %d posts, %d likes, %d comments",
		sum.Users, sum.Favorites, sum.Posts, sum.Likes, sum.Comments)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
