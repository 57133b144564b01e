// Command main runs the database seeder for Inkwell.
package main

import (
	"context"
	"flag"
	"log"
	"sort"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/seed"
)

func main() {
	preset := flag.String("preset", "demo", "Seeder preset to apply")
	presetsFile := flag.String("presets-file", "", "YAML file with extra or overriding presets")
	numUsers := flag.Int("users", 0, "Override the preset's user count")
	numPosts := flag.Int("posts", 0, "Override the preset's posts per user")
	shouldClean := flag.Bool("clean", false, "Clean blog and account tables before seeding")
	dryRun := flag.Bool("dry-run", false, "Build data without writing to the database")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = time based)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	presets, err := seed.LoadPresets(*presetsFile)
	if err != nil {
		log.Fatalf("Failed to load presets: %v", err)
	}
	p, ok := presets[*preset]
	if !ok {
		names := make([]string, 0, len(presets))
		for name := range presets {
			names = append(names, name)
		}
		sort.Strings(names)
		log.Fatalf("Unknown preset %q (available: %s)", *preset, strings.Join(names, ", "))
	}
	if *numUsers > 0 {
		p.Users = *numUsers
		if p.Staff > p.Users {
			p.Staff = p.Users
		}
	}
	if *numPosts > 0 {
		p.PostsPerUser = *numPosts
	}
	log.Printf("Preset %s: %d users, %d posts each, clean=%v dry-run=%v", p.Name, p.Users, p.PostsPerUser, *shouldClean, *dryRun)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	s, err := seed.NewSeeder(db, seed.Options{
		DryRun:     *dryRun,
		RandomSeed: *randomSeed,
		Logger:     middleware.Logger,
	})
	if err != nil {
		log.Fatalf("❌ Seeder setup failed: %v", err)
	}

	ctx := context.Background()
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx, p)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✓ %d users (%d staff), %d categories, %d tags", sum.Users, sum.Staff, sum.Categories, sum.Tags)
	log.Printf("✓ %d posts (%d drafts), %d comments (%d pending)", sum.Posts, sum.Drafts, sum.Comments, sum.Pending)
	log.Println("✨ All done! Your database is now populated with demo data.")
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}
