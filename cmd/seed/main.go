// Command main runs the database seeder for SideWidth.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/bootstrap"
	"github.com/digitalmaniak/sidewidth/internal/cache"
	"github.com/digitalmaniak/sidewidth/internal/config"
	"github.com/digitalmaniak/sidewidth/internal/seed"
)

func main() {
	preset := flag.String("preset", "demo", "Seeder preset to apply")
	presetFile := flag.String("presets", "", "YAML file with additional presets")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	seedValue := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	presets := seed.DefaultPresets()
	if *presetFile != "" {
		f, err := os.Open(*presetFile)
		if err != nil {
			log.Fatalf("Failed to open presets: %v", err)
		}
		extra, err := seed.LoadPresets(f)
		_ = f.Close()
		if err != nil {
			log.Fatalf("Failed to load presets: %v", err)
		}
		for name, p := range extra {
			presets[name] = p
		}
	}

	p, ok := presets[*preset]
	if !ok {
		log.Fatalf("Unknown preset %q (available: %s)", *preset, strings.Join(seed.PresetNames(presets), ", "))
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{Migrate: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	s := seed.NewSeeder(rt.DB, *seedValue)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	ds, err := s.Apply(ctx, p)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	// cached feed pages predate the new rows
	cache.InvalidateFeeds(ctx)

	log.Printf("✓ preset %s: %d profiles, %d posts, %d votes", p.Name, len(ds.Profiles), len(ds.Posts), len(ds.Votes))
	log.Println("✨ All done!")
}
