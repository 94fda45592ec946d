// Command migrate runs schema operations for the backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/digitalmaniak/sidewidth/internal/config"
	"github.com/digitalmaniak/sidewidth/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status|down [version]>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0))); cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("env=%s applied=%d pending=%d", cfg.Env, len(status.AppliedVersions), len(status.PendingMigrations))
		for _, m := range status.PendingMigrations {
			log.Printf("pending: %s", m.String())
		}
	case "down":
		// without a version the latest applied migration is reverted
		version := 0
		if flag.NArg() > 1 {
			if version, err = strconv.Atoi(flag.Arg(1)); err != nil {
				return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
			}
		}
		m, err := database.RollbackMigration(ctx, db, version)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Printf("rolled back %s", m.String())
	default:
		return usage()
	}

	return nil
}
