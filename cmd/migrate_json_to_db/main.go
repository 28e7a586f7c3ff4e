package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/catalog"
	"github.com/kapu/profile-lab-go/internal/config"
	"github.com/kapu/profile-lab-go/internal/profilestore"
	"github.com/kapu/profile-lab-go/internal/storage"
)

// Mirrors the JSON catalog and profile records into PostgreSQL for SQL
// reporting. The JSON files stay authoritative; reruns are idempotent.

var (
	dsn     = flag.String("dsn", "", "PostgreSQL DSN (defaults to POSTGRES_DSN)")
	dryRun  = flag.Bool("dry-run", false, "Report what would be migrated without writing")
	verbose = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	target := *dsn
	if target == "" {
		target = cfg.Postgres.DSN
	}
	if target == "" {
		log.Fatal("No DSN: pass -dsn or set POSTGRES_DSN")
	}

	logger := zap.NewNop()
	jsonStore := storage.NewJSONStore(".", logger)
	catalogSvc := catalog.NewService(jsonStore, cfg.Storage.CatalogFile, logger)
	profiles := profilestore.NewStore(jsonStore, cfg.Storage.ProfilesDir, logger)

	tests, err := catalogSvc.Load("")
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	records, err := profiles.LoadAll()
	if err != nil {
		log.Fatalf("Failed to load profiles: %v", err)
	}

	fmt.Printf("Catalog: %d tests, %d profiles\n", len(tests), len(records))

	if *dryRun {
		for _, t := range tests {
			fmt.Printf("  would upsert test %s (%s)\n", t.ID, t.Section)
		}
		for id, rec := range records {
			fmt.Printf("  would replace %d ratings for profile %s\n", len(rec.Ratings), id)
		}
		fmt.Println("Dry run complete, nothing written")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := storage.NewPostgresService(target, logger)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pg.Close()

	if err := pg.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	for _, t := range tests {
		if err := pg.UpsertTest(ctx, t); err != nil {
			log.Fatalf("Failed to upsert test %s: %v", t.ID, err)
		}
		if *verbose {
			fmt.Printf("  upserted test %s\n", t.ID)
		}
	}

	for id, rec := range records {
		if err := pg.ReplaceProfileRatings(ctx, id, rec.Ratings); err != nil {
			log.Fatalf("Failed to migrate ratings for %s: %v", id, err)
		}
		if *verbose {
			fmt.Printf("  migrated %d ratings for %s\n", len(rec.Ratings), id)
		}
	}

	testCount, err := pg.CountTests(ctx)
	if err != nil {
		log.Fatalf("Failed to count tests: %v", err)
	}
	ratingCount, err := pg.CountRatings(ctx)
	if err != nil {
		log.Fatalf("Failed to count ratings: %v", err)
	}

	fmt.Printf("Migration complete: %d tests, %d ratings in database\n", testCount, ratingCount)
	os.Exit(0)
}
