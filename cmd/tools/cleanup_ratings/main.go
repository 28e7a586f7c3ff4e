package main

import (
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/analysis"
	"github.com/kapu/profile-lab-go/internal/catalog"
	"github.com/kapu/profile-lab-go/internal/config"
	"github.com/kapu/profile-lab-go/internal/profilestore"
	"github.com/kapu/profile-lab-go/internal/storage"
)

// Reconciles every profile against the current catalog and purges
// ratings that reference removed tests. Orphans are listed before
// anything is deleted.

var dryRun = flag.Bool("dry-run", false, "List orphaned ratings without removing them")

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := zap.NewNop()
	jsonStore := storage.NewJSONStore(".", logger)
	catalogSvc := catalog.NewService(jsonStore, cfg.Storage.CatalogFile, logger)
	profiles := profilestore.NewStore(jsonStore, cfg.Storage.ProfilesDir, logger)

	titles, err := catalogSvc.CurrentTitles()
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	records, err := profiles.LoadAll()
	if err != nil {
		log.Fatalf("Failed to load profiles: %v", err)
	}

	fmt.Printf("Checking %d profiles against %d current tests\n\n", len(records), len(titles))

	totalOrphans := 0
	for id, rec := range records {
		result := analysis.Reconcile(titles, rec.Ratings)
		if len(result.Orphaned) == 0 {
			continue
		}
		totalOrphans += len(result.Orphaned)

		fmt.Printf("%s: %d orphaned ratings\n", id, len(result.Orphaned))
		for _, title := range result.Orphaned {
			fmt.Printf("  - %s\n", title)
		}

		if *dryRun {
			continue
		}

		analysis.PurgeOrphans(rec, titles)
		if err := profiles.Save(rec); err != nil {
			log.Fatalf("Failed to save profile %s: %v", id, err)
		}
		fmt.Printf("  purged, %d ratings remain\n", len(rec.Ratings))
	}

	if totalOrphans == 0 {
		fmt.Println("No orphaned ratings found")
		return
	}
	if *dryRun {
		fmt.Printf("\nDry run: %d orphaned ratings left in place\n", totalOrphans)
	} else {
		fmt.Printf("\nPurged %d orphaned ratings\n", totalOrphans)
	}
}
