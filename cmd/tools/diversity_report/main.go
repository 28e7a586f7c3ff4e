package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/analysis"
	"github.com/kapu/profile-lab-go/internal/app"
	"github.com/kapu/profile-lab-go/internal/catalog"
	"github.com/kapu/profile-lab-go/internal/config"
	"github.com/kapu/profile-lab-go/internal/constants"
	"github.com/kapu/profile-lab-go/internal/domain"
	"github.com/kapu/profile-lab-go/internal/service"
	"github.com/kapu/profile-lab-go/internal/storage"
)

// Prints a prompt-diversity report over the catalog or the imported
// gallery corpus, with the photo/art split suggestion.

var source = flag.String("source", "catalog", "Prompt source: catalog or imported")

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := zap.NewNop()
	jsonStore := storage.NewJSONStore(".", logger)

	var all, photo, art []string
	switch *source {
	case "catalog":
		catalogSvc := catalog.NewService(jsonStore, cfg.Storage.CatalogFile, logger)
		tests, err := catalogSvc.Load(domain.StatusCurrent)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
		for _, t := range tests {
			if t.Prompt == "" {
				continue
			}
			all = append(all, t.Prompt)
			switch t.Category() {
			case string(domain.SectionPhoto):
				photo = append(photo, t.Prompt)
			case string(domain.SectionArt):
				art = append(art, t.Prompt)
			}
		}
	case "imported":
		importer := service.NewImporterService(jsonStore,
			cfg.Storage.DataDir+"/"+app.PromptMetadataFile, logger)
		all, err = importer.Prompts()
		if err != nil {
			log.Fatalf("Failed to load imported corpus: %v", err)
		}
	default:
		log.Fatalf("Unknown source %q", *source)
	}

	if len(all) == 0 {
		fmt.Println("No prompts to analyze")
		return
	}

	fmt.Printf("=== Prompt Diversity (%s, %d prompts) ===\n\n", *source, len(all))
	printMetrics("All", analysis.AnalyzeDiversity(all))

	patterns := analysis.CommonPatterns(all, constants.DiversityConfig.TopPatterns)
	fmt.Println("Top bigrams:")
	for _, p := range patterns.TopBigrams {
		fmt.Printf("  %-40s %d\n", p.Keyword, p.Count)
	}
	fmt.Println("Top trigrams:")
	for _, p := range patterns.TopTrigrams {
		fmt.Printf("  %-40s %d\n", p.Keyword, p.Count)
	}
	fmt.Println()

	if *source != "catalog" {
		return
	}

	photoMetrics := analysis.AnalyzeDiversity(photo)
	artMetrics := analysis.AnalyzeDiversity(art)
	printMetrics("Photo", photoMetrics)
	printMetrics("Art", artMetrics)

	split := analysis.SuggestSplit(photoMetrics, artMetrics,
		constants.DiversityConfig.TotalTests,
		constants.DiversityConfig.MinPerGroup,
		constants.DiversityConfig.MaxPerGroup,
	)
	fmt.Printf("Suggested split: %d photo / %d art\n", split.PhotoTests, split.ArtTests)

	if analysis.ShouldRebalance(
		photoMetrics.KeywordDiversity,
		artMetrics.KeywordDiversity,
		constants.DiversityConfig.RebalanceRatio,
		constants.DiversityConfig.RebalanceFloor,
	) {
		fmt.Println("Rebalance recommended: diversity gap between groups exceeds threshold")
	} else {
		fmt.Println("No rebalance needed")
	}
}

func printMetrics(label string, m analysis.DiversityMetrics) {
	fmt.Printf("%s: %d prompts, %.0f%% unique, avg length %.1f words\n",
		label, m.TotalPrompts, m.UniquenessRatio*100, m.AvgLength)
	fmt.Printf("  %d unique keywords, keyword diversity %.3f\n", m.UniqueKeywords, m.KeywordDiversity)
	if len(m.TopKeywords) > 0 {
		top := make([]string, 0, len(m.TopKeywords))
		for i, kw := range m.TopKeywords {
			if i >= 10 {
				break
			}
			top = append(top, fmt.Sprintf("%s(%d)", kw.Keyword, kw.Count))
		}
		fmt.Printf("  top keywords: %s\n", strings.Join(top, ", "))
	}
	fmt.Println()
}
