package analysis

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/kapu/profile-lab-go/internal/domain"
)

// placeholderKeyPattern matches the positional keys the rating collaborator
// sometimes emits instead of real test titles: "Test 3" or "Test 3: Foggy
// Forest". The free text after the colon is untrusted and discarded.
var placeholderKeyPattern = regexp.MustCompile(`^Test (\d+)(?::\s*.+)?$`)

// ReconcileResult reports how a profile's rating keys line up with the
// catalog's current test titles.
type ReconcileResult struct {
	Valid    []string `json:"valid"`
	Orphaned []string `json:"orphaned"`
	Missing  []string `json:"missing"`
}

// Reconcile splits rating keys into valid (present in the catalog),
// orphaned (rating a removed test), and missing (catalog test never
// rated). Results are sorted for stable reporting.
func Reconcile(catalogTitles []string, ratings map[string]domain.Rating) ReconcileResult {
	titleSet := make(map[string]struct{}, len(catalogTitles))
	for _, t := range catalogTitles {
		titleSet[t] = struct{}{}
	}

	result := ReconcileResult{
		Valid:    []string{},
		Orphaned: []string{},
		Missing:  []string{},
	}

	for key := range ratings {
		if _, ok := titleSet[key]; ok {
			result.Valid = append(result.Valid, key)
		} else {
			result.Orphaned = append(result.Orphaned, key)
		}
	}
	for _, title := range catalogTitles {
		if _, ok := ratings[title]; !ok {
			result.Missing = append(result.Missing, title)
		}
	}

	sort.Strings(result.Valid)
	sort.Strings(result.Orphaned)
	sort.Strings(result.Missing)
	return result
}

// PurgeOrphans removes every orphaned rating from the analysis and
// recomputes the affinity summary from what remains. Returns the removed
// titles. Idempotent: a second pass removes nothing.
func PurgeOrphans(analysis *domain.ProfileAnalysis, catalogTitles []string) []string {
	result := Reconcile(catalogTitles, analysis.Ratings)
	for _, title := range result.Orphaned {
		delete(analysis.Ratings, title)
	}
	analysis.RecomputeAffinitySummary()
	return result.Orphaned
}

// RepairResult reports the outcome of a positional key repair pass.
type RepairResult struct {
	// Repaired maps each replaced placeholder key to the title it became.
	Repaired map[string]string `json:"repaired"`
	// Unresolved lists placeholder keys left untouched: no upload-order
	// evidence for that position, the derived title is not in the catalog,
	// or the title would collide with an existing key.
	Unresolved []string `json:"unresolved"`
}

// RepairPositionalKeys rewrites placeholder "Test N" rating keys to real
// test titles using upload-order evidence: uploadOrder[N-1] is the test
// name derived from the Nth uploaded image. A key is only rewritten when
// that position maps to a current catalog title and the title is not
// already a key in the ratings map. Best-effort and idempotent: repaired
// keys no longer match the placeholder pattern, so a second pass is a
// no-op.
func RepairPositionalKeys(analysis *domain.ProfileAnalysis, uploadOrder []string, catalogTitles []string) RepairResult {
	titleSet := make(map[string]struct{}, len(catalogTitles))
	for _, t := range catalogTitles {
		titleSet[t] = struct{}{}
	}

	positionToTitle := make(map[int]string, len(uploadOrder))
	for i, name := range uploadOrder {
		if _, ok := titleSet[name]; ok {
			positionToTitle[i+1] = name
		}
	}

	result := RepairResult{Repaired: map[string]string{}, Unresolved: []string{}}

	keys := make([]string, 0, len(analysis.Ratings))
	for key := range analysis.Ratings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	repaired := make(map[string]domain.Rating, len(analysis.Ratings))
	for _, key := range keys {
		rating := analysis.Ratings[key]
		m := placeholderKeyPattern.FindStringSubmatch(key)
		if m == nil {
			repaired[key] = rating
			continue
		}

		pos, err := strconv.Atoi(m[1])
		if err != nil {
			repaired[key] = rating
			result.Unresolved = append(result.Unresolved, key)
			continue
		}

		title, ok := positionToTitle[pos]
		if !ok {
			repaired[key] = rating
			result.Unresolved = append(result.Unresolved, key)
			continue
		}
		if _, exists := analysis.Ratings[title]; exists {
			repaired[key] = rating
			result.Unresolved = append(result.Unresolved, key)
			continue
		}
		if _, taken := repaired[title]; taken {
			repaired[key] = rating
			result.Unresolved = append(result.Unresolved, key)
			continue
		}

		repaired[title] = rating
		result.Repaired[key] = title
	}

	analysis.Ratings = repaired
	analysis.RecomputeAffinitySummary()
	sort.Strings(result.Unresolved)
	return result
}
