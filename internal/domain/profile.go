package domain

import "sort"

// AffinitySummary is a derived view grouping rated test titles by affinity.
// It is always recomputed wholesale from the ratings map, never patched.
type AffinitySummary struct {
	NativeFit []string `json:"native_fit"`
	Workable  []string `json:"workable"`
	Resistant []string `json:"resistant"`
}

// ProfileAnalysis is the aggregate record for one profile. Ratings
// accumulate incrementally; label and DNA are only authoritative after a
// finalize pass over a complete rating set.
type ProfileAnalysis struct {
	ProfileID       string            `json:"profile_id"`
	ProfileLabel    string            `json:"profile_label,omitempty"`
	ProfileDNA      []string          `json:"profile_dna,omitempty"`
	Ratings         map[string]Rating `json:"ratings"`
	AffinitySummary AffinitySummary   `json:"affinity_summary"`
	AnalysisVersion string            `json:"analysis_version,omitempty"`
}

// NewProfileAnalysis returns an empty record for a profile's first rating.
func NewProfileAnalysis(profileID string) *ProfileAnalysis {
	return &ProfileAnalysis{
		ProfileID: profileID,
		Ratings:   make(map[string]Rating),
	}
}

// RecomputeAffinitySummary rebuilds the summary from the ratings map.
// Titles are sorted within each group so the stored record is stable across
// runs (Go maps have no encounter order to preserve).
func (p *ProfileAnalysis) RecomputeAffinitySummary() {
	summary := AffinitySummary{
		NativeFit: []string{},
		Workable:  []string{},
		Resistant: []string{},
	}

	titles := make([]string, 0, len(p.Ratings))
	for title := range p.Ratings {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	for _, title := range titles {
		switch p.Ratings[title].Affinity {
		case AffinityNative:
			summary.NativeFit = append(summary.NativeFit, title)
		case AffinityWorkable:
			summary.Workable = append(summary.Workable, title)
		case AffinityResistant:
			summary.Resistant = append(summary.Resistant, title)
		}
	}

	p.AffinitySummary = summary
}

// SetRating records one rating and keeps the derived summary in sync.
func (p *ProfileAnalysis) SetRating(title string, rating Rating) {
	if p.Ratings == nil {
		p.Ratings = make(map[string]Rating)
	}
	p.Ratings[title] = rating
	p.RecomputeAffinitySummary()
}

// Clear resets ratings, label, and DNA but preserves the profile id.
func (p *ProfileAnalysis) Clear() {
	p.Ratings = make(map[string]Rating)
	p.ProfileLabel = ""
	p.ProfileDNA = nil
	p.RecomputeAffinitySummary()
}
