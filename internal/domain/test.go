package domain

import "strings"

// Section classifies a test by the kind of probe it runs. VOID sections are
// multi-image bias probes with minimal prompts; the rest are single-image,
// prompt-targeted tests.
type Section string

const (
	SectionPhoto     Section = "PHOTO"
	SectionArt       Section = "ART"
	SectionVoidPhoto Section = "VOID_PHOTO"
	SectionVoidArt   Section = "VOID_ART"
)

// IsVoid reports whether the section denotes an unseeded multi-image probe.
func (s Section) IsVoid() bool {
	return strings.HasPrefix(string(s), "VOID")
}

type TestStatus string

const (
	StatusCurrent  TestStatus = "current"
	StatusArchived TestStatus = "archived"
)

type TestVersion string

const (
	VersionV1 TestVersion = "v1"
	VersionV2 TestVersion = "v2"
	VersionV3 TestVersion = "v3"
)

// Test is one style probe in the catalog. Title doubles as the join key
// into rating records, so renaming a test orphans its ratings.
type Test struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Prompt      string      `json:"prompt"`
	Section     Section     `json:"section"`
	Params      string      `json:"params"`
	Status      TestStatus  `json:"status"`
	Version     TestVersion `json:"version"`
	CreatedDate string      `json:"created_date,omitempty"`
}

// Category groups tests for breakdown reporting. VOID sections collapse to
// their base medium.
func (t *Test) Category() string {
	switch t.Section {
	case SectionVoidPhoto:
		return string(SectionPhoto)
	case SectionVoidArt:
		return string(SectionArt)
	default:
		return string(t.Section)
	}
}
