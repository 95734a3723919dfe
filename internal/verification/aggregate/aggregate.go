// Package aggregate implements first-write-wins merging of extracted fields
// into a case's canonical field set.
package aggregate

import (
	"sort"

	"veridoc/internal/verification/models"
)

// MergeFields folds an extraction result into the canonical field set.
// Existing keys are never overwritten; only absent or empty slots are filled.
// Returns the names of fields actually written, sorted for deterministic
// logging.
//
// The given-names list is collapsed into a single firstGivenName value, the
// first non-empty name in extraction order. It participates in
// first-write-wins like any other field.
func MergeFields(canonical map[string]string, result *models.ExtractionResult) []string {
	if result == nil {
		return nil
	}

	var written []string
	for name, value := range result.Fields {
		if value == "" {
			continue
		}
		if canonical[name] != "" {
			continue
		}
		canonical[name] = value
		written = append(written, name)
	}

	if first := FirstGivenName(result.GivenNames); first != "" && canonical[models.FieldFirstGivenName] == "" {
		canonical[models.FieldFirstGivenName] = first
		written = append(written, models.FieldFirstGivenName)
	}

	sort.Strings(written)
	return written
}

// FirstGivenName picks the composite firstGivenName value: the first
// non-empty entry of the extracted given-names list.
func FirstGivenName(givenNames []string) string {
	for _, name := range givenNames {
		if name != "" {
			return name
		}
	}
	return ""
}
