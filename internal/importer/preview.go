package importer

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/openassembly/propmove/internal/domain"
	"github.com/openassembly/propmove/internal/export"
	"github.com/openassembly/propmove/internal/store"
)

// diffThreshold is the text length past which a unified diff is
// attached instead of relying on the raw values alone.
const diffThreshold = 120

// buildMergePreview compares an incoming proposition with the existing
// one it duplicates, over the mergeable content fields and the sorted
// category-name sets. Every difference carries the review marker.
func buildMergePreview(q store.Queryer, existing *domain.Proposition, incoming *export.ExportedProposition) (*MergePreview, error) {
	preview := &MergePreview{TargetID: existing.ID}

	compare := []struct {
		field    string
		current  string
		incoming string
	}{
		{"summary", existing.Summary, incoming.Summary},
		{"detailedDescription", existing.DetailedDescription, stringOrEmpty(incoming.DetailedDescription)},
		{"smartObjectives", existing.SmartObjectives, stringOrEmpty(incoming.SmartObjectives)},
	}

	for _, c := range compare {
		if c.current == c.incoming {
			continue
		}
		preview.Fields = append(preview.Fields, FieldDiff{
			Field:    c.field,
			Current:  c.current,
			Incoming: c.incoming,
			Diff:     unifiedDiff(c.current, c.incoming),
			Marker:   ReviewRequired,
		})
	}

	currentNames, err := store.CategoryNamesForProposition(q, existing.ID)
	if err != nil {
		return nil, err
	}
	incomingNames := make([]string, 0, len(incoming.ExternalReferences.Categories))
	for _, cat := range incoming.ExternalReferences.Categories {
		incomingNames = append(incomingNames, cat.Name)
	}
	sort.Strings(currentNames)
	sort.Strings(incomingNames)

	currentSet := strings.Join(currentNames, ", ")
	incomingSet := strings.Join(incomingNames, ", ")
	if currentSet != incomingSet {
		preview.Fields = append(preview.Fields, FieldDiff{
			Field:    "categories",
			Current:  currentSet,
			Incoming: incomingSet,
			Marker:   ReviewRequired,
		})
	}

	return preview, nil
}

func unifiedDiff(current, incoming string) string {
	if len(current) < diffThreshold && len(incoming) < diffThreshold {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(current),
		B:        difflib.SplitLines(incoming),
		FromFile: "current",
		ToFile:   "incoming",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
