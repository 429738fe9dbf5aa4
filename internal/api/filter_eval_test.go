package api_test

import (
	"testing"

	"lightbox/internal/api"
	"lightbox/internal/filters"
)

func TestEvaluateFilters(t *testing.T) {
	req := api.FilterEvalRequest{
		Filters: []filters.Filter{
			{Key: "search", IsGlobal: true, IsPrimary: true},
			{Key: "color", CategoryIDs: []string{"1"}, AssetTypes: []string{"asset"}},
			{Key: "orientation", CategoryIDs: []string{"1"}, AssetTypes: []string{"asset"}},
		},
		Context: filters.Context{
			CategoryID: "1",
			AssetType:  "asset",
			AvailableValues: map[string][]string{
				"color":       {"red", "blue"},
				"orientation": {},
			},
		},
	}

	resp := api.EvaluateFilters(req)
	if len(resp.Decisions) != 3 {
		t.Fatalf("expected 3 decisions, got %d", len(resp.Decisions))
	}
	want := map[string]string{
		"search":      "visible",
		"color":       "visible",
		"orientation": "hidden",
	}
	for _, d := range resp.Decisions {
		if want[d.Key] != d.Visibility {
			t.Fatalf("filter %s: expected %s, got %s", d.Key, want[d.Key], d.Visibility)
		}
	}
	if resp.HiddenCount != 1 {
		t.Fatalf("expected 1 hidden, got %d", resp.HiddenCount)
	}
}
