package api

import "lightbox/internal/filters"

// EvaluateFilters computes visibility decisions for a filter list in a grid
// context. Stateless; exposed over the API so the CLI and web grid share one
// implementation of the rules.
func EvaluateFilters(req FilterEvalRequest) FilterEvalResponse {
	decisions := make([]FilterDecision, 0, len(req.Filters))
	hidden := 0
	for _, f := range req.Filters {
		visibility := filters.Evaluate(f, req.Context)
		if visibility == filters.Hidden {
			hidden++
		}
		decisions = append(decisions, FilterDecision{
			Key:        f.Key,
			Visibility: string(visibility),
		})
	}
	return FilterEvalResponse{Decisions: decisions, HiddenCount: hidden}
}
