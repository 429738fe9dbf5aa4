package filters

// Visibility is the two-state result of evaluating a filter against a
// context. There is intentionally no disabled state.
type Visibility string

const (
	Visible Visibility = "visible"
	Hidden  Visibility = "hidden"
)

// systemPrimaryKeys are the fixed always-visible filters, distinct from
// category-scoped metadata filters that are merely flagged primary.
var systemPrimaryKeys = map[string]struct{}{
	"search":     {},
	"category":   {},
	"asset_type": {},
	"brand":      {},
}

// Filter describes a grid filter definition.
type Filter struct {
	Key         string   `json:"key"`
	Label       string   `json:"label,omitempty"`
	IsGlobal    bool     `json:"is_global"`
	IsPrimary   bool     `json:"is_primary"`
	CategoryIDs []string `json:"category_ids,omitempty"`
	AssetTypes  []string `json:"asset_types,omitempty"`
}

// Context carries the grid state a visibility decision depends on.
type Context struct {
	CategoryID string `json:"category_id,omitempty"`
	AssetType  string `json:"asset_type,omitempty"`
	// AvailableValues maps filter key to the values currently available.
	// A key may instead appear in AvailableCounts when the source only
	// reports cardinality.
	AvailableValues map[string][]string `json:"available_values,omitempty"`
	AvailableCounts map[string]int      `json:"available_counts,omitempty"`
}

// Evaluate returns the visibility of a filter in the given context.
//
// Order of rules:
//  1. Scope incompatibility hides the filter.
//  2. System-primary filters are visible unconditionally.
//  3. Filters with no available values are hidden.
//  4. Everything else is visible.
func Evaluate(filter Filter, ctx Context) Visibility {
	if !scopeCompatible(filter, ctx) {
		return Hidden
	}
	if _, ok := systemPrimaryKeys[filter.Key]; ok {
		return Visible
	}
	if !hasAvailableValues(filter.Key, ctx) {
		return Hidden
	}
	return Visible
}

func scopeCompatible(filter Filter, ctx Context) bool {
	if filter.IsGlobal {
		return true
	}
	if len(filter.CategoryIDs) > 0 && !contains(filter.CategoryIDs, ctx.CategoryID) {
		return false
	}
	if len(filter.AssetTypes) > 0 && !contains(filter.AssetTypes, ctx.AssetType) {
		return false
	}
	return true
}

func hasAvailableValues(key string, ctx Context) bool {
	if values, ok := ctx.AvailableValues[key]; ok {
		return len(values) > 0
	}
	if count, ok := ctx.AvailableCounts[key]; ok {
		return count > 0
	}
	return false
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// Partition splits filters into visible and hidden subsets, preserving order.
func Partition(defs []Filter, ctx Context) (visible, hidden []Filter) {
	for _, f := range defs {
		if Evaluate(f, ctx) == Visible {
			visible = append(visible, f)
		} else {
			hidden = append(hidden, f)
		}
	}
	return visible, hidden
}

// CountHidden reports how many filters are hidden in the given context,
// used for "N filters hidden" messaging.
func CountHidden(defs []Filter, ctx Context) int {
	_, hidden := Partition(defs, ctx)
	return len(hidden)
}
