package orders

import (
	"strings"

	"github.com/carecrm/carecrm/internal/shared"
)

// NormalizeItems drops blank names and non-positive quantities and merges
// repeated names into one line, keeping first-seen order. The legacy
// single-item fields are used only when items is nil; a legacy line without
// a quantity counts as one unit.
func NormalizeItems(items []ItemInput, legacyName string, legacyQty int64) ([]ItemInput, error) {
	if items == nil && strings.TrimSpace(legacyName) != "" {
		if legacyQty == 0 {
			legacyQty = 1
		}
		items = []ItemInput{{ProductName: legacyName, Quantity: legacyQty}}
	}
	index := make(map[string]int, len(items))
	out := make([]ItemInput, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.ProductName)
		if name == "" || it.Quantity <= 0 {
			continue
		}
		if i, ok := index[name]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[name] = len(out)
		out = append(out, ItemInput{ProductName: name, Quantity: it.Quantity})
	}
	if len(out) == 0 {
		return nil, shared.Validation("items", "no items")
	}
	return out, nil
}

func itemNames(items []ItemInput) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.ProductName
	}
	return names
}
