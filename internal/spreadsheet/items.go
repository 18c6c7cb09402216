package spreadsheet

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Item is one entry of an item-list cell.
type Item struct {
	Name     string
	Quantity int64
}

// ParseItems reads cells like "Tea x2, Herb*1、Oil：3". Segments are split on
// commas, 、, semicolons and newlines (full-width forms included). A segment
// is "name marker qty" or a bare name meaning quantity 1; markers are x, X,
// ×, * and colons. Segments with an empty name or a quantity that is not a
// positive integer are dropped.
func ParseItems(cell string) []Item {
	folded := width.Fold.String(cell)
	segments := strings.FieldsFunc(folded, func(r rune) bool {
		switch r {
		case ',', '、', ';', '\n', '\r':
			return true
		}
		return false
	})
	out := make([]Item, 0, len(segments))
	for _, seg := range segments {
		if it, ok := parseSegment(strings.TrimSpace(seg)); ok {
			out = append(out, it)
		}
	}
	return out
}

func isMarker(r rune) bool {
	switch r {
	case 'x', 'X', '×', '*', ':':
		return true
	}
	return false
}

func parseSegment(seg string) (Item, bool) {
	if seg == "" {
		return Item{}, false
	}
	runes := []rune(seg)
	at := -1
	for i := len(runes) - 1; i >= 0; i-- {
		if isMarker(runes[i]) {
			at = i
			break
		}
	}
	if at < 0 {
		return Item{Name: seg, Quantity: 1}, true
	}

	name := strings.TrimSpace(string(runes[:at]))
	qtyText := strings.TrimSpace(string(runes[at+1:]))
	qty, err := strconv.ParseInt(qtyText, 10, 64)

	// A letter x that is glued to the name and not followed by a number is
	// part of the name ("Box", "Max Tea").
	if err != nil && isLetterX(runes[at]) && (at == 0 || !unicode.IsSpace(runes[at-1])) {
		return Item{Name: seg, Quantity: 1}, true
	}
	if err != nil || qty <= 0 || name == "" {
		return Item{}, false
	}
	return Item{Name: name, Quantity: qty}, true
}

func isLetterX(r rune) bool {
	return r == 'x' || r == 'X'
}

// FormatItems renders items the way ParseItems reads them.
func FormatItems(items []Item) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", it.Name, it.Quantity))
	}
	return strings.Join(parts, ", ")
}

// ParseAmount reads an integer cell such as "1,200", "１２００" or "1200.0".
// Blank cells are zero.
func ParseAmount(cell string) (int64, error) {
	s := strings.TrimSpace(width.Fold.String(cell))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", cell)
	}
	return int64(f), nil
}
