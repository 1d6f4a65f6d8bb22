package models

import "strings"

// IsAllCategory reports whether category imposes no filter.
func IsAllCategory(category string) bool {
	return category == "" || category == AllCategory
}

// MatchesFilter reports whether ch passes a category/search filter.
// Category is an exact match unless it is the All sentinel; search is a
// case-insensitive substring match on the channel name.
func MatchesFilter(ch Channel, category, search string) bool {
	if !IsAllCategory(category) && ch.Category != category {
		return false
	}
	if search == "" {
		return true
	}
	return strings.Contains(FoldName(ch.Name), FoldName(search))
}

// FoldName is the case fold used for name search. Stores that search
// outside Go persist the folded name so every backend matches alike.
func FoldName(name string) string {
	return strings.ToLower(name)
}

// FilterChannels returns the channels matching the filter, preserving order.
// The result is never nil.
func FilterChannels(channels []Channel, category, search string) []Channel {
	out := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if MatchesFilter(ch, category, search) {
			out = append(out, ch)
		}
	}
	return out
}

// CategoryNames returns the distinct categories of channels in order of
// first appearance. It does not include the All sentinel.
func CategoryNames(channels []Channel) []string {
	seen := make(map[string]struct{}, len(channels))
	names := make([]string, 0)
	for _, ch := range channels {
		if _, ok := seen[ch.Category]; ok {
			continue
		}
		seen[ch.Category] = struct{}{}
		names = append(names, ch.Category)
	}
	return names
}

// WithAllCategory prepends the All sentinel to names.
func WithAllCategory(names []string) []string {
	out := make([]string, 0, len(names)+1)
	out = append(out, AllCategory)
	for _, n := range names {
		if n == AllCategory {
			continue
		}
		out = append(out, n)
	}
	return out
}
