package content

import "strings"

// StandaloneGroup is the reserved group name for items without a series
const StandaloneGroup = "Standalone Content"

// SeriesGroup is one browsing row: a series name and its items in list order
type SeriesGroup struct {
	Name  string    `json:"name"`
	Items []Content `json:"items"`
}

// Filter returns the items matching term with a case-insensitive substring
// match on title, description, and series. An empty term returns the input
// unfiltered. Pure: the input slice is never mutated.
func Filter(items []Content, term string) []Content {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items
	}

	var out []Content
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Title), term) ||
			strings.Contains(strings.ToLower(item.Description), term) ||
			(item.Series != "" && strings.Contains(strings.ToLower(item.Series), term)) {
			out = append(out, item)
		}
	}

	return out
}

// GroupBySeries partitions items into browsing rows. Named series appear in
// the order they are first encountered, each preserving the relative order
// of its items; everything without a series lands in a single trailing
// "Standalone Content" group.
func GroupBySeries(items []Content) []SeriesGroup {
	var (
		order      []string
		bySeries   = make(map[string][]Content)
		standalone []Content
	)

	for _, item := range items {
		if item.Series == "" {
			standalone = append(standalone, item)
			continue
		}
		if _, seen := bySeries[item.Series]; !seen {
			order = append(order, item.Series)
		}
		bySeries[item.Series] = append(bySeries[item.Series], item)
	}

	groups := make([]SeriesGroup, 0, len(order)+1)
	for _, name := range order {
		groups = append(groups, SeriesGroup{Name: name, Items: bySeries[name]})
	}
	if len(standalone) > 0 {
		groups = append(groups, SeriesGroup{Name: StandaloneGroup, Items: standalone})
	}

	return groups
}

// Playlist returns the up-next queue for the active item: every video
// sharing its series, in list order. Items without a series have no playlist.
func Playlist(items []Content, active Content) []Content {
	if active.Series == "" {
		return nil
	}

	var out []Content
	for _, item := range items {
		if item.Type == TypeVideo && item.Series == active.Series {
			out = append(out, item)
		}
	}

	return out
}
