// ABOUTME: Sport list and search filtering over complexes
// ABOUTME: Pure functions shared by the CLI listing and suggestions

package facility

import (
	"slices"
	"strings"
)

// AllSports is the filter value that matches every complex.
const AllSports = "All Sports"

// Sports returns AllSports followed by every distinct sport, sorted.
func Sports(complexes []Complex) []string {
	seen := make(map[string]bool)
	var sports []string
	for _, c := range complexes {
		for _, s := range c.Sports {
			if !seen[s] {
				seen[s] = true
				sports = append(sports, s)
			}
		}
	}
	slices.Sort(sports)
	return append([]string{AllSports}, sports...)
}

// Filter keeps complexes offering sport (any sport for AllSports or "") whose
// name or address contains query, case-insensitively.
func Filter(complexes []Complex, sport, query string) []Complex {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []Complex{}
	for _, c := range complexes {
		if sport != "" && sport != AllSports && !slices.Contains(c.Sports, sport) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.Address), q) {
			continue
		}
		out = append(out, c)
	}
	return out
}
