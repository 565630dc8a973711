package core

import (
	"strings"
)

// FilterDrivers returns the drivers whose name contains any keyword,
// ignoring case. The result is never nil.
func FilterDrivers(drivers []string, keywords []string) []string {
	filtered := []string{}
	for _, d := range drivers {
		name := strings.ToLower(d)
		for _, k := range keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" && strings.Contains(name, k) {
				filtered = append(filtered, d)
				break
			}
		}
	}
	return filtered
}

// SplitList splits a comma separated setting, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
