// Package strings holds small string helpers shared by configuration code.
package strings

import "strings"

// SplitList splits a separated setting such as "kafka-1:9092, kafka-2:9092",
// dropping blanks and repeats. First occurrence wins the position.
func SplitList(raw, sep string) []string {
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
