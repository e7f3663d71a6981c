// Package tags normalizes the tags carried by file manifests.
package tags

import "strings"

// NormalizeTags normalizes a list of tags by trimming whitespace,
// removing empty strings, and deduplicating. Order of first occurrence is kept.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !seen[tag] {
			seen[tag] = true
			result = append(result, tag)
		}
	}
	return result
}
