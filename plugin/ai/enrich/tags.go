package enrich

import (
	"encoding/json"
	"strings"
)

// NormalizeTags turns a raw model answer into a compact comma-separated list.
// It accepts a JSON array or a comma/newline separated list, trims every tag,
// drops empties and leading '#', and removes case-insensitive duplicates while
// keeping the first spelling. maxTags <= 0 keeps every tag.
func NormalizeTags(response string, maxTags int) string {
	raw := splitTags(response)

	seen := make(map[string]bool, len(raw))
	tags := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		tag = strings.TrimLeft(tag, "-*•")
		tag = strings.TrimSpace(tag)
		tag = strings.TrimLeft(tag, "#")
		tag = strings.Trim(tag, "\"'`")
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
		if maxTags > 0 && len(tags) == maxTags {
			break
		}
	}

	return strings.Join(tags, ", ")
}

func splitTags(response string) []string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(response), &tags); err == nil {
			return tags
		}
		response = strings.Trim(response, "[]")
	}

	return strings.FieldsFunc(response, func(r rune) bool {
		return r == ',' || r == '\n' || r == '，' || r == ';'
	})
}
