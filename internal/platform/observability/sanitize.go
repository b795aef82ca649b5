package observability

import "unicode"

// clip drops control characters and truncates to limit runes so request data cannot forge log lines.
func clip(value string, limit int) string {
	out := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return string(out)
}
