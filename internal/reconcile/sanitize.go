package reconcile

import "strings"

// SanitizeName strips control and markup characters from a display name and
// collapses whitespace. Returns fallback when nothing usable remains.
func SanitizeName(name, fallback string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20, r == 0x7f:
			// control characters dropped
		case r == '<', r == '>', r == '&', r == '"', r == '\'':
			// markup dropped
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}
