package strings

import (
	"strings"
)

// MaxNameLen is the maximum length of a Kubernetes resource name label.
const MaxNameLen = 63

// SanitizeName converts an arbitrary string into a valid RFC 1123 label so it
// can be used as a Kubernetes resource name: lowercase alphanumerics and '-',
// starting and ending with an alphanumeric, at most MaxNameLen characters.
// Runs of invalid characters collapse into a single '-'. An input with no
// usable characters returns the fallback.
func SanitizeName(s string, fallback string) string {
	var b strings.Builder
	lastDash := true // suppress leading dashes
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	name := strings.Trim(b.String(), "-")
	if len(name) > MaxNameLen {
		name = strings.Trim(name[:MaxNameLen], "-")
	}
	if name == "" {
		return fallback
	}
	return name
}
