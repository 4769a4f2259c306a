package whatsapp

import "strings"

// NormalizePhone converts an Indonesian phone number to the 62xxx form the
// gateway expects. It returns "" when the input cannot be a valid number.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if len(cleaned) < 9 {
		return ""
	}

	if strings.HasPrefix(cleaned, "0") {
		cleaned = "62" + cleaned[1:]
	}
	// a bare subscriber number without country code
	if !strings.HasPrefix(cleaned, "62") && len(cleaned) <= 12 {
		cleaned = "62" + cleaned
	}

	if len(cleaned) < 11 || len(cleaned) > 15 {
		return ""
	}
	return cleaned
}
