package ledger

import (
	"strings"
	"unicode"
)

// =============================================================================
// REFERENCE IDS - Short human codes from borrower/lender names
// =============================================================================

// ReferenceID derives a short code from borrower and lender initials.
// Uniqueness (numeric suffix on collision) is handled by the service.
func ReferenceID(borrowerName, lenderName string) string {
	return extractInitials(borrowerName) + extractInitials(lenderName)
}

// GroupReferenceID derives a code from a sanitized group-name prefix plus
// the lender's initials.
func GroupReferenceID(groupName, lenderName string) string {
	sanitized := sanitizeGroupName(groupName)
	if len(sanitized) > 5 {
		sanitized = sanitized[:5]
	}
	return sanitized + extractInitials(lenderName)
}

func sanitizeGroupName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// extractInitials handles both "Surname, First Name, Initial" and
// "First Name Last Name" forms. Unknown names map to "UNK".
func extractInitials(fullName string) string {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return "UNK"
	}

	var b strings.Builder
	if parts := strings.Split(fullName, ","); len(parts) >= 2 {
		for i, part := range parts {
			if i >= 3 {
				break
			}
			part = strings.TrimSpace(part)
			if part != "" {
				b.WriteRune(firstRune(part))
			}
		}
	} else {
		for _, part := range strings.Fields(fullName) {
			b.WriteRune(firstRune(part))
		}
	}

	if b.Len() == 0 {
		return "UNK"
	}
	return strings.ToUpper(b.String())
}

func firstRune(s string) rune {
	for _, r := range s {
		return unicode.ToUpper(r)
	}
	return 0
}
