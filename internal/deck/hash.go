package deck

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Canonical joins the item's text fields after cleaning each part.
// Each field is trimmed, lowercased and given unix line endings.
func Canonical(front, back, category string) string {
	clean := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	// Newline separated so "ab"+"c" and "a"+"bc" stay distinct.
	return strings.Join([]string{clean(front), clean(back), clean(category)}, "\n")
}

// ContentID returns the hex SHA-256 of the canonical form of an item's text.
// Imported items use it as their ID, which makes re-imports idempotent.
func ContentID(front, back, category string) string {
	sum := sha256.Sum256([]byte(Canonical(front, back, category)))
	return fmt.Sprintf("%x", sum)
}
