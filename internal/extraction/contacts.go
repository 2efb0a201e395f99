package extraction

import (
	"regexp"
	"strings"

	"github.com/jonathan/outreach-agent/internal/types"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// international or local numbers with optional separators, 9 to 15 digits
	phoneRe = regexp.MustCompile(`\+?\(?\d[\d\s().\-]{7,18}\d`)
)

// image file names that look like addresses (logo@2x.png)
var ignoredEmailSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}

// FindContacts returns the unique emails and phone numbers in text, in order of appearance.
func FindContacts(text string) types.Contacts {
	var c types.Contacts
	seen := make(map[string]bool)

	for _, m := range emailRe.FindAllString(text, -1) {
		email := strings.ToLower(strings.TrimRight(m, "."))
		if seen[email] || hasAnySuffix(email, ignoredEmailSuffixes) {
			continue
		}
		seen[email] = true
		c.Emails = append(c.Emails, email)
	}

	for _, m := range phoneRe.FindAllString(text, -1) {
		digits := countDigits(m)
		if digits < 9 || digits > 15 {
			continue
		}
		phone := strings.Join(strings.Fields(m), " ")
		if seen[phone] {
			continue
		}
		seen[phone] = true
		c.Phones = append(c.Phones, phone)
	}
	return c
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
