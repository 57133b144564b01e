package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
	slugRegex    = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)
)

// Slugify converts s to a lower-case ASCII slug: accents are folded, punctuation dropped
// and runs of spaces or hyphens collapse into a single hyphen.
func Slugify(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	for _, r := range decomposed {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	out := slugStrip.ReplaceAllString(strings.ToLower(b.String()), "")
	out = slugCollapse.ReplaceAllString(strings.TrimSpace(out), "-")
	return strings.Trim(out, "-_")
}

// ValidateSlug checks a caller-supplied slug.
func ValidateSlug(slug string) error {
	if !slugRegex.MatchString(slug) {
		return errors.New("Enter a valid slug consisting of lowercase letters, numbers, underscores or hyphens.")
	}
	return nil
}

// SuffixSlug returns base with a numeric suffix, e.g. "hello-2".
func SuffixSlug(base string, n int) string {
	if n <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}
