// Package slug turns human-entered titles into URL-safe identifiers.
package slug

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrEmpty is returned when a title holds no letters or digits once normalized.
var ErrEmpty = errors.New("slug: title has no letters or digits")

var pattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Letters that carry no combining mark under NFD and would otherwise be dropped.
var folds = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae", "Æ", "ae",
	"œ", "oe", "Œ", "oe",
	"ø", "o", "Ø", "o",
	"đ", "d", "Đ", "d",
	"ð", "d", "Ð", "d",
	"ł", "l", "Ł", "l",
	"þ", "th", "Þ", "th",
)

// Generate derives a slug from title. The result contains only lowercase ASCII
// letters, digits and single hyphens, never at either end. Generate is
// deterministic and does not make the slug unique.
func Generate(title string) (string, error) {
	// transform chains keep state, so one is built per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripMarks, folds.Replace(title))
	if err != nil {
		return "", fmt.Errorf("slug: normalize title: %w", err)
	}

	var b strings.Builder
	b.Grow(len(plain))
	gap := false
	for _, r := range strings.ToLower(plain) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if gap && b.Len() > 0 {
				b.WriteByte('-')
			}
			gap = false
			b.WriteRune(r)
			continue
		}
		gap = true
	}

	if b.Len() == 0 {
		return "", ErrEmpty
	}
	return b.String(), nil
}

// Valid reports whether s is already in canonical slug form.
func Valid(s string) bool {
	return pattern.MatchString(s)
}
