package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/yukikurage/multitenant-task-api/internal/constants"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrEmptySlug = errors.New("slug cannot be empty")

	slugPattern  = regexp.MustCompile(`^[a-z0-9-]+$`)
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// ValidSlug reports whether s only contains lowercase letters, digits and hyphens.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Slugify derives a URL-safe slug from input, using fallback when input has
// no usable characters.
func Slugify(input, fallback string) (string, error) {
	slug := slugify(input)
	if slug == "" {
		slug = slugify(fallback)
	}
	if slug == "" {
		return "", ErrEmptySlug
	}
	return slug, nil
}

// SuffixedSlug returns the n-th disambiguated form of base ("acme" -> "acme-1").
// base is shortened so the result never exceeds MaxSlugLength.
func SuffixedSlug(base string, n int) string {
	suffix := fmt.Sprintf("-%d", n)
	return truncateSlug(base, constants.MaxSlugLength-len(suffix)) + suffix
}

func slugify(s string) string {
	lower := strings.ToLower(strings.TrimSpace(stripAccents(s)))
	slug := nonSlugChars.ReplaceAllString(lower, "-")
	return truncateSlug(strings.Trim(slug, "-"), constants.MaxSlugLength)
}

// truncateSlug cuts slug to at most limit bytes without leaving a trailing
// hyphen. Slugs are ASCII, so byte and character counts agree.
func truncateSlug(slug string, limit int) string {
	if len(slug) <= limit {
		return slug
	}
	return strings.TrimRight(slug[:limit], "-")
}

// stripAccents folds "Équipe" to "Equipe" by dropping combining marks.
func stripAccents(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if r >= 0x0300 && r <= 0x036f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
