package content

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerCaser = cases.Lower(language.Und)

// NormalizeTagName lowercases the name and collapses whitespace runs into a
// single hyphen, so "The  Morning Shot" and "the morning shot" share a tag.
func NormalizeTagName(name string) string {
	return strings.Join(strings.Fields(lowerCaser.String(name)), "-")
}

// NewTag builds a tag with a normalized name.
func NewTag(name string, tagType TagType) Tag {
	return Tag{Name: NormalizeTagName(name), Type: tagType}
}

// SourceTag returns the source tag for a feed title, using fallback when the
// title is blank.
func SourceTag(title, fallback string) Tag {
	if strings.TrimSpace(title) == "" {
		title = fallback
	}
	return NewTag(title, TagTypeSource)
}

// DedupeTags drops repeated (name, type) pairs, keeping the first occurrence.
func DedupeTags(tags []Tag) []Tag {
	if len(tags) == 0 {
		return tags
	}

	type key struct {
		name    string
		tagType TagType
	}
	seen := make(map[key]bool, len(tags))
	result := make([]Tag, 0, len(tags))
	for _, tag := range tags {
		if tag.Name == "" {
			continue
		}
		k := key{tag.Name, tag.Type}
		if seen[k] {
			continue
		}
		seen[k] = true
		result = append(result, tag)
	}
	return result
}
