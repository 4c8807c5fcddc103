package extract

import (
	"strings"

	"ddfeed/internal/document"

	"github.com/antzucaro/matchr"
)

// DefaultSectionTitle is the section the flow looks for on the home feed.
const DefaultSectionTitle = "Now on DoorDash"

// facetFeedPrefix marks a click uri that references a feed section.
const facetFeedPrefix = "facet_feed/"

// SectionToken is the opaque value passed back to the feed endpoint to
// request a single section.
type SectionToken string

// TitlePredicate decides if a (trimmed) section title is the one being
// searched for.
type TitlePredicate func(title string) bool

// TitleContains matches titles containing phrase, ignoring case.
func TitleContains(phrase string) TitlePredicate {
	phrase = strings.ToLower(phrase)
	return func(title string) bool {
		return strings.Contains(strings.ToLower(title), phrase)
	}
}

// TitleSimilar matches titles that contain phrase or whose Jaro-Winkler
// similarity to it is at least threshold (0 to 1), ignoring case.
func TitleSimilar(phrase string, threshold float64) TitlePredicate {
	contains := TitleContains(phrase)
	phrase = strings.ToLower(phrase)
	return func(title string) bool {
		if contains(title) {
			return true
		}
		return matchr.JaroWinkler(strings.ToLower(title), phrase, false) >= threshold
	}
}

// FindToken returns the section token of the first mapping, in depth-first
// document order, whose `text.title` satisfies match and whose
// `events.click.data.uri` references a feed section. A title match without a
// usable uri does not end the search.
func FindToken(doc document.Node, match TitlePredicate) (SectionToken, bool) {
	var found SectionToken
	document.Walk(doc, document.VisitorFuncs{
		Mapping: func(_ document.Path, m *document.Mapping) error {
			token, ok := sectionToken(m, match)
			if !ok {
				return nil
			}
			found = token
			return document.StopWalk
		},
	})
	return found, found != ""
}

func sectionToken(m *document.Mapping, match TitlePredicate) (SectionToken, bool) {
	text, ok := m.Mapping("text")
	if !ok {
		return "", false
	}
	title, ok := text.String("title")
	if !ok {
		return "", false
	}
	title = strings.TrimSpace(title)
	if title == "" || !match(title) {
		return "", false
	}

	uriNode, ok := m.Lookup("events", "click", "data", "uri")
	if !ok {
		return "", false
	}
	uri, ok := document.Scalar(uriNode)
	if !ok {
		return "", false
	}
	return TokenFromUri(uri)
}

// TokenFromUri strips the feed section prefix and an optional trailing
// slash off of a click uri.
func TokenFromUri(uri string) (SectionToken, bool) {
	if !strings.HasPrefix(uri, facetFeedPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(uri, facetFeedPrefix)
	token = strings.TrimSuffix(token, "/")
	if token == "" {
		return "", false
	}
	return SectionToken(token), true
}
