package navigation

import (
	"math"
	"strings"
)

const (
	// DefaultNavHeight is used when the fixed header height is unknown.
	DefaultNavHeight = 80.0

	// ScrollMargin is the gap left between the header and a scrolled-to section.
	ScrollMargin = 20.0

	// SpyOffset is added to the scroll position before looking up the active
	// section, so a section becomes active slightly before it reaches the top.
	SpyOffset = 150.0
)

// ScrollTarget returns the vertical scroll position that brings a section
// just below the fixed header. navHeight <= 0 uses DefaultNavHeight.
func ScrollTarget(sectionTop, navHeight float64) float64 {
	if navHeight <= 0 {
		navHeight = DefaultNavHeight
	}
	return math.Max(0, sectionTop-navHeight-ScrollMargin)
}

// AnchorID returns the section id an in-page link points to. ok is false for
// "#", empty hrefs, and links that are not in-page anchors.
func AnchorID(href string) (id string, ok bool) {
	if !strings.HasPrefix(href, "#") {
		return "", false
	}
	id = strings.TrimPrefix(href, "#")
	if id == "" {
		return "", false
	}
	return id, true
}

// Section is a page section as laid out on screen.
type Section struct {
	ID     string  `json:"id"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Contains reports whether the vertical position y falls inside s.
func (s Section) Contains(y float64) bool {
	return y >= s.Top && y < s.Top+s.Height
}

// ScrollSpy tracks which section the reader is looking at.
type ScrollSpy struct {
	sections []Section
	byID     map[string]Section
}

// NewScrollSpy returns a spy over sections in document order.
func NewScrollSpy(sections []Section) *ScrollSpy {
	byID := make(map[string]Section, len(sections))
	for _, s := range sections {
		byID[s.ID] = s
	}
	return &ScrollSpy{sections: sections, byID: byID}
}

// Active returns the id of the section under scrollY+SpyOffset, or "" when
// none matches. Later sections win when layouts overlap.
func (sp *ScrollSpy) Active(scrollY float64) string {
	mark := scrollY + SpyOffset
	current := ""
	for _, s := range sp.sections {
		if s.Contains(mark) {
			current = s.ID
		}
	}
	return current
}

// ActiveLinks returns, for each href, whether it should carry the active class.
func (sp *ScrollSpy) ActiveLinks(scrollY float64, hrefs []string) map[string]bool {
	current := sp.Active(scrollY)
	out := make(map[string]bool, len(hrefs))
	for _, h := range hrefs {
		out[h] = current != "" && h == "#"+current
	}
	return out
}

// ScrollTo returns the scroll position for the link href, or ok=false when
// the link is not an in-page anchor or the section is unknown.
func (sp *ScrollSpy) ScrollTo(href string, navHeight float64) (float64, bool) {
	id, ok := AnchorID(href)
	if !ok {
		return 0, false
	}
	s, ok := sp.byID[id]
	if !ok {
		return 0, false
	}
	return ScrollTarget(s.Top, navHeight), true
}
