package rules

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// ParagraphRule pairs a paragraph section with the legislation it belongs to.
type ParagraphRule struct {
	Section     string
	Legislation string
}

// Catalog is the read-only set of approved grant names and section to
// legislation mappings.
type Catalog struct {
	names    map[string]struct{}
	sections map[string]string
}

// New builds a catalog. Blank names and rules are ignored; when a section
// appears more than once the last rule wins.
func New(names []string, paragraphs []ParagraphRule) *Catalog {
	c := &Catalog{
		names:    make(map[string]struct{}, len(names)),
		sections: make(map[string]string, len(paragraphs)),
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c.names[name] = struct{}{}
	}
	for _, rule := range paragraphs {
		section := strings.TrimSpace(rule.Section)
		legislation := strings.TrimSpace(rule.Legislation)
		if section == "" || legislation == "" {
			continue
		}
		c.sections[section] = legislation
	}
	return c
}

// IsApprovedName reports whether grants with this name always qualify.
func (c *Catalog) IsApprovedName(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.names[strings.TrimSpace(name)]
	return ok
}

// LegislationFor returns the legislation mapped to a paragraph section.
func (c *Catalog) LegislationFor(section string) (string, bool) {
	if c == nil {
		return "", false
	}
	legislation, ok := c.sections[strings.TrimSpace(section)]
	return legislation, ok
}

// MatchesParagraph reports whether the section is mapped and its legislation
// equals the given one, ignoring case.
func (c *Catalog) MatchesParagraph(section, legislation string) bool {
	expected, ok := c.LegislationFor(section)
	if !ok {
		return false
	}
	fold := cases.Fold()
	return fold.String(expected) == fold.String(strings.TrimSpace(legislation))
}

// Names returns the approved names in sorted order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.names))
	for name := range c.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Paragraphs returns the section rules sorted by section.
func (c *Catalog) Paragraphs() []ParagraphRule {
	if c == nil {
		return nil
	}
	out := make([]ParagraphRule, 0, len(c.sections))
	for section, legislation := range c.sections {
		out = append(out, ParagraphRule{Section: section, Legislation: legislation})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Section < out[j].Section })
	return out
}
