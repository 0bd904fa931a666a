package nexus

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Link is a single HAL hyperlink.
type Link struct {
	Href string `json:"href"`
}

// Links maps relation names to hyperlinks.
type Links map[string]Link

// Href returns the hyperlink for rel, or "" when absent.
func (l Links) Href(rel string) string {
	if l == nil {
		return ""
	}
	return strings.TrimSpace(l[rel].Href)
}

// Self returns the self hyperlink.
func (l Links) Self() string {
	return l.Href("self")
}

// ID is an entity identifier that Nexus renders either as a JSON number or a
// string.
type ID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier text.
func (id ID) String() string {
	return string(id)
}
