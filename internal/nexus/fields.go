package nexus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"grantcloser/internal/services"
)

// Element types read from a grant's currentElements.
const (
	ElementEndDate     = "basketGrantEndDate"
	ElementPlannedDate = "plannedDate"
	ElementParagraph   = "paragraph"
	ElementSupplier    = "supplier"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Date is a decoded date element. Raw keeps the wire value so it can be sent
// back to Nexus unchanged.
type Date struct {
	Time time.Time
	Raw  string
}

// Paragraph is the legal basis recorded on a grant.
type Paragraph struct {
	Legislation string
	Section     string
}

// SupplierRef identifies the supplier organization delivering a grant.
type SupplierRef struct {
	OrganizationName string
	Links            Links
}

// GrantFields is the validated view of a grant's element bag. Absent elements
// are nil.
type GrantFields struct {
	EndDate     *Date
	PlannedDate *Date
	Paragraph   *Paragraph
	Supplier    *SupplierRef
}

type elementHeader struct {
	Type string `json:"type"`
}

// DecodeFields converts raw grant elements into GrantFields. Unknown element
// types are ignored. A paragraph without a section, or a supplier organization
// with neither name nor link, decodes as absent. A known element with an
// unexpected shape yields an error wrapping services.ErrValidation that names
// the element.
func DecodeFields(elements []json.RawMessage) (GrantFields, error) {
	var fields GrantFields
	for i, raw := range elements {
		var header elementHeader
		if err := json.Unmarshal(raw, &header); err != nil {
			return GrantFields{}, fieldError(fmt.Sprintf("element %d", i), err)
		}
		var err error
		switch header.Type {
		case ElementEndDate:
			fields.EndDate, err = decodeDate(raw)
		case ElementPlannedDate:
			fields.PlannedDate, err = decodeDate(raw)
		case ElementParagraph:
			fields.Paragraph, err = decodeParagraph(raw)
		case ElementSupplier:
			fields.Supplier, err = decodeSupplier(raw)
		default:
			continue
		}
		if err != nil {
			return GrantFields{}, fieldError(header.Type, err)
		}
	}
	return fields, nil
}

func fieldError(field string, err error) error {
	return services.Wrap(services.ErrValidation, component, "decode fields", "field "+field, err)
}

func decodeDate(raw json.RawMessage) (*Date, error) {
	var element struct {
		Date  *string `json:"date"`
		Value *string `json:"value"`
	}
	if err := json.Unmarshal(raw, &element); err != nil {
		return nil, err
	}
	value := element.Date
	if value == nil {
		value = element.Value
	}
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := ParseDate(*value)
	if err != nil {
		return nil, err
	}
	return &Date{Time: parsed, Raw: *value}, nil
}

// ParseDate parses the date formats Nexus emits. Values without a zone are
// taken as UTC.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

func decodeParagraph(raw json.RawMessage) (*Paragraph, error) {
	var element struct {
		Paragraph *struct {
			Name    string `json:"name"`
			Section string `json:"section"`
		} `json:"paragraph"`
	}
	if err := json.Unmarshal(raw, &element); err != nil {
		return nil, err
	}
	if element.Paragraph == nil {
		return nil, nil
	}
	paragraph := &Paragraph{
		Legislation: strings.TrimSpace(element.Paragraph.Name),
		Section:     strings.TrimSpace(element.Paragraph.Section),
	}
	if paragraph.Section == "" {
		return nil, nil
	}
	return paragraph, nil
}

func decodeSupplier(raw json.RawMessage) (*SupplierRef, error) {
	var element struct {
		Supplier *struct {
			Organization json.RawMessage `json:"organization"`
		} `json:"supplier"`
	}
	if err := json.Unmarshal(raw, &element); err != nil {
		return nil, err
	}
	if element.Supplier == nil {
		return nil, nil
	}
	org := bytes.TrimSpace(element.Supplier.Organization)
	if len(org) == 0 || bytes.Equal(org, []byte("null")) {
		return nil, nil
	}
	if org[0] == '"' {
		var name string
		if err := json.Unmarshal(org, &name); err != nil {
			return nil, err
		}
		if name = strings.TrimSpace(name); name == "" {
			return nil, nil
		}
		return &SupplierRef{OrganizationName: name}, nil
	}
	var object struct {
		Name  string `json:"name"`
		Links Links  `json:"_links"`
	}
	if err := json.Unmarshal(org, &object); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(object.Name)
	if name == "" && object.Links.Self() == "" {
		return nil, nil
	}
	return &SupplierRef{OrganizationName: name, Links: object.Links}, nil
}
