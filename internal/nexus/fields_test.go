package nexus

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"grantcloser/internal/services"
)

func rawElements(t *testing.T, elements ...string) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(elements))
	for _, element := range elements {
		out = append(out, json.RawMessage(element))
	}
	return out
}

func TestDecodeFieldsReadsKnownElements(t *testing.T) {
	fields, err := DecodeFields(rawElements(t,
		`{"type":"basketGrantEndDate","date":"2023-01-01T00:00:00.000+0100"}`,
		`{"type":"plannedDate","date":"2023-01-05"}`,
		`{"type":"paragraph","paragraph":{"name":"Serviceloven","section":"§ 83"}}`,
		`{"type":"supplier","supplier":{"organization":{"name":"Leverandør A","_links":{"self":{"href":"/api/organizations/2"}}}}}`,
		`{"type":"somethingElse","whatever":[1,2,3]}`,
	))
	if err != nil {
		t.Fatalf("DecodeFields: %v", err)
	}

	wantEnd := time.Date(2022, 12, 31, 23, 0, 0, 0, time.UTC)
	if fields.EndDate == nil || !fields.EndDate.Time.Equal(wantEnd) {
		t.Fatalf("unexpected end date: %#v", fields.EndDate)
	}
	if fields.PlannedDate == nil || fields.PlannedDate.Raw != "2023-01-05" {
		t.Fatalf("unexpected planned date: %#v", fields.PlannedDate)
	}
	if fields.Paragraph == nil || fields.Paragraph.Legislation != "Serviceloven" || fields.Paragraph.Section != "§ 83" {
		t.Fatalf("unexpected paragraph: %#v", fields.Paragraph)
	}
	if fields.Supplier == nil || fields.Supplier.OrganizationName != "Leverandør A" {
		t.Fatalf("unexpected supplier: %#v", fields.Supplier)
	}
}

func TestDecodeFieldsTreatsNullAsAbsent(t *testing.T) {
	fields, err := DecodeFields(rawElements(t,
		`{"type":"basketGrantEndDate","date":null}`,
		`{"type":"plannedDate"}`,
		`{"type":"paragraph","paragraph":null}`,
		`{"type":"supplier","supplier":{"organization":null}}`,
	))
	if err != nil {
		t.Fatalf("DecodeFields: %v", err)
	}
	if fields.EndDate != nil || fields.PlannedDate != nil || fields.Paragraph != nil || fields.Supplier != nil {
		t.Fatalf("expected all fields absent, got %#v", fields)
	}
}

func TestDecodeFieldsTreatsUnusableValuesAsAbsent(t *testing.T) {
	fields, err := DecodeFields(rawElements(t,
		`{"type":"paragraph","paragraph":{"name":"Serviceloven","section":""}}`,
		`{"type":"supplier","supplier":{"organization":{}}}`,
	))
	if err != nil {
		t.Fatalf("DecodeFields: %v", err)
	}
	if fields.Paragraph != nil {
		t.Fatalf("expected no paragraph, got %#v", fields.Paragraph)
	}
	if fields.Supplier != nil {
		t.Fatalf("expected no supplier, got %#v", fields.Supplier)
	}
}

func TestDecodeFieldsSupplierByName(t *testing.T) {
	fields, err := DecodeFields(rawElements(t, `{"type":"supplier","supplier":{"organization":"Leverandør B"}}`))
	if err != nil {
		t.Fatalf("DecodeFields: %v", err)
	}
	if fields.Supplier == nil || fields.Supplier.OrganizationName != "Leverandør B" {
		t.Fatalf("unexpected supplier: %#v", fields.Supplier)
	}
}

func TestDecodeFieldsNamesMalformedField(t *testing.T) {
	cases := map[string]string{
		"basketGrantEndDate": `{"type":"basketGrantEndDate","date":"next tuesday"}`,
		"plannedDate":        `{"type":"plannedDate","date":20230105}`,
		"paragraph":          `{"type":"paragraph","paragraph":"§ 83"}`,
	}
	for field, element := range cases {
		_, err := DecodeFields(rawElements(t, element))
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", field, err)
		}
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("%s: error should name the field: %v", field, err)
		}
	}
}

func TestParseDateLayouts(t *testing.T) {
	for _, value := range []string{
		"2023-01-05",
		"2023-01-05T00:00:00Z",
		"2023-01-05T00:00:00.000+0000",
		"2023-01-05T00:00:00",
	} {
		got, err := ParseDate(value)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", value, err)
		}
		if !got.Equal(time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("ParseDate(%q) = %v", value, got)
		}
	}
}
