package closure

import (
	"context"
	"errors"
	"testing"
	"time"

	"grantcloser/internal/logging"
	"grantcloser/internal/nexus"
	"grantcloser/internal/rules"
	"grantcloser/internal/services"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testCatalog() *rules.Catalog {
	return rules.New(
		[]string{"Hjemmehjælp", "Aktivitet i Huset"},
		[]rules.ParagraphRule{{Section: "§ 83", Legislation: "Serviceloven"}},
	)
}

func newTestFilter(client PathwayReader) *Filter {
	return NewFilter(client, testCatalog(), func() time.Time { return fixedNow }, logging.NewNop())
}

func grantNames(grants []*nexus.Grant) []string {
	names := make([]string, 0, len(grants))
	for _, g := range grants {
		names = append(names, g.Name)
	}
	return names
}

func TestFindEligibleExcludesMissingOrFutureEndDate(t *testing.T) {
	fake := newFakeNexus()
	fake.setPathway(
		fake.addGrant(t, 1, grantFixture{name: "Hjemmehjælp"}),
		fake.addGrant(t, 2, grantFixture{name: "Hjemmehjælp", endDate: "2024-06-02"}),
		fake.addGrant(t, 3, grantFixture{name: "Hjemmehjælp", endDate: "2024-06-01T12:00:00Z"}),
		fake.addGrant(t, 4, grantFixture{name: "Hjemmehjælp", endDate: "2024-05-31"}),
	)

	eligible, err := newTestFilter(fake).FindEligible(context.Background(), &nexus.Patient{})
	if err != nil {
		t.Fatalf("FindEligible: %v", err)
	}
	if len(eligible) != 1 || eligible[0].ID != "4" {
		t.Fatalf("expected only grant 4, got %v", grantNames(eligible))
	}
}

func TestFindEligibleRuleMatching(t *testing.T) {
	cases := []struct {
		name  string
		grant grantFixture
		want  bool
	}{
		{"approved name ignores paragraph", grantFixture{name: "Hjemmehjælp", section: "§ 999", legislation: "Ukendt"}, true},
		{"approved name without paragraph", grantFixture{name: "Hjemmehjælp"}, true},
		{"paragraph match", grantFixture{name: "Træning", section: "§ 83", legislation: "Serviceloven"}, true},
		{"paragraph match ignores case", grantFixture{name: "Træning", section: "§ 83", legislation: "SERVICELOVEN"}, true},
		{"legislation differs", grantFixture{name: "Træning", section: "§ 83", legislation: "Sundhedsloven"}, false},
		{"section unmapped", grantFixture{name: "Træning", section: "§ 86", legislation: "Serviceloven"}, false},
		{"no paragraph", grantFixture{name: "Træning"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFakeNexus()
			tc.grant.endDate = "2023-01-01"
			fake.setPathway(fake.addGrant(t, 1, tc.grant))

			eligible, err := newTestFilter(fake).FindEligible(context.Background(), &nexus.Patient{})
			if err != nil {
				t.Fatalf("FindEligible: %v", err)
			}
			if got := len(eligible) == 1; got != tc.want {
				t.Fatalf("included=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestFindEligibleKeepsPathwayOrderAndState(t *testing.T) {
	fake := newFakeNexus()
	fake.setPathway(
		fake.addGrant(t, 1, grantFixture{name: "Hjemmehjælp", endDate: "2023-03-01"}),
		fake.addGrant(t, 2, grantFixture{name: "Hjemmehjælp", endDate: "2023-01-01", state: "Bevilliget"}),
		fake.addGrant(t, 3, grantFixture{name: "Træning", endDate: "2023-02-01", section: "§ 83", legislation: "serviceloven"}),
	)

	eligible, err := newTestFilter(fake).FindEligible(context.Background(), &nexus.Patient{})
	if err != nil {
		t.Fatalf("FindEligible: %v", err)
	}
	if len(eligible) != 2 || eligible[0].ID != "1" || eligible[1].ID != "3" {
		t.Fatalf("unexpected eligible grants: %v", grantNames(eligible))
	}
}

func TestFindEligibleMissingPathwayIsBusinessError(t *testing.T) {
	fake := newFakeNexus()
	fake.view = nil

	_, err := newTestFilter(fake).FindEligible(context.Background(), &nexus.Patient{
		PatientIdentifier: nexus.PatientIdentifier{Identifier: "0101011234"},
	})
	if !services.IsBusiness(err) {
		t.Fatalf("expected business error, got %v", err)
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found marker, got %v", err)
	}
}

func TestFindEligibleSkipsGrantWithMalformedDate(t *testing.T) {
	fake := newFakeNexus()
	first := fake.addGrant(t, 1, grantFixture{name: "Hjemmehjælp", endDate: "2023-01-01"})
	broken := fake.addGrant(t, 2, grantFixture{name: "Hjemmehjælp"})
	fake.addRawElement(t, 2, `{"type":"basketGrantEndDate","date":"not a date"}`)
	last := fake.addGrant(t, 3, grantFixture{name: "Træning", endDate: "2023-02-01", section: "§ 83", legislation: "Serviceloven"})
	fake.setPathway(first, broken, last)

	eligible, err := newTestFilter(fake).FindEligible(context.Background(), &nexus.Patient{})
	if err != nil {
		t.Fatalf("FindEligible: %v", err)
	}
	if len(eligible) != 2 || eligible[0].ID != "1" || eligible[1].ID != "3" {
		t.Fatalf("expected grants 1 and 3, got %v", grantNames(eligible))
	}
}

func TestFindEligibleApprovedNameWithEmptySection(t *testing.T) {
	fake := newFakeNexus()
	ref := fake.addGrant(t, 1, grantFixture{name: "Hjemmehjælp", endDate: "2023-01-01"})
	fake.addRawElement(t, 1, `{"type":"paragraph","paragraph":{"name":"Serviceloven","section":""}}`)
	fake.setPathway(ref)

	eligible, err := newTestFilter(fake).FindEligible(context.Background(), &nexus.Patient{})
	if err != nil {
		t.Fatalf("FindEligible: %v", err)
	}
	if len(eligible) != 1 || eligible[0].ID != "1" {
		t.Fatalf("expected grant 1, got %v", grantNames(eligible))
	}
}

func TestFindEligibleIgnoresUnusableSupplierOnSibling(t *testing.T) {
	fake := newFakeNexus()
	due := fake.addGrant(t, 1, grantFixture{name: "Hjemmehjælp", endDate: "2023-01-01"})
	future := fake.addGrant(t, 2, grantFixture{name: "Hjemmehjælp", endDate: "2025-01-01"})
	fake.addRawElement(t, 2, `{"type":"supplier","supplier":{"organization":{}}}`)
	fake.setPathway(due, future)

	eligible, err := newTestFilter(fake).FindEligible(context.Background(), &nexus.Patient{})
	if err != nil {
		t.Fatalf("FindEligible: %v", err)
	}
	if len(eligible) != 1 || eligible[0].ID != "1" {
		t.Fatalf("expected grant 1, got %v", grantNames(eligible))
	}
}
