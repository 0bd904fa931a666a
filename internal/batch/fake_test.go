package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"grantcloser/internal/closure"
	"grantcloser/internal/logging"
	"grantcloser/internal/nexus"
	"grantcloser/internal/persons"
	"grantcloser/internal/rules"
	"grantcloser/internal/telemetry"
)

type fakeSource struct {
	people []persons.Person
	errs   []error
	calls  int
}

func (s *fakeSource) PlannedCitizens(context.Context) ([]persons.Person, error) {
	s.calls++
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return nil, s.errs[s.calls-1]
	}
	return s.people, nil
}

// fakeNexus serves one pathway per known citizen. Applying a transition
// drops it from the stored grant.
type fakeNexus struct {
	patients        map[string][]*nexus.Grant
	noPathway       map[string]bool
	findErr         error
	grants          map[string]*nexus.Grant
	applied         []string
	refreshes       int
	supplierLookups int
}

func newFakeNexus() *fakeNexus {
	return &fakeNexus{
		patients:  map[string][]*nexus.Grant{},
		noPathway: map[string]bool{},
		grants:    map[string]*nexus.Grant{},
	}
}

func (f *fakeNexus) addCitizen(cpr string, grants ...*nexus.Grant) {
	f.patients[cpr] = grants
	for _, g := range grants {
		f.grants[g.Links.Self()] = g
	}
}

func (f *fakeNexus) FindPatient(_ context.Context, cpr string) (*nexus.Patient, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if _, ok := f.patients[cpr]; !ok {
		return nil, nil
	}
	return &nexus.Patient{
		PatientIdentifier: nexus.PatientIdentifier{Identifier: cpr},
		Links:             nexus.Links{"self": {Href: "/patients/" + cpr}},
	}, nil
}

func (f *fakeNexus) PathwayView(_ context.Context, patient *nexus.Patient, name string) (*nexus.View, error) {
	if f.noPathway[patient.CPR()] {
		return nil, nil
	}
	return &nexus.View{Name: name, Links: nexus.Links{"self": {Href: "/views/" + patient.CPR()}}}, nil
}

func (f *fakeNexus) PathwayReferences(_ context.Context, view *nexus.View) ([]*nexus.ReferenceNode, error) {
	cpr := view.Links.Self()[len("/views/"):]
	var refs []*nexus.ReferenceNode
	for _, g := range f.patients[cpr] {
		refs = append(refs, &nexus.ReferenceNode{
			Type:          "basketGrantReference",
			Name:          g.Name,
			WorkflowState: &nexus.WorkflowState{Name: closure.StatePlannedNotOrdered},
			Links:         nexus.Links{"referencedObject": {Href: g.Links.Self()}},
		})
	}
	return []*nexus.ReferenceNode{{
		Type: "patientPathway",
		Children: []*nexus.ReferenceNode{{
			Type:     "patientPathwayReference",
			Children: []*nexus.ReferenceNode{{Name: "Indsatser", Children: refs}},
		}},
	}}, nil
}

func (f *fakeNexus) Resolve(_ context.Context, node *nexus.ReferenceNode) (*nexus.Grant, error) {
	return f.Refresh(context.Background(), &nexus.Grant{Links: nexus.Links{"self": {Href: node.Links.Href("referencedObject")}}})
}

func (f *fakeNexus) ApplyTransition(_ context.Context, grant *nexus.Grant, name string, _ map[string]any) (*nexus.Grant, error) {
	f.applied = append(f.applied, name)
	stored := f.grants[grant.Links.Self()]
	var remaining []nexus.Transition
	for _, t := range stored.Transitions {
		if t.Name != name {
			remaining = append(remaining, t)
		}
	}
	stored.Transitions = remaining
	stored.WorkflowState = &nexus.WorkflowState{Name: name}
	clone := *stored
	return &clone, nil
}

func (f *fakeNexus) Refresh(_ context.Context, grant *nexus.Grant) (*nexus.Grant, error) {
	stored, ok := f.grants[grant.Links.Self()]
	if !ok {
		return nil, fmt.Errorf("unknown grant %q", grant.Links.Self())
	}
	f.refreshes++
	clone := *stored
	return &clone, nil
}

func (f *fakeNexus) OrganizationByName(context.Context, string) (*nexus.Organization, error) {
	f.supplierLookups++
	return nil, nil
}

func (f *fakeNexus) SchedulingCalendars(context.Context, *nexus.Organization) ([]nexus.SchedulingCalendar, error) {
	return nil, nil
}

func (f *fakeNexus) Calendar(context.Context, nexus.SchedulingCalendar) (*nexus.SchedulingCalendar, error) {
	return nil, nil
}

func (f *fakeNexus) OrderGrantPages(context.Context, *nexus.SchedulingCalendar) ([]nexus.OrderGrantPage, error) {
	return nil, nil
}

func (f *fakeNexus) OrderGrants(context.Context, nexus.OrderGrantPage) ([]nexus.OrderGrant, error) {
	return nil, nil
}

func (f *fakeNexus) ExecuteAction(context.Context, *nexus.Action) error {
	return nil
}

func newGrant(t *testing.T, id int, name string, transitions []string, elements ...map[string]any) *nexus.Grant {
	t.Helper()
	grant := &nexus.Grant{
		ID:            nexus.ID(fmt.Sprint(id)),
		Name:          name,
		WorkflowState: &nexus.WorkflowState{Name: closure.StatePlannedNotOrdered},
		Links:         nexus.Links{"self": {Href: fmt.Sprintf("/grants/%d", id)}},
	}
	for _, name := range transitions {
		grant.Transitions = append(grant.Transitions, nexus.Transition{Name: name})
	}
	for _, element := range elements {
		data, err := json.Marshal(element)
		if err != nil {
			t.Fatalf("marshal element: %v", err)
		}
		grant.Elements = append(grant.Elements, data)
	}
	return grant
}

func dateElement(kind, value string) map[string]any {
	return map[string]any{"type": kind, "date": value}
}

func supplierElement(name string) map[string]any {
	return map[string]any{"type": nexus.ElementSupplier, "supplier": map[string]any{"organization": name}}
}

func testPipeline(fake *fakeNexus, tracker telemetry.Tracker) Pipeline {
	catalog := rules.New([]string{"Hjemmehjælp", "Aktivitet i Huset"}, nil)
	now := func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	logger := logging.NewNop()
	return Pipeline{
		Patients:     fake,
		Filter:       closure.NewFilter(fake, catalog, now, logger),
		Orchestrator: closure.NewOrchestrator(fake, tracker, "test", logger),
		Scheduler:    closure.NewScheduler(fake, tracker, "test", logger),
	}
}
