package closure

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"grantcloser/internal/nexus"
)

type appliedTransition struct {
	grant   string
	name    string
	changes map[string]any
}

// fakeNexus is an in-memory stand-in for the Nexus client. Applying a
// transition removes it from the stored grant so a refresh sees the next
// state.
type fakeNexus struct {
	view        *nexus.View
	roots       []*nexus.ReferenceNode
	grants      map[string]*nexus.Grant
	applied     []appliedTransition
	refreshes   int
	applyErr    error
	orgs        map[string]*nexus.Organization
	calendars   map[string][]nexus.SchedulingCalendar
	details     map[string]*nexus.SchedulingCalendar
	pages       map[string][]nexus.OrderGrantPage
	orders      map[string][]nexus.OrderGrant
	orderCalls  []string
	executed    []*nexus.Action
	supplierHit int

	// orderIDs is the order grant id Nexus assigns to a grant once Bestil
	// is applied, keyed by grant self link.
	orderIDs map[string]nexus.ID
}

func newFakeNexus() *fakeNexus {
	return &fakeNexus{
		view:      &nexus.View{Name: PathwayViewName},
		grants:    map[string]*nexus.Grant{},
		orgs:      map[string]*nexus.Organization{},
		calendars: map[string][]nexus.SchedulingCalendar{},
		details:   map[string]*nexus.SchedulingCalendar{},
		pages:     map[string][]nexus.OrderGrantPage{},
		orders:    map[string][]nexus.OrderGrant{},
		orderIDs:  map[string]nexus.ID{},
	}
}

func (f *fakeNexus) PathwayView(_ context.Context, _ *nexus.Patient, name string) (*nexus.View, error) {
	if f.view == nil || f.view.Name != name {
		return nil, nil
	}
	return f.view, nil
}

func (f *fakeNexus) PathwayReferences(context.Context, *nexus.View) ([]*nexus.ReferenceNode, error) {
	return f.roots, nil
}

func (f *fakeNexus) Resolve(_ context.Context, node *nexus.ReferenceNode) (*nexus.Grant, error) {
	grant, ok := f.grants[node.Links.Href("referencedObject")]
	if !ok {
		return nil, fmt.Errorf("no grant behind %q", node.Name)
	}
	clone := *grant
	return &clone, nil
}

func (f *fakeNexus) ApplyTransition(_ context.Context, grant *nexus.Grant, name string, changes map[string]any) (*nexus.Grant, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	if !grant.Offers(name) {
		return nil, fmt.Errorf("transition %q not offered", name)
	}
	f.applied = append(f.applied, appliedTransition{grant: grant.Name, name: name, changes: changes})
	if stored, ok := f.grants[grant.Links.Self()]; ok {
		remaining := stored.Transitions[:0:0]
		for _, t := range stored.Transitions {
			if t.Name != name {
				remaining = append(remaining, t)
			}
		}
		stored.Transitions = remaining
		stored.WorkflowState = &nexus.WorkflowState{Name: name}
		if id, ok := f.orderIDs[grant.Links.Self()]; ok && name == TransitionOrder {
			stored.CurrentOrderGrantID = id
		}
	}
	clone := *grant
	return &clone, nil
}

func (f *fakeNexus) Refresh(_ context.Context, grant *nexus.Grant) (*nexus.Grant, error) {
	f.refreshes++
	stored, ok := f.grants[grant.Links.Self()]
	if !ok {
		return nil, fmt.Errorf("unknown grant %q", grant.Links.Self())
	}
	clone := *stored
	return &clone, nil
}

func (f *fakeNexus) OrganizationByName(_ context.Context, name string) (*nexus.Organization, error) {
	f.supplierHit++
	return f.orgs[name], nil
}

func (f *fakeNexus) SchedulingCalendars(_ context.Context, org *nexus.Organization) ([]nexus.SchedulingCalendar, error) {
	return f.calendars[org.Name], nil
}

func (f *fakeNexus) Calendar(_ context.Context, calendar nexus.SchedulingCalendar) (*nexus.SchedulingCalendar, error) {
	detail, ok := f.details[calendar.Links.Self()]
	if !ok {
		return nil, fmt.Errorf("unknown calendar %q", calendar.Name)
	}
	return detail, nil
}

func (f *fakeNexus) OrderGrantPages(_ context.Context, calendar *nexus.SchedulingCalendar) ([]nexus.OrderGrantPage, error) {
	return f.pages[calendar.Links.Href("orderGrants")], nil
}

func (f *fakeNexus) OrderGrants(_ context.Context, page nexus.OrderGrantPage) ([]nexus.OrderGrant, error) {
	href := page.Links.Href("orderGrants")
	f.orderCalls = append(f.orderCalls, href)
	return f.orders[href], nil
}

func (f *fakeNexus) ExecuteAction(_ context.Context, action *nexus.Action) error {
	f.executed = append(f.executed, action)
	return nil
}

type grantFixture struct {
	name        string
	state       string
	endDate     string
	plannedDate string
	section     string
	legislation string
	supplier    string
	orderID     string
	transitions []string
}

// addGrant stores a grant and returns the reference node pointing at it.
func (f *fakeNexus) addGrant(t *testing.T, id int, fx grantFixture) *nexus.ReferenceNode {
	t.Helper()
	if fx.state == "" {
		fx.state = StatePlannedNotOrdered
	}
	self := fmt.Sprintf("/grants/%d", id)
	var elements []json.RawMessage
	addElement := func(v any) {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal element: %v", err)
		}
		elements = append(elements, data)
	}
	if fx.endDate != "" {
		addElement(map[string]any{"type": nexus.ElementEndDate, "date": fx.endDate})
	}
	if fx.plannedDate != "" {
		addElement(map[string]any{"type": nexus.ElementPlannedDate, "date": fx.plannedDate})
	}
	if fx.section != "" {
		addElement(map[string]any{"type": nexus.ElementParagraph, "paragraph": map[string]any{"name": fx.legislation, "section": fx.section}})
	}
	if fx.supplier != "" {
		addElement(map[string]any{"type": nexus.ElementSupplier, "supplier": map[string]any{"organization": map[string]any{"name": fx.supplier}}})
	}
	transitions := make([]nexus.Transition, 0, len(fx.transitions))
	for _, name := range fx.transitions {
		transitions = append(transitions, nexus.Transition{Name: name})
	}
	f.grants[self] = &nexus.Grant{
		ID:                  nexus.ID(fmt.Sprint(id)),
		Name:                fx.name,
		WorkflowState:       &nexus.WorkflowState{Name: fx.state},
		Transitions:         transitions,
		CurrentOrderGrantID: nexus.ID(fx.orderID),
		Elements:            elements,
		Links:               nexus.Links{"self": {Href: self}},
	}
	return &nexus.ReferenceNode{
		Type:          "basketGrantReference",
		Name:          fx.name,
		WorkflowState: &nexus.WorkflowState{Name: fx.state},
		Links:         nexus.Links{"referencedObject": {Href: self}},
	}
}

// addRawElement appends a verbatim element to a stored grant.
func (f *fakeNexus) addRawElement(t *testing.T, id int, raw string) {
	t.Helper()
	grant, ok := f.grants[fmt.Sprintf("/grants/%d", id)]
	if !ok {
		t.Fatalf("no grant %d", id)
	}
	grant.Elements = append(grant.Elements, json.RawMessage(raw))
}

// setPathway places grant references under the "Indsatser" folder of one
// pathway.
func (f *fakeNexus) setPathway(refs ...*nexus.ReferenceNode) {
	f.roots = []*nexus.ReferenceNode{{
		Type: "patientPathway",
		Name: "Sundhedsfagligt forløb",
		Children: []*nexus.ReferenceNode{{
			Type: "patientPathwayReference",
			Name: "Forløb",
			Children: []*nexus.ReferenceNode{{
				Type:     "folder",
				Name:     "Indsatser",
				Children: refs,
			}},
		}},
	}}
}

// addSupplier registers a supplier with one calendar and the given pages of
// order grants.
func (f *fakeNexus) addSupplier(name, calendar string, pages ...[]nexus.OrderGrant) {
	calendarSelf := "/calendars/" + calendar
	orderIndex := calendarSelf + "/orderGrants"
	f.orgs[name] = &nexus.Organization{Name: name}
	f.calendars[name] = append(f.calendars[name], nexus.SchedulingCalendar{Name: calendar, Links: nexus.Links{"self": {Href: calendarSelf}}})
	f.details[calendarSelf] = &nexus.SchedulingCalendar{Name: calendar, Links: nexus.Links{"self": {Href: calendarSelf}, "orderGrants": {Href: orderIndex}}}
	for i, orders := range pages {
		pageHref := fmt.Sprintf("%s/page/%d", orderIndex, i)
		f.pages[orderIndex] = append(f.pages[orderIndex], nexus.OrderGrantPage{Links: nexus.Links{"orderGrants": {Href: pageHref}}})
		f.orders[pageHref] = orders
	}
}

func orderGrant(self string, actions ...string) nexus.OrderGrant {
	order := nexus.OrderGrant{Type: nexus.OrderGrantType, Links: nexus.Links{"self": {Href: self}}}
	for _, name := range actions {
		order.Actions = append(order.Actions, nexus.Action{
			Name:  name,
			Links: nexus.Links{"executeAction": {Href: self + "/actions/" + name}},
		})
	}
	return order
}
