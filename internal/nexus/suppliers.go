package nexus

import (
	"context"
	"fmt"
	"strings"

	"grantcloser/internal/services"
)

const (
	relSchedulingCalendars = "availableSchedulingCalendars"
	relOrderGrants         = "orderGrants"
	relExecuteAction       = "executeAction"

	// OrderGrantType is the type tag of order grant entries in a listing.
	OrderGrantType = "order-grant"
)

// Organization is a supplier organization.
type Organization struct {
	ID       ID              `json:"id"`
	Name     string          `json:"name"`
	Children []*Organization `json:"children,omitempty"`
	Links    Links           `json:"_links"`
}

// SchedulingCalendar is a supplier scheduling calendar. The listing returns
// summaries; Calendar fetches the detail carrying the orderGrants link.
type SchedulingCalendar struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Links Links  `json:"_links"`
}

// OrderGrantPage is one page of a calendar's order grant listing.
type OrderGrantPage struct {
	Links Links `json:"_links"`
}

// Action is an executable action on an order grant.
type Action struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Links Links  `json:"_links"`
}

// OrderGrant is a supplier-side order tied to a basket grant.
type OrderGrant struct {
	ID      ID       `json:"id"`
	Type    string   `json:"type"`
	Actions []Action `json:"actions"`
	Links   Links    `json:"_links"`
}

// MatchesOrderID reports whether the order grant's self link ends with
// "/<id>".
func (o *OrderGrant) MatchesOrderID(id ID) bool {
	if o == nil || id == "" || o.Type != OrderGrantType {
		return false
	}
	return strings.HasSuffix(o.Links.Self(), "/"+id.String())
}

// Action returns the action with the given name.
func (o *OrderGrant) Action(name string) (*Action, bool) {
	if o == nil {
		return nil, false
	}
	for i := range o.Actions {
		if o.Actions[i].Name == name {
			return &o.Actions[i], true
		}
	}
	return nil, false
}

// OrganizationByName searches the organization tree for an exact name match.
// It returns nil, nil when no organization has the name.
func (c *Client) OrganizationByName(ctx context.Context, name string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	home, err := c.Home(ctx)
	if err != nil {
		return nil, err
	}
	href := home.Links.Href(relOrganizations)
	if href == "" {
		return nil, services.Wrap(services.ErrValidation, component, "organization by name", "home document has no organizations link", nil)
	}
	var roots []*Organization
	if err := c.GetJSON(ctx, href, &roots); err != nil {
		return nil, err
	}
	return findOrganization(roots, name), nil
}

func findOrganization(nodes []*Organization, name string) *Organization {
	for _, node := range nodes {
		if node == nil {
			continue
		}
		if node.Name == name {
			return node
		}
		if found := findOrganization(node.Children, name); found != nil {
			return found
		}
	}
	return nil
}

// SchedulingCalendars lists the organization's scheduling calendars. An
// organization without a calendars link has none.
func (c *Client) SchedulingCalendars(ctx context.Context, org *Organization) ([]SchedulingCalendar, error) {
	if org == nil {
		return nil, nil
	}
	href := org.Links.Href(relSchedulingCalendars)
	if href == "" {
		return nil, nil
	}
	var calendars []SchedulingCalendar
	if err := c.GetJSON(ctx, href, &calendars); err != nil {
		return nil, fmt.Errorf("list calendars for %q: %w", org.Name, err)
	}
	return calendars, nil
}

// Calendar fetches the full calendar behind a listing entry.
func (c *Client) Calendar(ctx context.Context, calendar SchedulingCalendar) (*SchedulingCalendar, error) {
	var detail SchedulingCalendar
	if err := c.GetJSON(ctx, calendar.Links.Self(), &detail); err != nil {
		return nil, fmt.Errorf("fetch calendar %q: %w", calendar.Name, err)
	}
	return &detail, nil
}

// OrderGrantPages fetches the page index of a calendar's order grants.
func (c *Client) OrderGrantPages(ctx context.Context, calendar *SchedulingCalendar) ([]OrderGrantPage, error) {
	if calendar == nil {
		return nil, nil
	}
	href := calendar.Links.Href(relOrderGrants)
	if href == "" {
		return nil, nil
	}
	var index struct {
		Pages []OrderGrantPage `json:"pages"`
	}
	if err := c.GetJSON(ctx, href, &index); err != nil {
		return nil, fmt.Errorf("list order grant pages for %q: %w", calendar.Name, err)
	}
	return index.Pages, nil
}

// OrderGrants fetches the order grants on one page.
func (c *Client) OrderGrants(ctx context.Context, page OrderGrantPage) ([]OrderGrant, error) {
	href := page.Links.Href(relOrderGrants)
	if href == "" {
		return nil, nil
	}
	var orders []OrderGrant
	if err := c.GetJSON(ctx, href, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ExecuteAction runs an order grant action with a bodiless PUT.
func (c *Client) ExecuteAction(ctx context.Context, action *Action) error {
	if action == nil {
		return services.Wrap(services.ErrValidation, component, "execute action", "action is nil", nil)
	}
	href := action.Links.Href(relExecuteAction)
	if href == "" {
		return services.Wrap(services.ErrValidation, component, "execute action", fmt.Sprintf("action %q has no execute link", action.Name), nil)
	}
	return c.Put(ctx, href, nil, nil)
}
