package closure

import (
	"context"

	"grantcloser/internal/nexus"
)

// PathwayReader reads a citizen's pathway and resolves grant references.
type PathwayReader interface {
	PathwayView(ctx context.Context, patient *nexus.Patient, name string) (*nexus.View, error)
	PathwayReferences(ctx context.Context, view *nexus.View) ([]*nexus.ReferenceNode, error)
	Resolve(ctx context.Context, node *nexus.ReferenceNode) (*nexus.Grant, error)
}

// GrantEditor applies workflow transitions to grants.
type GrantEditor interface {
	ApplyTransition(ctx context.Context, grant *nexus.Grant, name string, changes map[string]any) (*nexus.Grant, error)
	Refresh(ctx context.Context, grant *nexus.Grant) (*nexus.Grant, error)
}

// SupplierCalendars walks supplier organizations down to order grant actions.
type SupplierCalendars interface {
	OrganizationByName(ctx context.Context, name string) (*nexus.Organization, error)
	SchedulingCalendars(ctx context.Context, org *nexus.Organization) ([]nexus.SchedulingCalendar, error)
	Calendar(ctx context.Context, calendar nexus.SchedulingCalendar) (*nexus.SchedulingCalendar, error)
	OrderGrantPages(ctx context.Context, calendar *nexus.SchedulingCalendar) ([]nexus.OrderGrantPage, error)
	OrderGrants(ctx context.Context, page nexus.OrderGrantPage) ([]nexus.OrderGrant, error)
	ExecuteAction(ctx context.Context, action *nexus.Action) error
}

var (
	_ PathwayReader     = (*nexus.Client)(nil)
	_ GrantEditor       = (*nexus.Client)(nil)
	_ SupplierCalendars = (*nexus.Client)(nil)
)
