package nexus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"grantcloser/internal/logging"
	"grantcloser/internal/services"
)

const (
	relPrototype = "prototype"
	relSave      = "save"
)

// Transition is a workflow transition currently offered on a grant.
type Transition struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Links Links  `json:"_links"`
}

// Grant is a basket grant (indsats) with its offered transitions and raw
// element bag.
type Grant struct {
	ID                  ID                `json:"id"`
	Name                string            `json:"name"`
	WorkflowState       *WorkflowState    `json:"workflowState,omitempty"`
	Transitions         []Transition      `json:"currentWorkflowTransitions"`
	CurrentOrderGrantID ID                `json:"currentOrderGrantId"`
	Elements            []json.RawMessage `json:"currentElements"`
	Links               Links             `json:"_links"`
}

// StateName returns the grant's workflow state name.
func (g *Grant) StateName() string {
	if g == nil || g.WorkflowState == nil {
		return ""
	}
	return g.WorkflowState.Name
}

// Transition returns the offered transition with the given name.
func (g *Grant) Transition(name string) (Transition, bool) {
	if g == nil {
		return Transition{}, false
	}
	for _, t := range g.Transitions {
		if t.Name == name {
			return t, true
		}
	}
	return Transition{}, false
}

// Offers reports whether the transition is currently offered.
func (g *Grant) Offers(name string) bool {
	_, ok := g.Transition(name)
	return ok
}

// Fields decodes the grant's element bag.
func (g *Grant) Fields() (GrantFields, error) {
	if g == nil {
		return GrantFields{}, services.Wrap(services.ErrValidation, component, "decode fields", "grant is nil", nil)
	}
	fields, err := DecodeFields(g.Elements)
	if err != nil {
		return GrantFields{}, fmt.Errorf("grant %q: %w", g.Name, err)
	}
	return fields, nil
}

// Resolve fetches the entity a reference node points to.
func (c *Client) Resolve(ctx context.Context, node *ReferenceNode) (*Grant, error) {
	if node == nil {
		return nil, services.Wrap(services.ErrValidation, component, "resolve reference", "reference is nil", nil)
	}
	href := node.Links.Href(relReferencedObject)
	if href == "" {
		href = node.Links.Self()
	}
	return c.Grant(ctx, href)
}

// Grant fetches a basket grant by its hyperlink.
func (c *Client) Grant(ctx context.Context, href string) (*Grant, error) {
	var grant Grant
	if err := c.GetJSON(ctx, href, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// Refresh re-fetches the grant through its self link.
func (c *Client) Refresh(ctx context.Context, grant *Grant) (*Grant, error) {
	if grant == nil {
		return nil, services.Wrap(services.ErrValidation, component, "refresh grant", "grant is nil", nil)
	}
	return c.Grant(ctx, grant.Links.Self())
}

// ApplyTransition performs a named workflow transition. The transition's
// prototype is fetched, elements whose type appears in changes get the new
// value, and the prototype is saved. The grant returned by the save replaces
// the input.
func (c *Client) ApplyTransition(ctx context.Context, grant *Grant, name string, changes map[string]any) (*Grant, error) {
	transition, ok := grant.Transition(name)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, component, "apply transition", fmt.Sprintf("transition %q is not offered on grant %q", name, grant.Name), nil)
	}
	protoHref := transition.Links.Href(relPrototype)
	if protoHref == "" {
		return nil, services.Wrap(services.ErrValidation, component, "apply transition", fmt.Sprintf("transition %q has no prototype link", name), nil)
	}

	// The prototype is kept untyped so fields this client does not model
	// survive the round trip.
	var proto map[string]any
	if err := c.GetJSON(ctx, protoHref, &proto); err != nil {
		return nil, fmt.Errorf("fetch %s prototype: %w", name, err)
	}
	saveHref := linkFromMap(proto, relSave)
	if saveHref == "" {
		return nil, services.Wrap(services.ErrValidation, component, "apply transition", fmt.Sprintf("%s prototype has no save link", name), nil)
	}

	applied := make(map[string]struct{}, len(changes))
	elements, _ := proto["elements"].([]any)
	for _, raw := range elements {
		element, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		elementType, _ := element["type"].(string)
		value, ok := changes[elementType]
		if !ok {
			continue
		}
		element["value"] = value
		applied[elementType] = struct{}{}
	}
	for key := range changes {
		if _, ok := applied[key]; !ok {
			c.logger.Debug("transition prototype lacks element",
				logging.String(logging.FieldTransition, name),
				logging.String("element", key),
			)
		}
	}

	var updated Grant
	if err := c.Put(ctx, saveHref, proto, &updated); err != nil {
		return nil, fmt.Errorf("save %s transition: %w", name, err)
	}
	if updated.Links.Self() == "" {
		updated.Links = grant.Links
	}
	return &updated, nil
}

func linkFromMap(doc map[string]any, rel string) string {
	links, _ := doc["_links"].(map[string]any)
	link, _ := links[rel].(map[string]any)
	href, _ := link["href"].(string)
	return strings.TrimSpace(href)
}
