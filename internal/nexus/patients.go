package nexus

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"grantcloser/internal/services"
)

// Link relations used when walking from the API root to a citizen's pathway.
const (
	relPatientSearch      = "patientDetailsSearch"
	relPatientPreferences = "patientPreferences"
	relPathwayReferences  = "pathwayReferences"
	relReferencedObject   = "referencedObject"
	relOrganizations      = "organizations"

	preferenceCitizenPathway = "CITIZEN_PATHWAY"
)

// Home is the API root document.
type Home struct {
	Links Links `json:"_links"`
}

// PatientIdentifier carries the national identifier of a citizen.
type PatientIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// Patient is a citizen record.
type Patient struct {
	ID                ID                `json:"id"`
	FullName          string            `json:"fullName"`
	PatientIdentifier PatientIdentifier `json:"patientIdentifier"`
	Links             Links             `json:"_links"`
}

// CPR returns the citizen's national identifier.
func (p *Patient) CPR() string {
	if p == nil {
		return ""
	}
	return p.PatientIdentifier.Identifier
}

// View is a saved pathway view such as "- Alt".
type View struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Links Links  `json:"_links"`
}

// Home fetches the API root.
func (c *Client) Home(ctx context.Context) (*Home, error) {
	var home Home
	if err := c.GetJSON(ctx, c.baseURL.String(), &home); err != nil {
		return nil, err
	}
	return &home, nil
}

// FindPatient looks up a citizen by CPR number. It returns nil, nil when no
// citizen matches.
func (c *Client) FindPatient(ctx context.Context, cpr string) (*Patient, error) {
	cpr = strings.TrimSpace(cpr)
	if cpr == "" {
		return nil, services.Wrap(services.ErrValidation, component, "find patient", "cpr is required", nil)
	}
	home, err := c.Home(ctx)
	if err != nil {
		return nil, err
	}
	searchHref := home.Links.Href(relPatientSearch)
	if searchHref == "" {
		return nil, services.Wrap(services.ErrValidation, component, "find patient", "home document has no patient search link", nil)
	}

	var result struct {
		Patients []Patient `json:"patients"`
	}
	if err := c.PostJSON(ctx, searchHref, map[string]string{"cpr": cpr}, &result); err != nil {
		return nil, err
	}
	want := normalizeCPR(cpr)
	for i := range result.Patients {
		if normalizeCPR(result.Patients[i].CPR()) == want {
			return &result.Patients[i], nil
		}
	}
	return nil, nil
}

// normalizeCPR drops the hyphen and any whitespace Nexus or the queue may
// carry inside a CPR number.
func normalizeCPR(cpr string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cpr)
}

// PathwayView returns the patient's pathway view with the given name, or nil
// when the patient has no such view.
func (c *Client) PathwayView(ctx context.Context, patient *Patient, name string) (*View, error) {
	if patient == nil {
		return nil, services.Wrap(services.ErrValidation, component, "pathway view", "patient is nil", nil)
	}
	href := patient.Links.Href(relPatientPreferences)
	if href == "" {
		return nil, services.Wrap(services.ErrValidation, component, "pathway view", "patient has no preferences link", nil)
	}

	var preferences map[string][]View
	if err := c.GetJSON(ctx, href, &preferences); err != nil {
		return nil, err
	}
	for _, candidate := range preferences[preferenceCitizenPathway] {
		if candidate.Name != name {
			continue
		}
		var view View
		if err := c.GetJSON(ctx, candidate.Links.Self(), &view); err != nil {
			return nil, fmt.Errorf("fetch pathway view %q: %w", name, err)
		}
		return &view, nil
	}
	return nil, nil
}

// PathwayReferences fetches the reference tree rendered by a pathway view.
func (c *Client) PathwayReferences(ctx context.Context, view *View) ([]*ReferenceNode, error) {
	if view == nil {
		return nil, services.Wrap(services.ErrValidation, component, "pathway references", "view is nil", nil)
	}
	href := view.Links.Href(relPathwayReferences)
	if href == "" {
		return nil, services.Wrap(services.ErrValidation, component, "pathway references", fmt.Sprintf("view %q has no references link", view.Name), nil)
	}
	var nodes []*ReferenceNode
	if err := c.GetJSON(ctx, href, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}
