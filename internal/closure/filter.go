package closure

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"grantcloser/internal/logging"
	"grantcloser/internal/nexus"
	"grantcloser/internal/rules"
	"grantcloser/internal/services"
)

const (
	// PathwayViewName is the pathway view listing every grant of a citizen.
	PathwayViewName = "- Alt"
	// GrantReferencePattern selects basket grant references under the
	// pathway's "Indsatser" folder.
	GrantReferencePattern = "/*/patientPathwayReference/Indsatser/basketGrantReference"
	// StatePlannedNotOrdered is the workflow state the robot closes out.
	StatePlannedNotOrdered = "Planlagt, ikke bestilt"
)

// Filter selects the grants of one citizen that are due for closure.
type Filter struct {
	client  PathwayReader
	catalog *rules.Catalog
	now     func() time.Time
	logger  *slog.Logger
}

// NewFilter builds a filter. A nil clock uses time.Now.
func NewFilter(client PathwayReader, catalog *rules.Catalog, now func() time.Time, logger *slog.Logger) *Filter {
	if now == nil {
		now = time.Now
	}
	return &Filter{
		client:  client,
		catalog: catalog,
		now:     now,
		logger:  logging.NewComponentLogger(logger, "filter"),
	}
}

// FindEligible returns the citizen's planned-not-ordered grants whose end date
// has passed and which the rule catalog covers, in pathway order. A grant whose
// fields cannot be decoded is logged and skipped.
func (f *Filter) FindEligible(ctx context.Context, patient *nexus.Patient) ([]*nexus.Grant, error) {
	logger := logging.WithContext(ctx, f.logger)

	view, err := f.client.PathwayView(ctx, patient, PathwayViewName)
	if err != nil {
		return nil, fmt.Errorf("fetch pathway view: %w", err)
	}
	if view == nil {
		return nil, services.AsBusiness(
			fmt.Sprintf("pathway view %q not found for citizen %s", PathwayViewName, logging.MaskCPR(patient.CPR())),
			services.ErrNotFound,
		)
	}

	roots, err := f.client.PathwayReferences(ctx, view)
	if err != nil {
		return nil, fmt.Errorf("fetch pathway references: %w", err)
	}
	references := nexus.FilterByPath(roots, GrantReferencePattern, false)
	references = nexus.FilterByPredicate(references, func(node *nexus.ReferenceNode) bool {
		return node.StateName() == StatePlannedNotOrdered
	})

	now := f.now().UTC()
	var eligible []*nexus.Grant
	for _, ref := range references {
		grant, err := f.client.Resolve(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("resolve grant %q: %w", ref.Name, err)
		}
		fields, err := grant.Fields()
		if err != nil {
			logging.WarnWithContext(logger, "grant has malformed fields; skipped", "grant_malformed",
				logging.String(logging.FieldGrant, ref.Name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "correct the grant's dates in Nexus"),
			)
			continue
		}

		if fields.EndDate == nil || !fields.EndDate.Time.Before(now) {
			continue
		}
		name := ref.Name
		if name == "" {
			name = grant.Name
		}
		if !f.covered(name, fields.Paragraph) {
			logger.Debug("grant not covered by rules",
				logging.String(logging.FieldGrant, name),
				logging.String(logging.FieldEventType, "grant_skipped"),
			)
			continue
		}
		eligible = append(eligible, grant)
	}

	logger.Info("eligible grants found",
		logging.Int("candidates", len(references)),
		logging.Int("eligible", len(eligible)),
		logging.String(logging.FieldEventType, "grants_filtered"),
	)
	return eligible, nil
}

func (f *Filter) covered(name string, paragraph *nexus.Paragraph) bool {
	if f.catalog.IsApprovedName(name) {
		return true
	}
	if paragraph == nil {
		return false
	}
	return f.catalog.MatchesParagraph(paragraph.Section, paragraph.Legislation)
}
