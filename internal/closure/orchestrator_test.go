package closure

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"grantcloser/internal/logging"
	"grantcloser/internal/nexus"
	"grantcloser/internal/telemetry"
)

const testProcess = "Afslutning af Planlagt, ikke bestilt"

func newTestOrchestrator(client GrantEditor, tracker telemetry.Tracker) *Orchestrator {
	return NewOrchestrator(client, tracker, testProcess, logging.NewNop())
}

func appliedNames(applied []appliedTransition) []string {
	names := make([]string, 0, len(applied))
	for _, a := range applied {
		names = append(names, a.name)
	}
	return names
}

func TestAdvanceAppliesSequenceInOrder(t *testing.T) {
	fake := newFakeNexus()
	fake.addGrant(t, 1, grantFixture{
		name:        "Hjemmehjælp",
		endDate:     "2023-01-01",
		plannedDate: "2023-01-05",
		transitions: []string{TransitionClose, "Annuller", TransitionApprove, TransitionOrder},
	})
	grant, _ := fake.Refresh(context.Background(), &nexus.Grant{Links: nexus.Links{"self": {Href: "/grants/1"}}})
	fake.refreshes = 0
	recorder := &telemetry.Recorder{}

	final, result, err := newTestOrchestrator(fake, recorder).Advance(context.Background(), grant)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	want := []string{TransitionApprove, TransitionOrder, TransitionClose}
	if got := appliedNames(fake.applied); !reflect.DeepEqual(got, want) {
		t.Fatalf("applied %v, want %v", got, want)
	}
	if result.Kind != AdvanceTransitioned || !reflect.DeepEqual(result.Applied, want) {
		t.Fatalf("unexpected result: %+v", result)
	}
	if fake.refreshes != 3 {
		t.Fatalf("expected a refresh after each transition, got %d", fake.refreshes)
	}
	if recorder.Count(telemetry.KindTask) != 3 {
		t.Fatalf("expected 3 tracked tasks, got %d", recorder.Count(telemetry.KindTask))
	}
	if final.StateName() != TransitionClose {
		t.Fatalf("expected refreshed grant, got state %q", final.StateName())
	}
}

func TestAdvanceSkipsTransitionsNotOffered(t *testing.T) {
	fake := newFakeNexus()
	fake.addGrant(t, 1, grantFixture{
		name:        "Hjemmehjælp",
		endDate:     "2023-01-01",
		plannedDate: "2023-01-05",
		transitions: []string{TransitionApprove},
	})
	grant := fake.grants["/grants/1"]

	_, result, err := newTestOrchestrator(fake, nil).Advance(context.Background(), grant)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got := appliedNames(fake.applied); !reflect.DeepEqual(got, []string{TransitionApprove}) {
		t.Fatalf("applied %v", got)
	}
	if fake.refreshes != 1 {
		t.Fatalf("expected one refresh, got %d", fake.refreshes)
	}

	changes := fake.applied[0].changes
	if changes["billingStartDate"] != "2023-01-05" || changes["billingEndDate"] != "2023-01-01" {
		t.Fatalf("unexpected billing dates: %v / %v", changes["billingStartDate"], changes["billingEndDate"])
	}
	for _, key := range []string{"orderedDate", "workflowApprovedDate", "entryDate"} {
		if changes[key] != "2023-01-05" {
			t.Fatalf("expected %s to be the planned date, got %v", key, changes[key])
		}
	}
	repetition, ok := changes["repetition"].(map[string]any)
	if !ok || repetition["pattern"] != "DAY" || repetition["count"] != 1 || repetition["weekdays"] != 1 || repetition["weekenddays"] != 0 {
		t.Fatalf("unexpected repetition: %#v", changes["repetition"])
	}
	if changes["resourceCount"] != 1 {
		t.Fatalf("unexpected resource count: %v", changes["resourceCount"])
	}
	if result.Kind != AdvanceTransitioned {
		t.Fatalf("unexpected kind %v", result.Kind)
	}
}

func TestAdvanceHaltsOnMissingDate(t *testing.T) {
	fake := newFakeNexus()
	fake.addGrant(t, 1, grantFixture{
		name:        "Hjemmehjælp",
		endDate:     "2023-01-01",
		transitions: []string{TransitionApprove, TransitionOrder, TransitionClose},
	})
	recorder := &telemetry.Recorder{}

	_, result, err := newTestOrchestrator(fake, recorder).Advance(context.Background(), fake.grants["/grants/1"])
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if len(fake.applied) != 0 || len(recorder.Signals) != 0 {
		t.Fatalf("expected nothing applied, got %v", appliedNames(fake.applied))
	}
	if result.Kind != AdvanceHalted {
		t.Fatalf("expected halted, got %v", result.Kind)
	}
}

func TestAdvanceNothingOffered(t *testing.T) {
	fake := newFakeNexus()
	fake.addGrant(t, 1, grantFixture{name: "Hjemmehjælp", endDate: "2023-01-01", transitions: []string{"Annuller"}})

	_, result, err := newTestOrchestrator(fake, nil).Advance(context.Background(), fake.grants["/grants/1"])
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if result.Kind != AdvanceNone || len(fake.applied) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestAdvanceRemovesInHouseActivities(t *testing.T) {
	for _, name := range []string{"Aktivitet i Huset", "Aktivitet ude af Huset", "Aktivitet Ude af Huset"} {
		t.Run(name, func(t *testing.T) {
			fake := newFakeNexus()
			fake.addGrant(t, 1, grantFixture{
				name:        name,
				endDate:     "2023-01-01",
				plannedDate: "2023-01-05",
				transitions: []string{TransitionApprove, TransitionRemove},
			})
			recorder := &telemetry.Recorder{}

			_, result, err := newTestOrchestrator(fake, recorder).Advance(context.Background(), fake.grants["/grants/1"])
			if err != nil {
				t.Fatalf("Advance: %v", err)
			}
			if got := appliedNames(fake.applied); !reflect.DeepEqual(got, []string{TransitionRemove}) {
				t.Fatalf("applied %v", got)
			}
			if len(fake.applied[0].changes) != 0 {
				t.Fatalf("expected empty payload, got %v", fake.applied[0].changes)
			}
			if result.Kind != AdvanceRemoved || recorder.Count(telemetry.KindTask) != 1 {
				t.Fatalf("unexpected result %+v signals=%v", result, recorder.Signals)
			}
		})
	}
}

func TestAdvanceClosesOtherSpellingsOfInHouseActivities(t *testing.T) {
	fake := newFakeNexus()
	fake.addGrant(t, 1, grantFixture{
		name:        "aktivitet i huset",
		endDate:     "2023-01-01",
		plannedDate: "2023-01-05",
		transitions: []string{TransitionApprove, TransitionRemove},
	})

	_, result, err := newTestOrchestrator(fake, nil).Advance(context.Background(), fake.grants["/grants/1"])
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got := appliedNames(fake.applied); !reflect.DeepEqual(got, []string{TransitionApprove}) {
		t.Fatalf("applied %v", got)
	}
	if result.Kind != AdvanceTransitioned {
		t.Fatalf("expected transitioned, got %v", result.Kind)
	}
}

func TestAdvancePropagatesTransitionFailure(t *testing.T) {
	fake := newFakeNexus()
	fake.addGrant(t, 1, grantFixture{
		name:        "Hjemmehjælp",
		endDate:     "2023-01-01",
		plannedDate: "2023-01-05",
		transitions: []string{TransitionApprove},
	})
	boom := errors.New("nexus unavailable")
	fake.applyErr = boom

	if _, _, err := newTestOrchestrator(fake, nil).Advance(context.Background(), fake.grants["/grants/1"]); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
}
