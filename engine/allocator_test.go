package engine

import (
	"testing"
	"time"

	"github.com/TimurManjosov/flagship-go/definitions"
	"github.com/TimurManjosov/flagship-go/rollout"
)

func runningExperiment(key string) *definitions.ExperimentDefinition {
	return &definitions.ExperimentDefinition{
		Key:    key,
		Status: definitions.StatusRunning,
		Variations: []definitions.Variation{
			{Key: "control", Name: "Control", Value: "old", IsControl: true},
			{Key: "treatment", Name: "Treatment", Value: "new"},
		},
		ControlVariation: "control",
		TrafficAllocation: []definitions.Allocation{
			{VariationKey: "control", Percentage: 50},
			{VariationKey: "treatment", Percentage: 50},
		},
	}
}

func TestAllocate_StatusGate(t *testing.T) {
	for _, status := range []definitions.ExperimentStatus{definitions.StatusDraft, definitions.StatusCompleted} {
		def := runningExperiment("exp-1")
		def.Status = status
		if got := Allocate(def, ExperimentContext{Identity: "user-1"}); got != nil {
			t.Errorf("status %q produced an assignment: %+v", status, got)
		}
	}
}

func TestAllocate_ScheduleGate(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		start    *time.Time
		end      *time.Time
		assigned bool
	}{
		{name: "no bounds", assigned: true},
		{name: "inside window", start: &past, end: &future, assigned: true},
		{name: "start in future", start: &future, assigned: false},
		{name: "end in past", end: &past, assigned: false},
		{name: "open start, future end", end: &future, assigned: true},
		{name: "past start, open end", start: &past, assigned: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := runningExperiment("exp-1")
			def.ScheduledStartAt = tt.start
			def.ScheduledEndAt = tt.end

			got := AllocateAt(def, ExperimentContext{Identity: "user-1"}, now)
			if (got != nil) != tt.assigned {
				t.Errorf("assigned = %v, want %v", got != nil, tt.assigned)
			}
		})
	}
}

func TestAllocate_ForceExclude(t *testing.T) {
	def := runningExperiment("exp-1")
	def.Targeting = &definitions.Targeting{ForceExclude: []string{"user-1"}}

	if got := Allocate(def, ExperimentContext{Identity: "user-1"}); got != nil {
		t.Errorf("force-excluded identity got assignment %+v", got)
	}
}

func TestAllocate_ForceIncludeDoesNotBypassTargeting(t *testing.T) {
	// Force-include only guarantees non-exclusion; a context that fails
	// country targeting still gets no assignment.
	def := runningExperiment("exp-1")
	def.Targeting = &definitions.Targeting{
		ForceInclude: []string{"user-1"},
		Countries:    []definitions.CountryTarget{{Code: "DE"}},
	}

	if got := Allocate(def, ExperimentContext{Identity: "user-1", Country: "US"}); got != nil {
		t.Errorf("force-include bypassed targeting: %+v", got)
	}
	if got := Allocate(def, ExperimentContext{Identity: "user-1"}); got != nil {
		t.Errorf("force-include bypassed missing-country gate: %+v", got)
	}
}

func TestAllocate_Targeting(t *testing.T) {
	def := runningExperiment("exp-1")
	def.Targeting = &definitions.Targeting{
		Countries: []definitions.CountryTarget{
			{Code: "DE"},
			{Code: "CH", Languages: []definitions.LanguageTarget{{Code: "de"}}},
		},
	}

	tests := []struct {
		name     string
		ctx      ExperimentContext
		assigned bool
	}{
		{name: "country match", ctx: ExperimentContext{Identity: "user-1", Country: "de"}, assigned: true},
		{name: "country mismatch", ctx: ExperimentContext{Identity: "user-1", Country: "US"}, assigned: false},
		{name: "missing country", ctx: ExperimentContext{Identity: "user-1"}, assigned: false},
		{name: "language match", ctx: ExperimentContext{Identity: "user-1", Country: "CH", Language: "DE"}, assigned: true},
		{name: "language mismatch", ctx: ExperimentContext{Identity: "user-1", Country: "CH", Language: "fr"}, assigned: false},
		{name: "missing language", ctx: ExperimentContext{Identity: "user-1", Country: "CH"}, assigned: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allocate(def, tt.ctx)
			if (got != nil) != tt.assigned {
				t.Errorf("assigned = %v, want %v", got != nil, tt.assigned)
			}
		})
	}
}

func TestAllocate_DeterministicSelection(t *testing.T) {
	// With a 50/50 split the bucket selects exactly one variation, and
	// repeated calls always select the same one.
	def := runningExperiment("exp-1")
	ctx := ExperimentContext{Identity: "user-1"}

	first := Allocate(def, ctx)
	if first == nil {
		t.Fatal("expected an assignment for a fully allocated experiment")
	}

	bucket := rollout.Bucket("user-1", "exp-1")
	wantKey := "control"
	if bucket >= 50 {
		wantKey = "treatment"
	}
	if first.VariationKey != wantKey {
		t.Errorf("variationKey = %q, want %q for bucket %d", first.VariationKey, wantKey, bucket)
	}

	for i := 0; i < 10; i++ {
		got := Allocate(def, ctx)
		if got == nil || got.VariationKey != first.VariationKey {
			t.Fatalf("allocation is not stable: first %q, then %+v", first.VariationKey, got)
		}
	}
}

func TestAllocate_CumulativeOrder(t *testing.T) {
	// Allocation order defines the ranges: [0,30) → a, [30,90) → b, [90,100) unassigned.
	def := runningExperiment("exp-order")
	def.Variations = []definitions.Variation{
		{Key: "a", Name: "A", Value: 1},
		{Key: "b", Name: "B", Value: 2},
	}
	def.ControlVariation = "a"
	def.TrafficAllocation = []definitions.Allocation{
		{VariationKey: "a", Percentage: 30},
		{VariationKey: "b", Percentage: 60},
	}

	for i := 0; i < 500; i++ {
		identity := "user-" + string(rune('a'+i%26)) + "-" + time.Duration(i).String()
		bucket := rollout.Bucket(identity, "exp-order")
		got := Allocate(def, ExperimentContext{Identity: identity})

		switch {
		case bucket < 30:
			if got == nil || got.VariationKey != "a" {
				t.Fatalf("bucket %d: got %+v, want a", bucket, got)
			}
			if !got.IsControl {
				t.Fatalf("bucket %d: variation a should derive isControl from controlVariation", bucket)
			}
		case bucket < 90:
			if got == nil || got.VariationKey != "b" {
				t.Fatalf("bucket %d: got %+v, want b", bucket, got)
			}
			if got.IsControl {
				t.Fatalf("bucket %d: variation b must not be control", bucket)
			}
		default:
			if got != nil {
				t.Fatalf("bucket %d is unassigned traffic, got %+v", bucket, got)
			}
		}
	}
}

func TestAllocate_UnknownVariationKey(t *testing.T) {
	def := runningExperiment("exp-1")
	def.TrafficAllocation = []definitions.Allocation{{VariationKey: "ghost", Percentage: 100}}

	if got := Allocate(def, ExperimentContext{Identity: "user-1"}); got != nil {
		t.Errorf("allocation to unknown variation produced %+v", got)
	}
}

func TestAllocate_EmptyIdentity(t *testing.T) {
	def := runningExperiment("exp-1")
	if got := Allocate(def, ExperimentContext{}); got != nil {
		t.Errorf("empty identity got assignment %+v", got)
	}
}

func TestAllocate_AssignmentFields(t *testing.T) {
	def := runningExperiment("exp-1")
	def.TrafficAllocation = []definitions.Allocation{{VariationKey: "treatment", Percentage: 100}}

	got := Allocate(def, ExperimentContext{Identity: "user-1"})
	if got == nil {
		t.Fatal("expected assignment")
	}
	if got.ExperimentKey != "exp-1" || got.VariationKey != "treatment" ||
		got.VariationName != "Treatment" || got.Value != "new" || got.IsControl {
		t.Errorf("unexpected assignment: %+v", got)
	}
}
