package engine

import (
	"time"

	"github.com/TimurManjosov/flagship-go/definitions"
	"github.com/TimurManjosov/flagship-go/rollout"
)

// Allocate resolves a variation assignment for the given experiment and
// context, evaluated at the current time. Returns nil when the experiment is
// ineligible, the identity is excluded, targeting does not match, or the
// bucket falls outside the allocated traffic ranges.
func Allocate(def *definitions.ExperimentDefinition, ctx ExperimentContext) *VariantAssignment {
	return AllocateAt(def, ctx, time.Now())
}

// AllocateAt is Allocate with an explicit evaluation time for the schedule
// window gate.
//
// Eligibility gate (all must pass, else no assignment):
//   - status is running
//   - now is inside [scheduledStartAt, scheduledEndAt]; absent bounds are open
//   - identity is not force-excluded
//   - country/language targeting, when configured, matches the context
//
// Force-include only guarantees non-exclusion. It never skips targeting and
// never grants a special assignment: the identity still goes through normal
// bucketing so the traffic split stays honest.
func AllocateAt(def *definitions.ExperimentDefinition, ctx ExperimentContext, now time.Time) *VariantAssignment {
	if def.Status != definitions.StatusRunning {
		return nil
	}
	if !def.InSchedule(now) {
		return nil
	}

	targeting := def.Targeting
	if targeting.IsForceExcluded(ctx.Identity) {
		return nil
	}

	if targeting != nil && len(targeting.Countries) > 0 {
		if ctx.Country == "" {
			return nil
		}
		country := targeting.MatchCountry(ctx.Country)
		if country == nil {
			return nil
		}
		if len(country.Languages) > 0 {
			if ctx.Language == "" {
				return nil
			}
			if country.MatchLanguage(ctx.Language) == nil {
				return nil
			}
		}
	}

	bucket := rollout.Bucket(ctx.Identity, def.Key)
	if bucket < 0 {
		return nil
	}

	// Walk the allocation list in declared order, accumulating percentages
	// into cumulative ranges. The first range covering the bucket wins; if the
	// percentages sum below 100 the remainder is unassigned traffic.
	cumulative := 0
	for _, alloc := range def.TrafficAllocation {
		cumulative += alloc.Percentage
		if bucket < cumulative {
			variation, ok := def.VariationByKey(alloc.VariationKey)
			if !ok {
				// Allocation points at a variation that does not exist;
				// treat as unassigned rather than guessing.
				return nil
			}
			return &VariantAssignment{
				ExperimentKey: def.Key,
				VariationKey:  variation.Key,
				VariationName: variation.Name,
				Value:         variation.Value,
				IsControl:     variation.IsControl || (def.ControlVariation != "" && variation.Key == def.ControlVariation),
			}
		}
	}

	return nil
}
