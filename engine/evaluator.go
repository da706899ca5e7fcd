// Package engine implements the pure decision core of the SDK: the ordered
// flag evaluation cascade and the experiment allocator. Nothing here touches
// the network, the cache, or a logger, and nothing here returns an error —
// absence of a match is a result, not a failure.
package engine

import (
	"github.com/TimurManjosov/flagship-go/definitions"
	"github.com/TimurManjosov/flagship-go/rollout"
)

// EvaluateFlag resolves a two-value flag decision for the given definition and
// request context.
//
// The evaluation order is a correctness contract, not an implementation
// detail; the first matching rule wins:
//
//	1. Disabled flag            → default value, flag_disabled
//	2. Force-exclude list       → B, force_excluded
//	3. Force-include list       → A, force_included
//	4. Countries targeted, context has none → default, country_not_targeted
//	5. Country match, then language sub-targeting → serveValue, targeting_match
//	   (missing/unmatched language → default, language_not_targeted)
//	6. Countries targeted, none matched → default, country_not_targeted
//	7. Rollout enabled          → bucket split, rollout
//	8. Fallback                 → default value, default
func EvaluateFlag(def *definitions.FlagDefinition, ctx FlagContext) FlagResult {
	// Step 1: disabled flags serve the default no matter what else is set.
	if !def.Enabled {
		return serve(def, def.DefaultSide(), ReasonFlagDisabled)
	}

	targeting := def.Targeting

	// Step 2: force-exclude beats everything, including force-include.
	if targeting.IsForceExcluded(ctx.Identity) {
		return serve(def, definitions.SideB, ReasonForceExcluded)
	}

	// Step 3: force-include short-circuits targeting and rollout for flags.
	if targeting.IsForceIncluded(ctx.Identity) {
		return serve(def, definitions.SideA, ReasonForceIncluded)
	}

	// Steps 4-6: country/language targeting.
	if targeting != nil && len(targeting.Countries) > 0 {
		if ctx.Country == "" {
			return serve(def, def.DefaultSide(), ReasonCountryNotTargeted)
		}

		country := targeting.MatchCountry(ctx.Country)
		if country == nil {
			return serve(def, def.DefaultSide(), ReasonCountryNotTargeted)
		}

		if len(country.Languages) > 0 {
			if ctx.Language == "" {
				return serve(def, def.DefaultSide(), ReasonLanguageNotTargeted)
			}
			language := country.MatchLanguage(ctx.Language)
			if language == nil {
				return serve(def, def.DefaultSide(), ReasonLanguageNotTargeted)
			}
			return serve(def, sideOrA(language.ServeValue), ReasonTargetingMatch)
		}

		return serve(def, sideOrA(country.ServeValue), ReasonTargetingMatch)
	}

	// Step 7: percentage rollout.
	if def.RolloutEnabled {
		bucket := rollout.Bucket(ctx.Identity, def.Key)
		if bucket >= 0 {
			side := definitions.SideB
			if bucket < def.RolloutPercentageA {
				side = definitions.SideA
			}
			return serve(def, side, ReasonRollout)
		}
		// No identity means no bucket; fall through to the default.
	}

	// Step 8: fallback.
	return serve(def, def.DefaultSide(), ReasonDefault)
}

func serve(def *definitions.FlagDefinition, side definitions.Side, reason Reason) FlagResult {
	return FlagResult{
		FlagKey:     def.Key,
		Value:       def.Value(side),
		ServedValue: side,
		Reason:      reason,
	}
}

func sideOrA(side definitions.Side) definitions.Side {
	if side == definitions.SideB {
		return definitions.SideB
	}
	return definitions.SideA
}
