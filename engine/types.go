package engine

import (
	"github.com/TimurManjosov/flagship-go/definitions"
)

// Reason explains which rule of the flag decision cascade produced a result.
type Reason string

const (
	ReasonFlagDisabled        Reason = "flag_disabled"
	ReasonForceExcluded       Reason = "force_excluded"
	ReasonForceIncluded       Reason = "force_included"
	ReasonCountryNotTargeted  Reason = "country_not_targeted"
	ReasonLanguageNotTargeted Reason = "language_not_targeted"
	ReasonTargetingMatch      Reason = "targeting_match"
	ReasonRollout             Reason = "rollout"
	ReasonDefault             Reason = "default"
)

// FlagContext carries the per-request attributes a flag evaluation sees.
// Identity is required; country and language are optional codes matched
// case-insensitively against the targeting tree.
type FlagContext struct {
	Identity string `json:"identity"`
	Country  string `json:"country,omitempty"`
	Language string `json:"language,omitempty"`
}

// ExperimentContext carries the per-request attributes an experiment
// allocation sees.
type ExperimentContext struct {
	Identity string `json:"identity"`
	Country  string `json:"country,omitempty"`
	Language string `json:"language,omitempty"`
}

// FlagResult is the deterministic output of EvaluateFlag.
type FlagResult struct {
	FlagKey     string           `json:"flagKey"`
	Value       any              `json:"value"`
	ServedValue definitions.Side `json:"servedValue"`
	Reason      Reason           `json:"reason"`
}

// VariantAssignment is the output of a successful experiment allocation.
type VariantAssignment struct {
	ExperimentKey string `json:"experimentKey"`
	VariationKey  string `json:"variationKey"`
	VariationName string `json:"variationName"`
	Value         any    `json:"value"`
	IsControl     bool   `json:"isControl"`
}
