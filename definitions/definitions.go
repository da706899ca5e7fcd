// Package definitions holds the typed records the Flagship API serves for the
// three delivery tiers: remote configs, two-value flags, and multi-variant
// experiments. Records are decoded and validated once at load time and treated
// as immutable afterwards; evaluation code never walks untyped JSON.
package definitions

import (
	"strings"
	"time"
)

// Side identifies which of a flag's two values was served.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// ExperimentStatus governs experiment eligibility. Only running experiments
// assign variations.
type ExperimentStatus string

const (
	StatusDraft     ExperimentStatus = "draft"
	StatusRunning   ExperimentStatus = "running"
	StatusCompleted ExperimentStatus = "completed"
)

// LanguageTarget is a language override inside a country target.
// ServeValue defaults to side A when unset.
type LanguageTarget struct {
	Code       string `json:"code"`
	ServeValue Side   `json:"serveValue,omitempty"`
}

// CountryTarget is one node of the targeting tree. When Languages is empty the
// country-level ServeValue applies; otherwise the matching language's
// ServeValue wins.
type CountryTarget struct {
	Code       string           `json:"code"`
	ServeValue Side             `json:"serveValue,omitempty"`
	Languages  []LanguageTarget `json:"languages,omitempty"`
}

// Targeting carries the country/language override tree plus the force lists.
// Flags honor both lists as short-circuits; experiments treat ForceInclude as
// a non-exclusion guarantee only.
type Targeting struct {
	Countries    []CountryTarget `json:"countries,omitempty"`
	ForceInclude []string        `json:"forceInclude,omitempty"`
	ForceExclude []string        `json:"forceExclude,omitempty"`
}

// IsForceExcluded reports whether the identity is on the force-exclude list.
func (t *Targeting) IsForceExcluded(identity string) bool {
	if t == nil {
		return false
	}
	return containsIdentity(t.ForceExclude, identity)
}

// IsForceIncluded reports whether the identity is on the force-include list.
func (t *Targeting) IsForceIncluded(identity string) bool {
	if t == nil {
		return false
	}
	return containsIdentity(t.ForceInclude, identity)
}

// MatchCountry returns the country target matching the given code
// (case-insensitive), or nil when no country matches.
func (t *Targeting) MatchCountry(code string) *CountryTarget {
	if t == nil || code == "" {
		return nil
	}
	for i := range t.Countries {
		if strings.EqualFold(t.Countries[i].Code, code) {
			return &t.Countries[i]
		}
	}
	return nil
}

// MatchLanguage returns the language target matching the given code
// (case-insensitive), or nil when no language matches.
func (c *CountryTarget) MatchLanguage(code string) *LanguageTarget {
	if c == nil || code == "" {
		return nil
	}
	for i := range c.Languages {
		if strings.EqualFold(c.Languages[i].Code, code) {
			return &c.Languages[i]
		}
	}
	return nil
}

func containsIdentity(list []string, identity string) bool {
	if identity == "" {
		return false
	}
	for _, id := range list {
		if id == identity {
			return true
		}
	}
	return false
}

// FlagDefinition describes one two-value flag in an environment.
// ValueA and ValueB are opaque to the SDK and passed through as decoded.
type FlagDefinition struct {
	Key                string     `json:"key"`
	Enabled            bool       `json:"enabled"`
	ValueA             any        `json:"valueA"`
	ValueB             any        `json:"valueB"`
	DefaultValue       Side       `json:"defaultValue,omitempty"`
	Targeting          *Targeting `json:"targeting,omitempty"`
	RolloutEnabled     bool       `json:"rolloutEnabled"`
	RolloutPercentageA int        `json:"rolloutPercentageA"`
	RolloutPercentageB int        `json:"rolloutPercentageB"`
}

// DefaultSide returns the configured default side, falling back to B.
func (d *FlagDefinition) DefaultSide() Side {
	if d.DefaultValue == SideA {
		return SideA
	}
	return SideB
}

// Value returns the opaque value for the given side.
func (d *FlagDefinition) Value(side Side) any {
	if side == SideA {
		return d.ValueA
	}
	return d.ValueB
}

// Variation is one arm of an experiment.
type Variation struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Value     any    `json:"value"`
	IsControl bool   `json:"isControl"`
}

// Allocation assigns a slice of the 0-100 bucket range to a variation.
// Order matters: allocations define cumulative ranges in declaration order.
type Allocation struct {
	VariationKey string `json:"variationKey"`
	Percentage   int    `json:"percentage"`
}

// ExperimentDefinition describes one multi-variant experiment.
type ExperimentDefinition struct {
	Key               string           `json:"key"`
	Status            ExperimentStatus `json:"status"`
	ScheduledStartAt  *time.Time       `json:"scheduledStartAt,omitempty"`
	ScheduledEndAt    *time.Time       `json:"scheduledEndAt,omitempty"`
	Variations        []Variation      `json:"variations"`
	ControlVariation  string           `json:"controlVariation,omitempty"`
	TrafficAllocation []Allocation     `json:"trafficAllocation"`
	Targeting         *Targeting       `json:"targeting,omitempty"`
}

// VariationByKey looks up a variation by key.
func (d *ExperimentDefinition) VariationByKey(key string) (*Variation, bool) {
	for i := range d.Variations {
		if d.Variations[i].Key == key {
			return &d.Variations[i], true
		}
	}
	return nil, false
}

// InSchedule reports whether now falls inside the experiment's schedule
// window. An absent bound is unbounded on that side.
func (d *ExperimentDefinition) InSchedule(now time.Time) bool {
	if d.ScheduledStartAt != nil && now.Before(*d.ScheduledStartAt) {
		return false
	}
	if d.ScheduledEndAt != nil && now.After(*d.ScheduledEndAt) {
		return false
	}
	return true
}
