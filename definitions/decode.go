package definitions

import (
	"encoding/json"
	"fmt"
)

// Wire envelopes returned by the Flagship API. Kept private; callers only see
// the decoded records.
type flagsEnvelope struct {
	Flags []FlagDefinition `json:"flags"`
}

type experimentsEnvelope struct {
	Experiments []ExperimentDefinition `json:"experiments"`
}

type configEnvelope struct {
	Configs map[string]any `json:"configs"`
}

// DecodeFlags parses a /v1/flags response body into a key-indexed map.
func DecodeFlags(raw json.RawMessage) (map[string]FlagDefinition, error) {
	var env flagsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode flags payload: %w", err)
	}
	flags := make(map[string]FlagDefinition, len(env.Flags))
	for _, f := range env.Flags {
		if f.Key == "" {
			return nil, fmt.Errorf("flag definition with empty key")
		}
		flags[f.Key] = f
	}
	return flags, nil
}

// DecodeExperiments parses a /v1/experiments response body into a key-indexed map.
func DecodeExperiments(raw json.RawMessage) (map[string]ExperimentDefinition, error) {
	var env experimentsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode experiments payload: %w", err)
	}
	experiments := make(map[string]ExperimentDefinition, len(env.Experiments))
	for _, e := range env.Experiments {
		if e.Key == "" {
			return nil, fmt.Errorf("experiment definition with empty key")
		}
		experiments[e.Key] = e
	}
	return experiments, nil
}

// DecodeConfig parses a /v1/configs response body into a key/value map.
func DecodeConfig(raw json.RawMessage) (map[string]any, error) {
	var env configEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode configs payload: %w", err)
	}
	if env.Configs == nil {
		return map[string]any{}, nil
	}
	return env.Configs, nil
}
