package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/flagship-go/definitions"
	"github.com/TimurManjosov/flagship-go/engine"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintFlags outputs flag definitions in the specified format
func PrintFlags(flags map[string]definitions.FlagDefinition, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string]any{"flags": flags})
	case FormatYAML:
		return printYAML(flags)
	case FormatTable:
		return printFlagTable(flags)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintExperiments outputs experiment definitions in the specified format
func PrintExperiments(experiments map[string]definitions.ExperimentDefinition, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string]any{"experiments": experiments})
	case FormatYAML:
		return printYAML(experiments)
	case FormatTable:
		return printExperimentTable(experiments)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintConfigs outputs remote config values in the specified format
func PrintConfigs(configs map[string]any, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string]any{"configs": configs})
	case FormatYAML:
		return printYAML(configs)
	case FormatTable:
		return printConfigTable(configs)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintFlagResult outputs a single flag evaluation result
func PrintFlagResult(result engine.FlagResult, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(result)
	case FormatYAML:
		return printYAML(result)
	case FormatTable:
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Flag", "Served Side", "Value", "Reason")
		table.Append(result.FlagKey, string(result.ServedValue),
			fmt.Sprintf("%v", result.Value), string(result.Reason))
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintAssignment outputs an experiment allocation result. A nil assignment
// means the identity is not in the experiment.
func PrintAssignment(assignment *engine.VariantAssignment, format OutputFormat) error {
	if assignment == nil {
		fmt.Println("not assigned")
		return nil
	}
	switch format {
	case FormatJSON:
		return printJSON(assignment)
	case FormatYAML:
		return printYAML(assignment)
	case FormatTable:
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Experiment", "Variation", "Name", "Value", "Control")
		table.Append(assignment.ExperimentKey, assignment.VariationKey,
			assignment.VariationName, fmt.Sprintf("%v", assignment.Value),
			fmt.Sprintf("%t", assignment.IsControl))
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printFlagTable(flags map[string]definitions.FlagDefinition) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Key", "Enabled", "Default", "Rollout", "A%", "B%", "Targeted")

	for _, key := range sortedKeys(flags) {
		flag := flags[key]

		rollout := "off"
		if flag.RolloutEnabled {
			rollout = "on"
		}
		targeted := "no"
		if flag.Targeting != nil {
			targeted = "yes"
		}

		table.Append(
			flag.Key,
			fmt.Sprintf("%t", flag.Enabled),
			string(flag.DefaultSide()),
			rollout,
			fmt.Sprintf("%d%%", flag.RolloutPercentageA),
			fmt.Sprintf("%d%%", flag.RolloutPercentageB),
			targeted,
		)
	}

	return table.Render()
}

func printExperimentTable(experiments map[string]definitions.ExperimentDefinition) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Key", "Status", "Variations", "Allocated", "Starts", "Ends")

	for _, key := range sortedKeys(experiments) {
		exp := experiments[key]

		allocated := 0
		for _, a := range exp.TrafficAllocation {
			allocated += a.Percentage
		}
		starts, ends := "-", "-"
		if exp.ScheduledStartAt != nil {
			starts = exp.ScheduledStartAt.Format("2006-01-02 15:04")
		}
		if exp.ScheduledEndAt != nil {
			ends = exp.ScheduledEndAt.Format("2006-01-02 15:04")
		}

		table.Append(
			exp.Key,
			string(exp.Status),
			fmt.Sprintf("%d", len(exp.Variations)),
			fmt.Sprintf("%d%%", allocated),
			starts,
			ends,
		)
	}

	return table.Render()
}

func printConfigTable(configs map[string]any) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Key", "Value")

	for _, key := range sortedKeys(configs) {
		table.Append(key, fmt.Sprintf("%v", configs[key]))
	}

	return table.Render()
}
