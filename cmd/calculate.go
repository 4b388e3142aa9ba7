package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/streetworks-impact/internal/model"
)

var calculateFormat string

var calculateCmd = &cobra.Command{
	Use:   "calculate <metric> <project_id>",
	Short: "Compute one impact metric for a project",
	Long:  "Metrics: wellbeing, bus-network (transport), road-network (network).",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		metric, err := parseMetric(args[0])
		if err != nil {
			return err
		}
		if err := cfg.Validate("calculate"); err != nil {
			return err
		}
		ctx := cmd.Context()

		e, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.Calculator.Calculate(ctx, metric, args[1])
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), res, calculateFormat)
	},
}

// parseMetric accepts the metric names and route aliases.
func parseMetric(name string) (model.Metric, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "wellbeing":
		return model.MetricWellbeing, nil
	case "bus-network", "transport":
		return model.MetricTransport, nil
	case "road-network", "network":
		return model.MetricRoadNetwork, nil
	default:
		return "", eris.Errorf("unknown metric %q", name)
	}
}

func writeResult(w io.Writer, v any, format string) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		return eris.Errorf("unsupported format %q (json or yaml)", format)
	}
}

func init() {
	calculateCmd.Flags().StringVar(&calculateFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(calculateCmd)
}
