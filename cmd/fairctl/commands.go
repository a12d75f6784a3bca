package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/fairlens/internal/domain/evaluation"
	"github.com/okian/fairlens/internal/domain/fairness"
)

type engineFlags struct {
	metric         string
	dimension      int
	parallelism    int
	excludeSelf    bool
	maxIndividuals int
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.metric, "metric", string(fairness.MetricEuclidean), "situation testing distance: euclidean, manhattan or chebyshev")
	cmd.Flags().IntVar(&f.dimension, "dimension", 0, "expected feature dimension (0 infers it)")
	cmd.Flags().IntVar(&f.parallelism, "parallelism", 0, "concurrent neighbour queries (0 uses every CPU)")
	cmd.Flags().BoolVar(&f.excludeSelf, "exclude-self", false, "leave the tested individual out of its own group's neighbours")
	cmd.Flags().IntVar(&f.maxIndividuals, "max-individuals", 0, "reject larger datasets (0 disables the limit)")
}

func (f *engineFlags) engine() (*evaluation.Engine, error) {
	metric, err := fairness.ParseMetric(f.metric)
	if err != nil {
		return nil, err
	}
	return evaluation.NewEngine(
		evaluation.WithMaxIndividuals(f.maxIndividuals),
		evaluation.WithTesterOptions(
			fairness.WithMetric(metric),
			fairness.WithDimension(f.dimension),
			fairness.WithParallelism(f.parallelism),
			fairness.WithSelfExclusion(f.excludeSelf),
		),
	), nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fairctl",
		Short:         "Compute discrimination measures over a dataset file",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newMeasuresCmd(), newMeasureCmd(), newReportCmd())
	return root
}

func newMeasuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "measures",
		Short: "List the group measures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range fairness.MeasureNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newMeasureCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "measure NAME",
		Short: "Compute one group measure over the outcomes and protected vectors of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readDataset(path)
			if err != nil {
				return err
			}
			v, err := evaluation.NewEngine().Measure(cmd.Context(), args[0], req.Outcomes, req.Protected)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"measure": args[0], "value": v, "n": len(req.Outcomes)})
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "dataset file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newReportCmd() *cobra.Command {
	var (
		path  string
		flags engineFlags
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute every measure the dataset's vectors allow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := readDataset(path)
			if err != nil {
				return err
			}
			engine, err := flags.engine()
			if err != nil {
				return err
			}
			rep, err := engine.Evaluate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "dataset file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("file")
	flags.register(cmd)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
