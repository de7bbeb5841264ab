package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/psmgo"
	"github.com/hupe1980/psmgo/codec"
	"github.com/hupe1980/psmgo/dataset"
	"github.com/hupe1980/psmgo/table"
)

type matchFlags struct {
	experiment string
	control    string
	columns    []string
	nResults   int
	out        string
	format     string
	codec      string
	store      string
	publish    bool
}

func newMatchCmd(g *globalFlags) *cobra.Command {
	f := &matchFlags{}

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match every experiment row to its nearest control row",
		Long: `Loads the experiment and control CSV files from the store, fits the
propensity model and writes the matched control rows.

Without --out the result is written to stdout. With --out it is saved to
the store; a .zst or .lz4 suffix compresses it, and --publish points
CURRENT at it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMatch(cmd, g, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.experiment, "experiment", "", "experiment CSV blob name (required)")
	fl.StringVar(&f.control, "control", "", "control CSV blob name (required)")
	fl.StringSliceVar(&f.columns, "columns", nil, "feature columns (default: all columns)")
	fl.IntVarP(&f.nResults, "n-results", "n", 0, "keep the n closest matches (default: one row per experiment row)")
	fl.StringVarP(&f.out, "out", "o", "", "result blob name (default: stdout)")
	fl.StringVar(&f.format, "format", "csv", "stdout format: csv or json")
	fl.StringVar(&f.codec, "codec", "go-json", "JSON codec for --format json: json or go-json")
	fl.StringVar(&f.store, "store", "", "store URI (overrides storage.uri)")
	fl.BoolVar(&f.publish, "publish", false, "point CURRENT at the saved result")
	_ = cmd.MarkFlagRequired("experiment")
	_ = cmd.MarkFlagRequired("control")

	return cmd
}

func runMatch(cmd *cobra.Command, g *globalFlags, f *matchFlags) error {
	ctx := cmd.Context()

	if f.publish && f.out == "" {
		return fmt.Errorf("--publish requires --out")
	}
	if f.format != "csv" && f.format != "json" {
		return fmt.Errorf("unknown format %q", f.format)
	}

	cfg, err := g.load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	est, err := cfg.Estimator.Propensity()
	if err != nil {
		return err
	}

	storage := cfg.Storage
	if f.store != "" {
		storage.URI = f.store
	}
	store, err := openStore(ctx, storage)
	if err != nil {
		return err
	}

	experiment, control, err := dataset.LoadPair(ctx, store, f.experiment, f.control)
	if err != nil {
		return err
	}

	optFns := []psmgo.Option{
		psmgo.WithEstimatorConfig(est),
		psmgo.WithLogger(logger),
	}
	if cmd.Flags().Changed("columns") {
		optFns = append(optFns, psmgo.WithFeatureColumns(f.columns...))
	}
	if cmd.Flags().Changed("n-results") {
		optFns = append(optFns, psmgo.WithNResults(f.nResults))
	}

	res, err := psmgo.Run(ctx, experiment, control, optFns...)
	if err != nil {
		return err
	}

	switch {
	case f.out == "":
		return writeResult(cmd.OutOrStdout(), res.Table, f)
	case f.publish:
		err = dataset.Publish(ctx, store, f.out, res.Table)
	default:
		err = dataset.Save(ctx, store, f.out, res.Table)
	}
	if err != nil {
		return err
	}

	logger.Info("result saved",
		"out", f.out,
		"rows", res.Table.Len(),
		"distinct_controls", res.DistinctControls,
		"published", f.publish,
	)
	return nil
}

func writeResult(w io.Writer, t *table.Table, f *matchFlags) error {
	if f.format == "csv" {
		return dataset.Encode(w, t)
	}
	c, err := codec.ByName(f.codec)
	if err != nil {
		return err
	}
	if err := dataset.EncodeRecords(w, t, c); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
