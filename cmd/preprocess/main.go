// Command preprocess is the batch counterpart of the HTTP service: it loads
// a dataset from disk, replays a recorded pipeline against it, and writes
// the transformed table (and optionally tensors) back out.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gidavehub/mlstudio-sub000/internal/analytics"
	"github.com/gidavehub/mlstudio-sub000/internal/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "preprocess",
		Short:        "Batch tabular preprocessing",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newStatsCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		inputPath    string
		pipelinePath string
		outputPath   string
		tensorsPath  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a recorded pipeline against a dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			pre, err := loadDataset(inputPath)
			if err != nil {
				return err
			}

			stepsData, err := os.ReadFile(pipelinePath)
			if err != nil {
				return fmt.Errorf("read pipeline file: %w", err)
			}
			var steps []pipeline.Step
			if err := json.Unmarshal(stepsData, &steps); err != nil {
				return fmt.Errorf("parse pipeline file: %w", err)
			}

			if err := pre.Replay(steps); err != nil {
				return err
			}

			out, err := pre.Table().ExportCSV()
			if err != nil {
				return err
			}
			if err := os.WriteFile(outputPath, []byte(out), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			if tensorsPath != "" {
				bundle, err := pre.ConvertToTensors()
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(bundle, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(tensorsPath, data, 0o644); err != nil {
					return fmt.Errorf("write tensors: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "applied %d steps, wrote %s\n", len(steps), outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "input dataset (.csv, .json, or .xlsx)")
	cmd.Flags().StringVarP(&pipelinePath, "pipeline", "p", "", "recorded pipeline step log (JSON)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "out.csv", "output CSV path")
	cmd.Flags().StringVar(&tensorsPath, "tensors", "", "also materialize tensors to this JSON path")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("pipeline")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print per-column descriptive statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			pre, err := loadDataset(inputPath)
			if err != nil {
				return err
			}
			summaries := analytics.Summarize(pre.Table())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summaries)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "input dataset (.csv, .json, or .xlsx)")
	cmd.MarkFlagRequired("input")
	return cmd
}

func loadDataset(path string) (*pipeline.Preprocessor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	pre := pipeline.New(logger)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = pre.LoadJSON(data)
	case ".xlsx":
		err = pre.LoadExcel(bytes.NewReader(data))
	default:
		err = pre.LoadCSV(string(data))
	}
	if err != nil {
		return nil, err
	}
	return pre, nil
}
