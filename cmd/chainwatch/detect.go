package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/arkado/chainwatch/pkg/config"
	"github.com/arkado/chainwatch/pkg/detectors"
	cwio "github.com/arkado/chainwatch/pkg/io"
	csvio "github.com/arkado/chainwatch/pkg/io/csv"
	"github.com/arkado/chainwatch/pkg/io/jsonl"
)

var (
	detectData  string
	detectModel string
	detectOut   string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Score a telemetry CSV with a trained ensemble",
	RunE: func(cmd *cobra.Command, args []string) error {
		if detectData == "" {
			return errors.New("--data is required")
		}

		reader, err := csvio.NewReader(detectData)
		if err != nil {
			return err
		}
		defer reader.Close()

		rows, err := reader.Read()
		if err != nil {
			return err
		}

		ens, err := config.BuildEnsemble(cfg, log)
		if err != nil {
			return err
		}
		if err := ens.Load(detectModel); err != nil {
			return err
		}

		labels, report, err := ens.PredictWithReport(rows)
		if err != nil {
			return err
		}
		if report.Degraded() {
			log.Warn("ensemble degraded",
				"contributed", report.Contributed,
				"total", report.Total,
				"failed", report.Failed)
		}
		probs, err := ens.PredictProba(rows)
		if err != nil {
			return err
		}

		var writer *jsonl.Writer
		if detectOut == "" {
			writer = jsonl.NewWriter(os.Stdout)
		} else {
			writer, err = jsonl.NewFileWriter(detectOut)
			if err != nil {
				return err
			}
		}
		defer writer.Close()

		anomalies := 0
		for i, label := range labels {
			if label == detectors.LabelAnomaly {
				anomalies++
			}
			result := cwio.Result{
				Index:     i,
				Label:     label,
				Score:     probs[i][0],
				IsAnomaly: label == detectors.LabelAnomaly,
			}
			if err := writer.Write(result); err != nil {
				return err
			}
		}

		log.Info("detection complete",
			"run_id", writer.RunID(),
			"rows", len(rows),
			"anomalies", anomalies,
			"contributed", report.Contributed,
			"total", report.Total)
		return nil
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectData, "data", "", "telemetry CSV to score")
	detectCmd.Flags().StringVar(&detectModel, "model", "chainwatch.model", "path to a trained model bundle")
	detectCmd.Flags().StringVar(&detectOut, "out", "", "output JSONL path (default: stdout)")
}
