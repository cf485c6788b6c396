package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/arkado/chainwatch/pkg/config"
	"github.com/arkado/chainwatch/pkg/detectors"
	csvio "github.com/arkado/chainwatch/pkg/io/csv"
)

var (
	trainData   string
	trainLabels string
	trainModel  string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit the configured ensemble on a telemetry CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		if trainData == "" {
			return errors.New("--data is required")
		}

		var opts []csvio.Option
		if trainLabels != "" {
			opts = append(opts, csvio.WithLabelColumn(trainLabels))
		}
		reader, err := csvio.NewReader(trainData, opts...)
		if err != nil {
			return err
		}
		defer reader.Close()

		var rows [][]float64
		var labels []detectors.Label
		if trainLabels != "" {
			rows, labels, err = reader.ReadLabeled()
		} else {
			rows, err = reader.Read()
		}
		if err != nil {
			return err
		}
		log.Info("telemetry loaded", "rows", len(rows), "labeled", trainLabels != "")

		ens, err := config.BuildEnsemble(cfg, log)
		if err != nil {
			return err
		}
		if err := ens.Fit(rows, labels); err != nil {
			return err
		}

		if err := ens.Save(trainModel); err != nil {
			return err
		}
		log.Info("model saved", "path", trainModel, "weights", ens.Weights(), "threshold", ens.Threshold())
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainData, "data", "", "telemetry CSV to train on")
	trainCmd.Flags().StringVar(&trainLabels, "label-column", "", "header name of the ground-truth label column (+1 normal, -1 anomalous)")
	trainCmd.Flags().StringVar(&trainModel, "model", "chainwatch.model", "output path for the model bundle")
}
