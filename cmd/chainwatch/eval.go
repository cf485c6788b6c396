package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arkado/chainwatch/pkg/config"
	"github.com/arkado/chainwatch/pkg/ensemble"
	csvio "github.com/arkado/chainwatch/pkg/io/csv"
)

var (
	evalData   string
	evalLabels string
	evalModel  string
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a trained ensemble against a labeled hold-out CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		if evalData == "" || evalLabels == "" {
			return errors.New("--data and --label-column are required")
		}

		reader, err := csvio.NewReader(evalData, csvio.WithLabelColumn(evalLabels))
		if err != nil {
			return err
		}
		defer reader.Close()

		rows, truth, err := reader.ReadLabeled()
		if err != nil {
			return err
		}

		ens, err := config.BuildEnsemble(cfg, log)
		if err != nil {
			return err
		}
		if err := ens.Load(evalModel); err != nil {
			return err
		}

		pred, report, err := ens.PredictWithReport(rows)
		if err != nil {
			return err
		}

		c := ensemble.Confuse(pred, truth)
		fmt.Printf("rows:       %d\n", len(rows))
		fmt.Printf("detectors:  %d/%d contributed\n", report.Contributed, report.Total)
		fmt.Printf("tp=%d fp=%d tn=%d fn=%d\n", c.TP, c.FP, c.TN, c.FN)
		fmt.Printf("precision:  %.4f\n", c.Precision())
		fmt.Printf("recall:     %.4f\n", c.Recall())
		fmt.Printf("f1:         %.4f\n", c.F1())
		return nil
	},
}

func init() {
	evalCmd.Flags().StringVar(&evalData, "data", "", "labeled telemetry CSV")
	evalCmd.Flags().StringVar(&evalLabels, "label-column", "", "header name of the ground-truth label column")
	evalCmd.Flags().StringVar(&evalModel, "model", "chainwatch.model", "path to a trained model bundle")
}
