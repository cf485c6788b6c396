// Command chainwatch trains and runs anomaly-detection ensembles over
// supply-chain telemetry exported as CSV.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chainwatch:", err)
		os.Exit(1)
	}
}
