package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "corrigo",
	Short: "Correction reliability and learning layer CLI",
	Long: `Corrigo sits between a document-correction pipeline and its external
correction provider. It caches provider responses, survives transient
provider failures, and learns from accumulated user feedback so that
corrections with stable consensus stop costing provider calls at all.

The CLI provides:
- Line-by-line correction of stdin text
- Feedback recording against a correction's fingerprint
- Inspection of learned corrections and consensus stats`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "corrigo.yaml", "path to the YAML configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
