package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var learnedCmd = &cobra.Command{
	Use:   "learned",
	Short: "List learned corrections and their consensus state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.corrector.Learned(cmd.Context())
		if err != nil {
			return err
		}

		for _, e := range entries {
			fmt.Printf("%s\t%-9s\t%.2f (%d samples)\t%q -> %q\n",
				e.Fingerprint, e.State, e.Ratio, e.SampleSize, e.Original, e.Corrected)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(learnedCmd)
}
