package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
)

var correctCategory string

var correctCmd = &cobra.Command{
	Use:   "correct",
	Short: "Correct lines read from stdin",
	Long: `Reads text units from stdin, one per line, and prints the proposed
correction for each along with its fingerprint and source (learned,
cache or provider).`,
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

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}

			result, err := a.corrector.Correct(cmd.Context(), corrections.Unit{
				Text:     text,
				Category: correctCategory,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "no correction available: %v\n", err)
				continue
			}

			fmt.Printf("%s\t%s\t%q -> %q\n",
				result.Fingerprint, result.Source,
				result.Correction.Original, result.Correction.Corrected)
		}
		return scanner.Err()
	},
}

func init() {
	correctCmd.Flags().StringVar(&correctCategory, "category", "GRAMMAR", "correction category")
	rootCmd.AddCommand(correctCmd)
}
