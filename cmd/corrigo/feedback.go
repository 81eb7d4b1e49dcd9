package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
)

var (
	feedbackDocument  string
	feedbackOriginal  string
	feedbackCorrected string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <fingerprint> <accepted|rejected>",
	Short: "Record a verdict on a proposed correction",
	Args:  cobra.ExactArgs(2),
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

		fp := fingerprint.Fingerprint(args[0])
		verdict := corrections.Verdict(args[1])

		stats, err := a.corrector.Feedback(cmd.Context(), fp, corrections.Correction{
			Original:  feedbackOriginal,
			Corrected: feedbackCorrected,
		}, verdict, feedbackDocument)
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d accepted / %d rejected (ratio %.2f)\n",
			fp, stats.Accepted, stats.Rejected, stats.Ratio())
		return nil
	},
}

func init() {
	feedbackCmd.Flags().StringVar(&feedbackDocument, "document", "", "document identifier")
	feedbackCmd.Flags().StringVar(&feedbackOriginal, "original", "", "original text the user judged")
	feedbackCmd.Flags().StringVar(&feedbackCorrected, "corrected", "", "corrected text the user judged")
	rootCmd.AddCommand(feedbackCmd)
}
