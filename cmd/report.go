package cmd

import (
	"fmt"

	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/dataset"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var reportMaxFiles int

func init() {
	reportCmd.Flags().IntVar(&reportMaxFiles, "max-files", 0, "limit the number of MIDI files loaded (0 loads all)")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Reports on the training data",
	Long:  `Reports how much training data DATA_PATH holds and how it is batched`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := report(reportMaxFiles); err != nil {
			log.WithError(err).Fatal("Could not create report")
		}
	},
}

func report(maxFiles int) error {
	corpus, err := dataset.LoadAll(constants.GetDataDir(), maxFiles)
	if err != nil {
		return err
	}
	cfg := composeOpts.Config
	overview := dataset.Overview(corpus, cfg.BatchSize, cfg.TimeSteps)

	fmt.Printf("files: %v\n", overview.NumFiles)
	fmt.Printf("skipped: %v\n", overview.NumSkipped)
	fmt.Printf("sequences: %v\n", overview.NumSequences)
	fmt.Printf("frames: %v\n", overview.NumFrames)
	fmt.Printf("windows: %v\n", overview.NumWindows)
	fmt.Printf("batches of %v: %v\n", cfg.BatchSize, overview.NumBatches)
	fmt.Printf("note density: %.4f\n", overview.NoteDensity)
	return nil
}
