package cmd

import (
	"fmt"

	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/db"
	"github.com/jsphweid/biaxial/rnn"
	"github.com/jsphweid/biaxial/util"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [checkpoint]",
	Short: "Inspects a saved model",
	Long:  `Prints the header and parameter shapes of a saved model. Defaults to MODEL_FILE.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := constants.GetModelFile()
		if len(args) == 1 {
			path = args[0]
		}
		if err := inspect(path); err != nil {
			log.WithError(err).Fatal("Could not inspect checkpoint")
		}
	},
}

func inspect(path string) error {
	c, err := rnn.ReadCheckpoint(path)
	if err != nil {
		return err
	}

	fmt.Printf("version: %v\n", c.Version)
	fmt.Printf("run: %v\n", c.RunID)
	fmt.Printf("created: %v\n", c.CreatedAt)
	fmt.Printf("config: %+v\n", c.Config)
	fmt.Printf("optimizer steps: %v\n", c.Steps)

	var total int
	for _, name := range util.GetKeys(c.Shapes) {
		shape := c.Shapes[name]
		total += shape[0] * shape[1]
		fmt.Printf("%v: %vx%v\n", name, shape[0], shape[1])
	}
	fmt.Printf("parameters: %v\n", total)

	runLog, err := db.NewFromEnv()
	if err != nil || runLog == nil || c.RunID == "" {
		return err
	}
	runs, err := runLog.GetRuns([]string{c.RunID})
	if err != nil {
		return err
	}
	if run, ok := runs[c.RunID]; ok {
		fmt.Printf("training run: %+v\n", run)
	}
	return nil
}
