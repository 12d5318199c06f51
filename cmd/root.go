package cmd

import (
	"github.com/joho/godotenv"
	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/dataset"
	"github.com/jsphweid/biaxial/db"
	"github.com/jsphweid/biaxial/file"
	"github.com/jsphweid/biaxial/midi"
	"github.com/jsphweid/biaxial/model"
	"github.com/jsphweid/biaxial/rnn"
	"github.com/jsphweid/biaxial/sample"
	"github.com/jsphweid/biaxial/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ComposeOptions drives one invocation of the root command.
type ComposeOptions struct {
	Train     bool
	Load      bool
	Epochs    int
	Count     int
	Length    int
	Inspire   bool
	MaxFiles  int
	StopScope rnn.StopScope
	Config    rnn.Config
}

var (
	composeOpts = ComposeOptions{Config: rnn.DefaultConfig()}
	stopScope   string
	verbose     bool
)

func init() {
	flags := rootCmd.Flags()
	flags.BoolVar(&composeOpts.Train, "train", false, "train before generating")
	flags.BoolVar(&composeOpts.Load, "load", false, "resume training from the saved model")
	flags.IntVar(&composeOpts.Epochs, "epochs", 1000, "training epochs")
	flags.IntVar(&composeOpts.Count, "count", 5, "number of compositions to generate")
	flags.IntVar(&composeOpts.Length, "length", constants.NotesPerBar*16, "frames per composition")
	flags.BoolVar(&composeOpts.Inspire, "inspire", false, "prime generation with a bar of the training data")
	flags.IntVar(&composeOpts.MaxFiles, "max-files", 0, "limit the number of MIDI files loaded (0 loads all)")
	flags.StringVar(&stopScope, "stop-scope", "sequence", "what early stopping abandons: sequence or run")
	flags.Int64Var(&composeOpts.Config.Seed, "seed", 0, "random seed for a fresh model (0 uses the clock)")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

var rootCmd = &cobra.Command{
	Use:   "biaxial",
	Short: "Biaxial RNN composer",
	Long: `Trains a biaxial recurrent network on a folder of MIDI files and
writes generated piano compositions to the output folder.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional
		_ = godotenv.Load()
		setupLogging()
	},
	Run: func(cmd *cobra.Command, args []string) {
		scope, err := rnn.ParseStopScope(stopScope)
		if err != nil {
			log.Fatal(err)
		}
		composeOpts.StopScope = scope
		if err := Compose(composeOpts); err != nil {
			log.WithError(err).Fatal("Could not compose")
		}
	},
}

func setupLogging() {
	level, err := log.ParseLevel(constants.GetLogLevel())
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", constants.GetLogLevel())
		level = log.InfoLevel
	}
	if verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)
}

func loadCorpus(maxFiles int) ([]model.Sequence, error) {
	corpus, err := dataset.LoadAll(constants.GetDataDir(), maxFiles)
	return corpus.Sequences, err
}

func train(opts ComposeOptions, seqs []model.Sequence) error {
	modelFile := constants.GetModelFile()

	var m *rnn.Model
	if opts.Load {
		restored, err := rnn.Restore(modelFile)
		if err != nil {
			return err
		}
		m = restored
	} else {
		m = rnn.NewModel(opts.Config)
	}

	log.WithFields(log.Fields{"batch_size": m.Config.BatchSize, "time_steps": m.Config.TimeSteps}).Info("Training")
	batches := dataset.Process(seqs, m.Config.BatchSize, m.Config.TimeSteps)

	trainOpts := rnn.DefaultTrainOptions(modelFile)
	trainOpts.Epochs = opts.Epochs
	trainOpts.StopScope = opts.StopScope
	runLog, err := db.NewFromEnv()
	if err != nil {
		log.Warnf("Not recording training runs: %v", err)
	}
	if runLog != nil {
		trainOpts.RunLog = runLog
	}

	_, err = rnn.Train(m, batches, trainOpts)
	return err
}

// Compose optionally trains and then writes opts.Count compositions generated
// by the saved model to the output folder.
func Compose(opts ComposeOptions) error {
	if opts.Count < 0 || opts.Length < 0 {
		return errors.Errorf("count %d and length %d must not be negative", opts.Count, opts.Length)
	}

	var seqs []model.Sequence
	if opts.Train || opts.Inspire {
		loaded, err := loadCorpus(opts.MaxFiles)
		if err != nil {
			return err
		}
		seqs = loaded
	}

	if opts.Train {
		if err := train(opts, seqs); err != nil {
			return err
		}
	}

	log.Info("Generating")
	m, err := rnn.Restore(constants.GetModelFile())
	if err != nil {
		return err
	}

	outDir := constants.GetOutDir()
	if err := util.EnsureDir(outDir); err != nil {
		return err
	}
	for i := 0; i < opts.Count; i++ {
		var inspiration model.Sequence
		if opts.Inspire {
			inspiration = sample.Random(seqs, constants.NotesPerBar, m.Rand())
		}
		composition := m.Generate(inspiration, opts.Length)

		path := file.ResultPath(outDir, i)
		if err := midi.WriteMidiFile(path, midi.Restore(composition, constants.MinNote)); err != nil {
			return err
		}
		log.WithFields(log.Fields{"path": path, "frames": len(composition)}).Info("Wrote composition")
	}
	return nil
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
