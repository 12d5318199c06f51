package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/gorilla/mux"
	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/midi"
	"github.com/jsphweid/biaxial/model"
	"github.com/jsphweid/biaxial/rnn"
	"github.com/jsphweid/biaxial/sample"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const maxServeLength = constants.NotesPerBar * 64

var (
	servedModel *rnn.Model
	// generation draws from the model's random source, so requests are serialised
	servedMu       sync.Mutex
	inspirationSet []model.Sequence
	reloadModel    = debounce.New(500 * time.Millisecond)
	serveAddr      string
	serveMaxFiles  int
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&serveMaxFiles, "max-files", 0, "limit the MIDI files loaded for inspiration (0 loads all)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves generated compositions over HTTP",
	Long:  `Serves generated compositions over HTTP`,
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

// LoadServeFiles loads the saved model and, when the training data is
// available, the sequences used for inspiration.
func LoadServeFiles() error {
	m, err := rnn.Restore(constants.GetModelFile())
	if err != nil {
		return err
	}
	seqs, err := loadCorpus(serveMaxFiles)
	if err != nil {
		log.Warnf("Inspiration disabled: %v", err)
	}

	servedMu.Lock()
	defer servedMu.Unlock()
	servedModel = m
	inspirationSet = seqs
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: msg})
}

func HandleGenerate(w http.ResponseWriter, r *http.Request) {
	input := model.GenerateRequestBody{Length: constants.NotesPerBar * 16}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, http.StatusBadRequest, "Could not decode request body: "+err.Error())
			return
		}
	}
	if input.Length < 0 || input.Length > maxServeLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("length must be between 0 and %d", maxServeLength))
		return
	}

	servedMu.Lock()
	m := servedModel
	if m == nil {
		servedMu.Unlock()
		writeError(w, http.StatusServiceUnavailable, "no model loaded")
		return
	}
	var inspiration model.Sequence
	if input.Inspiration {
		if len(inspirationSet) == 0 {
			servedMu.Unlock()
			writeError(w, http.StatusBadRequest, "no training data to draw inspiration from")
			return
		}
		inspiration = sample.Random(inspirationSet, constants.NotesPerBar, m.Rand())
	}
	composition := m.Generate(inspiration, input.Length)
	servedMu.Unlock()

	data, err := midi.EncodeBytes(midi.Restore(composition, constants.MinNote))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/midi")
	w.Write(data)
}

func reload() {
	m, err := rnn.Restore(constants.GetModelFile())
	if err != nil {
		log.WithError(err).Error("Could not reload model")
		return
	}
	servedMu.Lock()
	servedModel = m
	servedMu.Unlock()
	log.WithFields(log.Fields{"run": m.RunID}).Info("Reloaded model")
}

// HandleReload schedules a reload of the checkpoint. Bursts of requests
// collapse into a single reload.
func HandleReload(w http.ResponseWriter, r *http.Request) {
	reloadModel(reload)
	w.WriteHeader(http.StatusAccepted)
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	res := model.HealthResponse{Status: "ok"}
	servedMu.Lock()
	if servedModel != nil {
		res.RunID = servedModel.RunID
	} else {
		res.Status = "no model"
	}
	servedMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func NewRouter() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/generate", HandleGenerate).Methods("POST")
	router.HandleFunc("/reload", HandleReload).Methods("POST")
	router.HandleFunc("/health", HandleHealth).Methods("GET")
	return cors.Default().Handler(router)
}

func serve() {
	if err := LoadServeFiles(); err != nil {
		log.WithError(err).Fatal("Could not load model")
	}
	log.WithFields(log.Fields{"addr": serveAddr}).Info("Serving")
	log.Fatal(http.ListenAndServe(serveAddr, NewRouter()))
}
