//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jsphweid/biaxial/cmd"
	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/file"
	"github.com/jsphweid/biaxial/midi"
	"github.com/jsphweid/biaxial/model"
	"github.com/jsphweid/biaxial/rnn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"
)

func writeCorpus(dir string) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 3; i++ {
		frames := make([][]float64, 40)
		for t := range frames {
			frames[t] = make([]float64, constants.NumNotes)
			frames[t][r.Intn(constants.NumNotes)] = 1
		}
		path := filepath.Join(dir, string(rune('a'+i))+".mid")
		if err := midi.WriteMidiFile(path, midi.Restore(frames, constants.MinNote)); err != nil {
			panic(err.Error())
		}
	}
}

func TestMain(m *testing.M) {
	root, err := os.MkdirTemp("", "biaxial-e2e")
	if err != nil {
		panic(err.Error())
	}
	dataDir := filepath.Join(root, "data")
	os.MkdirAll(dataDir, 0777)
	writeCorpus(dataDir)

	os.Setenv("DATA_PATH", dataDir)
	os.Setenv("OUT_PATH", filepath.Join(root, "out"))
	os.Setenv("MODEL_FILE", filepath.Join(root, "out", "saves", "model"))
	os.Setenv("DYNAMO_ENDPOINT", "")

	err = cmd.Compose(cmd.ComposeOptions{
		Train:   true,
		Epochs:  1,
		Count:   2,
		Length:  8,
		Inspire: true,
		Config: rnn.Config{
			BatchSize:     2,
			TimeSteps:     4,
			TimeAxisUnits: 4,
			NoteAxisUnits: 3,
			Dropout:       0.5,
			LearningRate:  0.001,
			Seed:          1,
		},
	})
	if err != nil {
		panic(err.Error())
	}
	if err := cmd.LoadServeFiles(); err != nil {
		panic(err.Error())
	}

	exitVal := m.Run()
	os.RemoveAll(root)
	os.Exit(exitVal)
}

func TestComposeWritesResults(t *testing.T) {
	for i := 0; i < 2; i++ {
		_, err := midi.ReadMidiFile(file.ResultPath(constants.GetOutDir(), i))
		assert.NoError(t, err)
	}
	_, err := os.Stat(file.ResultPath(constants.GetOutDir(), 2))
	assert.True(t, os.IsNotExist(err))
}

func createGenerateReqBody(length int, inspiration bool) io.Reader {
	data, err := json.Marshal(model.GenerateRequestBody{Length: length, Inspiration: inspiration})
	if err != nil {
		panic(err.Error())
	}
	return bytes.NewReader(data)
}

func TestGenerateE2E(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/generate", createGenerateReqBody(16, true))
	w := httptest.NewRecorder()
	cmd.NewRouter().ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	assert := assert.New(t)
	require.Equal(t, 200, resp.StatusCode, string(body))
	assert.Equal("audio/midi", resp.Header.Get("Content-Type"))

	s, err := smf.ReadFrom(bytes.NewReader(body))
	require.NoError(t, err)
	roll, err := midi.PianoRoll(s)
	require.NoError(t, err)
	assert.LessOrEqual(len(roll), 16)
}

func TestGenerateRejectsBadLength(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/generate", createGenerateReqBody(-1, false))
	w := httptest.NewRecorder()
	cmd.HandleGenerate(w, req)

	resp := w.Result()
	assert.Equal(t, 400, resp.StatusCode)

	var errResp model.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.NotEmpty(t, errResp.Error)
}

func TestHealthE2E(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	cmd.NewRouter().ServeHTTP(w, req)

	var health model.HealthResponse
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, health.RunID)
}

func TestReloadE2E(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/reload", nil)
	w := httptest.NewRecorder()
	cmd.NewRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Result().StatusCode)
}
