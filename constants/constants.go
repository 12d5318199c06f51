package constants

import (
	"os"
	"path/filepath"
)

const (
	Octave     = 12
	NumOctaves = 4

	// Modeled pitch range [MinNote, MaxNote)
	MinNote  = 36
	MaxNote  = MinNote + NumOctaves*Octave
	NumNotes = MaxNote - MinNote

	NotesPerBeat = 4
	BeatsPerBar  = 4
	NotesPerBar  = NotesPerBeat * BeatsPerBar

	BatchSize = 32
	TimeSteps = 16

	// beat clock (cos, sin) plus completion
	BeatDim     = 2
	ProgressDim = 1
	ContextDim  = BeatDim + ProgressDim

	// NOTE: style conditioning is not wired into the network yet
	NumStyles = 4

	// 16th notes at 120 bpm
	TicksPerBeat = 480
	DefaultBPM   = 120
)

func GetDataDir() string {
	return getEnv("DATA_PATH", "data/classical/bach")
}

func GetOutDir() string {
	return getEnv("OUT_PATH", "out")
}

func GetModelFile() string {
	return getEnv("MODEL_FILE", filepath.Join(GetOutDir(), "saves", "model"))
}

func GetDynamoEndpoint() string {
	return os.Getenv("DYNAMO_ENDPOINT")
}

func GetDynamoRegion() string {
	return getEnv("DYNAMO_REGION", "localhost")
}

func GetRunsTable() string {
	return getEnv("DYNAMO_RUNS_TABLE", "biaxial-runs")
}

func GetLogLevel() string {
	return getEnv("LOG_LEVEL", "info")
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
