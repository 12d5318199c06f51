package model

// CorpusOverview is what the report command prints about a training corpus.
type CorpusOverview struct {
	NumFiles     int
	NumSkipped   int
	NumSequences int
	NumFrames    int
	NumWindows   int
	NumBatches   int
	NoteDensity  float64
}

type FileNum = uint32
type FileNumToMidiPath = map[FileNum]string

// Corpus is what was read from a data directory. Files holds the files that
// decoded, Gathered counts every MIDI file found.
type Corpus struct {
	Sequences []Sequence
	Files     FileNumToMidiPath
	Gathered  int
}
