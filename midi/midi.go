package midi

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

func ReadMidiFile(filepath string) (s *smf.SMF, e error) {
	var blank smf.SMF

	// handle panics
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s = &blank
			e = errors.New(fmt.Sprint(r))
		}
	}()

	dat, err := os.ReadFile(filepath)
	if err != nil {
		return &blank, errors.Wrap(err, "error reading midi file")
	}

	res, err := smf.ReadFrom(bytes.NewReader(dat))
	if err != nil {
		return &blank, errors.Wrap(err, "error parsing midi file")
	}

	return res, nil
}

// LoadPianoRoll reads a MIDI file and returns its piano roll limited to
// [minNote, maxNote).
func LoadPianoRoll(filepath string, minNote, maxNote int) ([][]float64, error) {
	s, err := ReadMidiFile(filepath)
	if err != nil {
		return nil, err
	}
	roll, err := PianoRoll(s)
	if err != nil {
		return nil, errors.Wrapf(err, "could not build piano roll for %s", filepath)
	}
	return Clip(roll, minNote, maxNote), nil
}

// WriteMidiFile encodes a full-range piano roll and writes it to path.
func WriteMidiFile(path string, frames [][]float64) error {
	s, err := Encode(frames)
	if err != nil {
		return err
	}
	if err := s.WriteFile(path); err != nil {
		return errors.Wrapf(err, "could not write midi file %s", path)
	}
	return nil
}

// EncodeBytes is Encode serialised as a standard MIDI file.
func EncodeBytes(frames [][]float64) ([]byte, error) {
	s, err := Encode(frames)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "could not serialise midi")
	}
	return buf.Bytes(), nil
}
